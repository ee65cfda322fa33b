package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

// Enqueuer is the part of asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskDeleter is the part of asynq.Inspector used to cancel tasks.
type TaskDeleter interface {
	DeleteTask(queue, id string) error
}

// GraceTimer schedules draft:grace tasks. A draft owns exactly one task id, so arming
// twice keeps the first schedule.
type GraceTimer struct {
	client    Enqueuer
	inspector TaskDeleter
	queue     string
	logger    logging.Logger
}

func NewGraceTimer(client Enqueuer, inspector TaskDeleter, logger logging.Logger) *GraceTimer {
	return &GraceTimer{
		client:    client,
		inspector: inspector,
		queue:     DefaultQueue,
		logger:    logger,
	}
}

func graceTaskID(draftID int64) string {
	return fmt.Sprintf("draft-grace-%d", draftID)
}

func (g *GraceTimer) Arm(ctx context.Context, draft *models.Draft, delay time.Duration) error {
	payload, err := json.Marshal(DraftGracePayload{DraftID: draft.ID, OwnerID: draft.OwnerID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDraftGrace, payload)
	_, err = g.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(delay),
		asynq.TaskID(graceTaskID(draft.ID)),
		asynq.Queue(g.queue),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue grace timer: %w", err)
	}

	g.logger.WithFields(logging.Fields{"draft_id": draft.ID, "delay": delay.String()}).Debug("grace timer armed")
	return nil
}

// Cancel removes a pending grace task. A task that already ran or is running is left
// alone; the draft transition guard makes its late firing harmless.
func (g *GraceTimer) Cancel(_ context.Context, draftID int64) error {
	err := g.inspector.DeleteTask(g.queue, graceTaskID(draftID))
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}
