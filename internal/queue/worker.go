package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

func (q *Queue) HandleDraftGraceTask(ctx context.Context, task *asynq.Task) error {
	var payload DraftGracePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode grace payload: %v: %w", err, asynq.SkipRetry)
	}

	log := q.logger.WithFields(logging.Fields{"draft_id": payload.DraftID, "owner_id": payload.OwnerID})

	outcome, err := q.ds.ResolveByTimer(ctx, payload.OwnerID, payload.DraftID, models.ResolvedByTimer)
	if errors.Is(err, service.ErrDraftNotFound) || errors.Is(err, service.ErrOwnerNotFound) {
		log.Warn("grace timer fired for unknown draft")
		return nil
	}
	if err != nil {
		log.WithFields(logging.Fields{"error": err}).Error("grace timer resolution failed")
		return err
	}

	if outcome.AlreadyResolved {
		log.Debug("grace timer fired after draft was resolved")
		return nil
	}
	log.WithFields(logging.Fields{"status": outcome.Draft.Status}).Info("draft resolved by timer")
	return nil
}
