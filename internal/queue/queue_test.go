package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fakeDeleter struct {
	queue, id string
	err       error
}

func (f *fakeDeleter) DeleteTask(queue, id string) error {
	f.queue, f.id = queue, id
	return f.err
}

type fakeResolver struct {
	ownerID, draftID int64
	trigger          string
	outcome          *service.Outcome
	err              error
}

func (f *fakeResolver) ResolveByTimer(_ context.Context, ownerID, draftID int64, trigger string) (*service.Outcome, error) {
	f.ownerID, f.draftID, f.trigger = ownerID, draftID, trigger
	return f.outcome, f.err
}

func TestArmEnqueuesGraceTask(t *testing.T) {
	enq := &fakeEnqueuer{}
	timer := NewGraceTimer(enq, &fakeDeleter{}, logging.NewDiscardLogger())

	err := timer.Arm(context.Background(), &models.Draft{ID: 7, OwnerID: 3}, 90*time.Second)
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeDraftGrace, enq.tasks[0].Type())

	var payload DraftGracePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, DraftGracePayload{DraftID: 7, OwnerID: 3}, payload)
}

func TestArmTwiceIsNoop(t *testing.T) {
	timer := NewGraceTimer(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, &fakeDeleter{}, logging.NewDiscardLogger())
	assert.NoError(t, timer.Arm(context.Background(), &models.Draft{ID: 7}, time.Second))

	timer = NewGraceTimer(&fakeEnqueuer{err: errors.New("redis down")}, &fakeDeleter{}, logging.NewDiscardLogger())
	assert.Error(t, timer.Arm(context.Background(), &models.Draft{ID: 7}, time.Second))
}

func TestCancelDeletesByTaskID(t *testing.T) {
	del := &fakeDeleter{}
	timer := NewGraceTimer(&fakeEnqueuer{}, del, logging.NewDiscardLogger())

	require.NoError(t, timer.Cancel(context.Background(), 7))
	assert.Equal(t, DefaultQueue, del.queue)
	assert.Equal(t, "draft-grace-7", del.id)

	del.err = asynq.ErrTaskNotFound
	assert.NoError(t, timer.Cancel(context.Background(), 7))
}

func newGraceTask(t *testing.T, draftID, ownerID int64) *asynq.Task {
	payload, err := json.Marshal(DraftGracePayload{DraftID: draftID, OwnerID: ownerID})
	require.NoError(t, err)
	return asynq.NewTask(TaskTypeDraftGrace, payload)
}

func TestHandleDraftGraceTask(t *testing.T) {
	res := &fakeResolver{outcome: &service.Outcome{Draft: &models.Draft{Status: models.DraftStatusPosted}}}
	q := NewQueue(res, logging.NewDiscardLogger())

	require.NoError(t, q.HandleDraftGraceTask(context.Background(), newGraceTask(t, 7, 3)))
	assert.Equal(t, int64(3), res.ownerID)
	assert.Equal(t, int64(7), res.draftID)
	assert.Equal(t, models.ResolvedByTimer, res.trigger)
}

func TestHandleDraftGraceTaskOutcomes(t *testing.T) {
	q := NewQueue(&fakeResolver{outcome: &service.Outcome{AlreadyResolved: true}}, logging.NewDiscardLogger())
	assert.NoError(t, q.HandleDraftGraceTask(context.Background(), newGraceTask(t, 1, 1)))

	q = NewQueue(&fakeResolver{err: service.ErrDraftNotFound}, logging.NewDiscardLogger())
	assert.NoError(t, q.HandleDraftGraceTask(context.Background(), newGraceTask(t, 1, 1)))

	q = NewQueue(&fakeResolver{err: errors.New("db down")}, logging.NewDiscardLogger())
	assert.Error(t, q.HandleDraftGraceTask(context.Background(), newGraceTask(t, 1, 1)))

	err := q.HandleDraftGraceTask(context.Background(), asynq.NewTask(TaskTypeDraftGrace, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
