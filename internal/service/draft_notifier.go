package service

import (
	"context"

	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

// DraftNotifier tells the owner a draft is waiting for a decision.
type DraftNotifier interface {
	DraftCreated(ctx context.Context, draft *models.Draft) error
}

type logNotifier struct {
	logger logging.Logger
}

// NewLogNotifier returns a notifier that only logs. Delivery to a dashboard or push
// channel lives outside this service.
func NewLogNotifier(logger logging.Logger) DraftNotifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) DraftCreated(_ context.Context, draft *models.Draft) error {
	n.logger.WithFields(logging.Fields{
		"owner_id":       draft.OwnerID,
		"draft_id":       draft.ID,
		"stream_id":      draft.StreamID,
		"grace_deadline": draft.GraceDeadline,
		"timeout_action": draft.TimeoutAction,
	}).Info("draft awaiting decision")
	return nil
}
