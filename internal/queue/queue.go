package queue

import (
	"context"

	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

const (
	TaskTypeDraftGrace = "draft:grace"
	DefaultQueue       = "default"
)

type DraftGracePayload struct {
	DraftID int64 `json:"draft_id"`
	OwnerID int64 `json:"owner_id"`
}

// DraftResolver resolves a draft once its grace window has passed.
type DraftResolver interface {
	ResolveByTimer(ctx context.Context, ownerID, draftID int64, trigger string) (*service.Outcome, error)
}

type Queue struct {
	ds     DraftResolver
	logger logging.Logger
}

func NewQueue(ds DraftResolver, logger logging.Logger) *Queue {
	return &Queue{
		ds:     ds,
		logger: logger,
	}
}
