package job

import (
	"context"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/queue"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

const reconcileBatch = 100

// ReconcileJob resolves pending drafts whose grace timer was lost.
type ReconcileJob struct {
	dr     repository.DraftRepository
	ds     queue.DraftResolver
	slack  time.Duration
	logger logging.Logger
	now    func() time.Time
}

func NewReconcileJob(dr repository.DraftRepository, ds queue.DraftResolver, slack time.Duration, logger logging.Logger) *ReconcileJob {
	return &ReconcileJob{
		dr:     dr,
		ds:     ds,
		slack:  slack,
		logger: logger,
		now:    time.Now,
	}
}

func (j *ReconcileJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil {
		j.logger.WithFields(logging.Fields{"error": err}).Error("reconcile sweep failed")
	}
}

// RunOnce returns the number of drafts this sweep resolved.
func (j *ReconcileJob) RunOnce(ctx context.Context) (int, error) {
	overdue, err := j.dr.ListOverdue(ctx, j.now().Add(-j.slack), reconcileBatch)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, d := range overdue {
		outcome, err := j.ds.ResolveByTimer(ctx, d.OwnerID, d.ID, models.ResolvedBySweep)
		if err != nil {
			j.logger.WithFields(logging.Fields{"draft_id": d.ID, "error": err}).Error("sweep failed to resolve draft")
			continue
		}
		if !outcome.AlreadyResolved {
			resolved++
		}
	}
	if resolved > 0 {
		j.logger.WithFields(logging.Fields{"resolved": resolved}).Warn("sweep resolved drafts with missed timers")
	}
	return resolved, nil
}
