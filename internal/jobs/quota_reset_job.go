package job

import (
	"context"
	"time"

	"github.com/maheshrc27/liveflow/pkg/logging"
)

type QuotaResetter interface {
	ResetMonthly(ctx context.Context, now time.Time) (int64, error)
}

type QuotaResetJob struct {
	qs     QuotaResetter
	logger logging.Logger
}

func NewQuotaResetJob(qs QuotaResetter, logger logging.Logger) *QuotaResetJob {
	return &QuotaResetJob{qs: qs, logger: logger}
}

func (j *QuotaResetJob) Run() {
	if _, err := j.qs.ResetMonthly(context.Background(), time.Now()); err != nil {
		j.logger.WithFields(logging.Fields{"error": err}).Error("quota reset failed")
	}
}
