package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/liveflow/internal/metrics"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// StreamSampler takes one viewer sample for a stream.
type StreamSampler interface {
	SampleStream(ctx context.Context, stream *models.Stream) (*models.Sample, error)
}

type SamplingJob struct {
	sr          repository.StreamRepository
	rr          repository.SamplingRunRepository
	sampler     StreamSampler
	concurrency int
	staleAfter  time.Duration
	logger      logging.Logger
	now         func() time.Time
	running     atomic.Bool
}

func NewSamplingJob(
	sr repository.StreamRepository,
	rr repository.SamplingRunRepository,
	sampler StreamSampler,
	concurrency int,
	staleAfter time.Duration,
	logger logging.Logger) *SamplingJob {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &SamplingJob{
		sr:          sr,
		rr:          rr,
		sampler:     sampler,
		concurrency: concurrency,
		staleAfter:  staleAfter,
		logger:      logger,
		now:         time.Now,
	}
}

// Run is the cron entry point. A pass that is still running when the next tick fires
// causes that tick to be skipped.
func (j *SamplingJob) Run() {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("previous sampling run still in progress, skipping")
		return
	}
	defer j.running.Store(false)

	if _, err := j.RunOnce(context.Background()); err != nil {
		j.logger.WithFields(logging.Fields{"error": err}).Error("sampling run failed")
	}
}

// RunOnce samples every active stream and records the pass in sampling_runs.
func (j *SamplingJob) RunOnce(ctx context.Context) (*models.SamplingRun, error) {
	started := j.now()

	streams, err := j.sr.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var live []*models.Stream
	for _, s := range streams {
		if j.staleAfter > 0 && started.Sub(s.LastActivity()) > j.staleAfter {
			ended, err := j.sr.MarkEnded(ctx, s.ID, s.LastActivity())
			if err != nil {
				j.logger.WithFields(logging.Fields{"stream_id": s.ID, "error": err}).Error("failed to end stale stream")
				continue
			}
			if ended {
				metrics.Samples.WithLabelValues("ended").Inc()
				j.logger.WithFields(logging.Fields{"stream_id": s.ID}).Info("stale stream marked ended")
			}
			continue
		}
		live = append(live, s)
	}

	var errCount atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(j.concurrency)
	for _, s := range live {
		s := s
		g.Go(func() error {
			if _, err := j.sampler.SampleStream(ctx, s); err != nil {
				errCount.Add(1)
				j.logger.WithFields(logging.Fields{"stream_id": s.ID, "error": err}).Warn("sample failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := j.now().Sub(started)
	run := &models.SamplingRun{
		StartedAt:   started.UTC(),
		DurationMs:  elapsed.Milliseconds(),
		StreamCount: len(live),
		ErrorCount:  int(errCount.Load()),
	}
	metrics.SamplingRunDuration.Observe(elapsed.Seconds())
	metrics.ActiveStreams.Set(float64(len(live)))

	if err := j.rr.Create(ctx, run); err != nil {
		return run, err
	}

	j.logger.WithFields(logging.Fields{
		"streams":     run.StreamCount,
		"errors":      run.ErrorCount,
		"duration_ms": run.DurationMs,
	}).Info("sampling run complete")
	return run, nil
}
