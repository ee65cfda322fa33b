package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStreams struct {
	mu      sync.Mutex
	streams []*models.Stream
	ended   map[int64]time.Time
}

func (s *stubStreams) Create(context.Context, *models.Stream) (*models.Stream, bool, error) {
	return nil, false, nil
}
func (s *stubStreams) GetByID(context.Context, int64) (*models.Stream, error) { return nil, nil }
func (s *stubStreams) GetByOwner(context.Context, int64, int64) (*models.Stream, error) {
	return nil, nil
}
func (s *stubStreams) ListActive(context.Context) ([]*models.Stream, error) { return s.streams, nil }
func (s *stubStreams) MarkEnded(_ context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended == nil {
		s.ended = map[int64]time.Time{}
	}
	s.ended[id] = at
	return true, nil
}
func (s *stubStreams) RecordSample(context.Context, int64, int, time.Time) (bool, error) {
	return true, nil
}

type stubRuns struct {
	runs []*models.SamplingRun
}

func (r *stubRuns) Create(_ context.Context, run *models.SamplingRun) error {
	r.runs = append(r.runs, run)
	return nil
}
func (r *stubRuns) Aggregate(context.Context, time.Time) (models.RunMetrics, error) {
	return models.RunMetrics{}, nil
}

type stubSampler struct {
	mu      sync.Mutex
	sampled []int64
	failFor map[int64]bool
}

func (s *stubSampler) SampleStream(_ context.Context, stream *models.Stream) (*models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampled = append(s.sampled, stream.ID)
	if s.failFor[stream.ID] {
		return nil, errors.New("platform timeout")
	}
	return &models.Sample{StreamID: stream.ID}, nil
}

func TestSamplingJobRunOnce(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-5 * time.Minute)
	stale := now.Add(-2 * time.Hour)

	streams := &stubStreams{streams: []*models.Stream{
		{ID: 1, StartedAt: now.Add(-time.Hour), LastSampledAt: &recent},
		{ID: 2, StartedAt: now.Add(-10 * time.Minute)},
		{ID: 3, StartedAt: now.Add(-3 * time.Hour), LastSampledAt: &stale},
		{ID: 4, StartedAt: now.Add(-time.Minute)},
	}}
	runs := &stubRuns{}
	sampler := &stubSampler{failFor: map[int64]bool{4: true}}

	j := NewSamplingJob(streams, runs, sampler, 2, 30*time.Minute, logging.NewDiscardLogger())
	j.now = func() time.Time { return now }

	run, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1, 2, 4}, sampler.sampled)
	assert.Equal(t, map[int64]time.Time{3: stale}, streams.ended)
	assert.Equal(t, 3, run.StreamCount)
	assert.Equal(t, 1, run.ErrorCount)
	require.Len(t, runs.runs, 1)
}

type stubDrafts struct {
	overdue []*models.Draft
	before  time.Time
}

func (d *stubDrafts) Create(context.Context, *models.Draft) (*models.Draft, bool, error) {
	return nil, false, nil
}
func (d *stubDrafts) GetByID(context.Context, int64, int64) (*models.Draft, error) { return nil, nil }
func (d *stubDrafts) GetByStreamID(context.Context, int64) (*models.Draft, error)  { return nil, nil }
func (d *stubDrafts) Transition(context.Context, int64, int64, string, string, time.Time) (bool, error) {
	return false, nil
}
func (d *stubDrafts) ListOverdue(_ context.Context, before time.Time, _ int) ([]*models.Draft, error) {
	d.before = before
	return d.overdue, nil
}

type stubResolver struct {
	triggers map[int64]string
	resolved map[int64]bool
}

func (r *stubResolver) ResolveByTimer(_ context.Context, _, draftID int64, trigger string) (*service.Outcome, error) {
	if draftID == 99 {
		return nil, errors.New("db down")
	}
	r.triggers[draftID] = trigger
	return &service.Outcome{AlreadyResolved: r.resolved[draftID]}, nil
}

func TestReconcileJobSweepsOverdueDrafts(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	drafts := &stubDrafts{overdue: []*models.Draft{{ID: 1, OwnerID: 1}, {ID: 2, OwnerID: 1}, {ID: 99, OwnerID: 2}}}
	res := &stubResolver{triggers: map[int64]string{}, resolved: map[int64]bool{2: true}}

	j := NewReconcileJob(drafts, res, 30*time.Second, logging.NewDiscardLogger())
	j.now = func() time.Time { return now }

	n, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, now.Add(-30*time.Second), drafts.before)
	assert.Equal(t, models.ResolvedBySweep, res.triggers[1])
}

type stubResetter struct{ calls int }

func (s *stubResetter) ResetMonthly(context.Context, time.Time) (int64, error) {
	s.calls++
	return 0, nil
}

func TestQuotaResetJob(t *testing.T) {
	r := &stubResetter{}
	NewQuotaResetJob(r, logging.NewDiscardLogger()).Run()
	assert.Equal(t, 1, r.calls)
}
