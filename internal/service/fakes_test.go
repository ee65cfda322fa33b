package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
)

type fakeStreamRepo struct {
	mu      sync.Mutex
	nextID  int64
	streams map[int64]*models.Stream
}

func newFakeStreamRepo() *fakeStreamRepo {
	return &fakeStreamRepo{streams: map[int64]*models.Stream{}}
}

func (r *fakeStreamRepo) Create(_ context.Context, s *models.Stream) (*models.Stream, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.streams {
		if existing.OwnerID == s.OwnerID && existing.PlatformStreamID == s.PlatformStreamID {
			c := *existing
			return &c, false, nil
		}
	}
	r.nextID++
	c := *s
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	r.streams[c.ID] = &c
	out := c
	return &out, true, nil
}

func (r *fakeStreamRepo) GetByID(_ context.Context, id int64) (*models.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *fakeStreamRepo) GetByOwner(ctx context.Context, ownerID, id int64) (*models.Stream, error) {
	s, _ := r.GetByID(ctx, id)
	if s == nil || s.OwnerID != ownerID {
		return nil, nil
	}
	return s, nil
}

func (r *fakeStreamRepo) ListActive(_ context.Context) ([]*models.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Stream
	for _, s := range r.streams {
		if s.EndedAt == nil {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeStreamRepo) MarkEnded(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok || s.EndedAt != nil {
		return false, nil
	}
	s.EndedAt = &at
	return true, nil
}

func (r *fakeStreamRepo) RecordSample(_ context.Context, id int64, viewers int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok || s.EndedAt != nil {
		return false, nil
	}
	peak := viewers
	if s.PeakViewerCount != nil && *s.PeakViewerCount > peak {
		peak = *s.PeakViewerCount
	}
	s.PeakViewerCount = &peak
	s.LastSampledAt = &at
	return true, nil
}

type fakeSampleRepo struct {
	mu      sync.Mutex
	samples []*models.Sample
}

func (r *fakeSampleRepo) Create(_ context.Context, s *models.Sample) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	c.ID = int64(len(r.samples) + 1)
	r.samples = append(r.samples, &c)
	return c.ID, nil
}

func (r *fakeSampleRepo) ListByStream(_ context.Context, streamID int64) ([]*models.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Sample
	for _, s := range r.samples {
		if s.StreamID == streamID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeDraftRepo struct {
	mu     sync.Mutex
	nextID int64
	drafts map[int64]*models.Draft
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: map[int64]*models.Draft{}}
}

func (r *fakeDraftRepo) Create(_ context.Context, d *models.Draft) (*models.Draft, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.drafts {
		if existing.StreamID == d.StreamID {
			c := *existing
			return &c, false, nil
		}
	}
	r.nextID++
	c := *d
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	r.drafts[c.ID] = &c
	out := c
	return &out, true, nil
}

func (r *fakeDraftRepo) GetByID(_ context.Context, ownerID, id int64) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.OwnerID != ownerID {
		return nil, nil
	}
	c := *d
	return &c, nil
}

func (r *fakeDraftRepo) GetByStreamID(_ context.Context, streamID int64) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drafts {
		if d.StreamID == streamID {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeDraftRepo) Transition(_ context.Context, ownerID, id int64, status, resolvedBy string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.OwnerID != ownerID || d.Status != models.DraftStatusPending {
		return false, nil
	}
	d.Status = status
	d.ResolvedAt = &at
	d.ResolvedBy = &resolvedBy
	return true, nil
}

func (r *fakeDraftRepo) ListOverdue(_ context.Context, before time.Time, limit int) ([]*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Draft
	for _, d := range r.drafts {
		if d.Status == models.DraftStatusPending && d.GraceDeadline.Before(before) && len(out) < limit {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeDeliveryRepo struct {
	mu         sync.Mutex
	deliveries []*models.Delivery
}

func (r *fakeDeliveryRepo) Insert(_ context.Context, d *models.Delivery) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.deliveries {
		if existing.IdempotencyKey == d.IdempotencyKey {
			return false, nil
		}
	}
	d.ID = int64(len(r.deliveries) + 1)
	d.CreatedAt = time.Now()
	c := *d
	r.deliveries = append(r.deliveries, &c)
	return true, nil
}

func (r *fakeDeliveryRepo) GetByID(_ context.Context, ownerID, id int64) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.deliveries {
		if d.ID == id && d.OwnerID == ownerID {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeDeliveryRepo) GetByIdempotencyKey(_ context.Context, key string) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.deliveries {
		if d.IdempotencyKey == key {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeDeliveryRepo) all() []*models.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Delivery(nil), r.deliveries...)
}

type fakeLinkRepo struct {
	mu       sync.Mutex
	links    map[string]*models.Link
	collide  int // number of Create calls to reject as collisions
	attempts int
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: map[string]*models.Link{}}
}

func (r *fakeLinkRepo) Create(_ context.Context, l *models.Link) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.collide > 0 {
		r.collide--
		return false, nil
	}
	if _, ok := r.links[l.ShortCode]; ok {
		return false, nil
	}
	l.ID = int64(len(r.links) + 1)
	l.CreatedAt = time.Now()
	c := *l
	r.links[l.ShortCode] = &c
	return true, nil
}

func (r *fakeLinkRepo) GetByCode(_ context.Context, code string) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.links[code]; ok {
		c := *l
		return &c, nil
	}
	return nil, nil
}

func (r *fakeLinkRepo) put(l *models.Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[l.ShortCode] = l
}

type fakeClickRepo struct {
	mu     sync.Mutex
	clicks []*models.Click
	err    error
}

func (r *fakeClickRepo) Create(_ context.Context, c *models.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.clicks = append(r.clicks, c)
	return nil
}

func (r *fakeClickRepo) CountByLink(_ context.Context, _ int64, linkID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.clicks {
		if c.LinkID == linkID {
			n++
		}
	}
	return n, nil
}

func (r *fakeClickRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clicks)
}

// fakeQuotaRepo mirrors the guarded-update transaction: both counters move or neither.
type fakeQuotaRepo struct {
	mu     sync.Mutex
	owners map[int64]*models.Quota
	global models.GlobalQuota
	err    error
}

func newFakeQuotaRepo(globalLimit int) *fakeQuotaRepo {
	return &fakeQuotaRepo{
		owners: map[int64]*models.Quota{},
		global: models.GlobalQuota{MonthlyLimit: globalLimit, ResetOn: models.FirstOfNextMonth(time.Now())},
	}
}

func (r *fakeQuotaRepo) TryConsume(_ context.Context, ownerID int64, amount, defaultLimit int, resetOn time.Time) (bool, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, "", r.err
	}
	q, ok := r.owners[ownerID]
	if !ok {
		q = &models.Quota{OwnerID: ownerID, MonthlyLimit: defaultLimit, ResetOn: resetOn}
		r.owners[ownerID] = q
	}
	if q.MonthlyUsed+amount > q.MonthlyLimit {
		return false, models.QuotaDeniedByOwner, nil
	}
	if r.global.Used+amount > r.global.MonthlyLimit {
		return false, models.QuotaDeniedByGlobal, nil
	}
	q.MonthlyUsed += amount
	r.global.Used += amount
	q.GlobalMonthlyUsed = r.global.Used
	return true, "", nil
}

func (r *fakeQuotaRepo) ResetExpired(_ context.Context, today, next time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, q := range r.owners {
		if !q.ResetOn.After(today) {
			q.MonthlyUsed = 0
			q.GlobalMonthlyUsed = 0
			q.ResetOn = next
			n++
		}
	}
	if !r.global.ResetOn.After(today) {
		r.global.Used = 0
		r.global.ResetOn = next
	}
	return n, nil
}

func (r *fakeQuotaRepo) GetByOwner(_ context.Context, ownerID int64) (*models.Quota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.owners[ownerID]; ok {
		c := *q
		return &c, nil
	}
	return nil, nil
}

func (r *fakeQuotaRepo) GetGlobal(_ context.Context) (*models.GlobalQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c := r.global
	return &c, nil
}

func (r *fakeQuotaRepo) EnsureGlobal(_ context.Context, limit int, resetOn time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global.MonthlyLimit = limit
	if r.global.ResetOn.IsZero() {
		r.global.ResetOn = resetOn
	}
	return nil
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings map[int64]*models.Settings
}

func newFakeSettingsRepo(seed ...*models.Settings) *fakeSettingsRepo {
	r := &fakeSettingsRepo{settings: map[int64]*models.Settings{}}
	for _, s := range seed {
		r.settings[s.OwnerID] = s
	}
	return r
}

func (r *fakeSettingsRepo) GetByOwnerID(_ context.Context, ownerID int64) (*models.Settings, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.settings[ownerID]; ok {
		c := *s
		return &c, true, nil
	}
	return nil, false, nil
}

func (r *fakeSettingsRepo) GetByPlatformUserID(_ context.Context, id string) (*models.Settings, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.PlatformUserID == id {
			c := *s
			return &c, true, nil
		}
	}
	return nil, false, nil
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, s *models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.settings[s.OwnerID] = &c
	return nil
}

type fakeRunRepo struct {
	week, month models.RunMetrics
	sinces      []time.Time
}

func (r *fakeRunRepo) Create(context.Context, *models.SamplingRun) error { return nil }

func (r *fakeRunRepo) Aggregate(_ context.Context, since time.Time) (models.RunMetrics, error) {
	r.sinces = append(r.sinces, since)
	if len(r.sinces) == 1 {
		return r.week, nil
	}
	return r.month, nil
}

type fakeTimer struct {
	mu        sync.Mutex
	armed     map[int64]time.Duration
	cancelled []int64
	err       error
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{armed: map[int64]time.Duration{}}
}

func (t *fakeTimer) Arm(_ context.Context, d *models.Draft, delay time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.armed[d.ID] = delay
	return nil
}

func (t *fakeTimer) Cancel(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = append(t.cancelled, id)
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	bodies []string
	media  [][]string
	err    error
}

func (s *fakeSender) Send(_ context.Context, body string, media []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, body)
	s.media = append(s.media, media)
	if s.err != nil {
		return "", s.err
	}
	return "post-1", nil
}

func (s *fakeSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

type fakeWebhook struct {
	mu       sync.Mutex
	urls     []string
	messages []string
}

func (w *fakeWebhook) Send(_ context.Context, url, msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.urls = append(w.urls, url)
	w.messages = append(w.messages, msg)
	return nil
}

type viewerResult struct {
	count int
	live  bool
	err   error
}

type fakeViewers struct {
	mu      sync.Mutex
	results map[string]viewerResult
	calls   int
}

func (v *fakeViewers) LiveViewerCount(_ context.Context, _, streamID string) (int, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	r, ok := v.results[streamID]
	if !ok {
		return 0, false, errors.New("unknown stream")
	}
	return r.count, r.live, r.err
}

type fakeSink struct {
	mu    sync.Mutex
	links []int64
}

func (s *fakeSink) Record(linkID int64, _ RequestMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, linkID)
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

type fakeMedia struct {
	url string
	err error
}

func (m *fakeMedia) Prepare(context.Context, int64, string) (string, error) {
	return m.url, m.err
}
