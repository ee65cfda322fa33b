package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/liveflow/internal/metrics"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

const maxClickFieldRunes = 512

// ClickSink accepts clicks without blocking the caller.
type ClickSink interface {
	Record(linkID int64, meta RequestMeta)
}

// ClickRecorder writes clicks from a bounded buffer on background workers.
// When the buffer is full the click is dropped.
type ClickRecorder struct {
	cr      repository.ClickRepository
	logger  logging.Logger
	timeout time.Duration
	ch      chan *models.Click

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewClickRecorder(cr repository.ClickRepository, buffer, workers int, logger logging.Logger) *ClickRecorder {
	if buffer <= 0 {
		buffer = 1024
	}
	if workers <= 0 {
		workers = 2
	}
	r := &ClickRecorder{
		cr:      cr,
		logger:  logger,
		timeout: 5 * time.Second,
		ch:      make(chan *models.Click, buffer),
	}
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.run()
	}
	return r
}

func (r *ClickRecorder) Record(linkID int64, meta RequestMeta) {
	click := &models.Click{
		LinkID:    linkID,
		At:        time.Now().UTC(),
		UserAgent: truncateRunes(meta.UserAgent, maxClickFieldRunes),
		Referrer:  truncateRunes(meta.Referrer, maxClickFieldRunes),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.Clicks.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case r.ch <- click:
	default:
		metrics.Clicks.WithLabelValues("dropped").Inc()
		r.logger.WithFields(logging.Fields{"link_id": linkID}).Warn("click buffer full, dropping click")
	}
}

// Close stops accepting clicks and waits for buffered ones to be written.
func (r *ClickRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *ClickRecorder) run() {
	defer r.wg.Done()
	for click := range r.ch {
		r.write(click)
	}
}

func (r *ClickRecorder) write(click *models.Click) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			metrics.Clicks.WithLabelValues("failed").Inc()
			r.logger.WithFields(logging.Fields{"link_id": click.LinkID, "panic": p}).Error("click write panicked")
		}
	}()

	if err := r.cr.Create(ctx, click); err != nil {
		metrics.Clicks.WithLabelValues("failed").Inc()
		r.logger.WithFields(logging.Fields{"link_id": click.LinkID, "error": err}).Error("failed to record click")
		return
	}
	metrics.Clicks.WithLabelValues("recorded").Inc()
}

// truncateRunes drops invalid UTF-8 and caps s at n runes.
func truncateRunes(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
