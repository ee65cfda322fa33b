package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/metrics"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

type QuotaDecision struct {
	Allowed  bool   `json:"allowed"`
	DeniedBy string `json:"denied_by,omitempty"`
}

type QuotaStatus struct {
	OwnerLimit     int       `json:"owner_limit"`
	OwnerUsed      int       `json:"owner_used"`
	OwnerRemaining int       `json:"owner_remaining"`
	GlobalLimit    int       `json:"global_limit"`
	GlobalUsed     int       `json:"global_used"`
	WarningLevel   string    `json:"warning_level"`
	ResetOn        time.Time `json:"reset_on"`
}

type QuotaService interface {
	TryConsume(ctx context.Context, ownerID int64, amount int) (QuotaDecision, error)
	Status(ctx context.Context, ownerID int64) (*QuotaStatus, error)
	GlobalWarningLevel(ctx context.Context) (string, error)
	ResetMonthly(ctx context.Context, now time.Time) (int64, error)
	EnsureGlobal(ctx context.Context, now time.Time) error
}

type quotaService struct {
	qr          repository.QuotaRepository
	ownerLimit  int
	globalLimit int
	logger      logging.Logger
	now         func() time.Time
}

func NewQuotaService(qr repository.QuotaRepository, ownerLimit, globalLimit int, logger logging.Logger) QuotaService {
	return &quotaService{
		qr:          qr,
		ownerLimit:  ownerLimit,
		globalLimit: globalLimit,
		logger:      logger,
		now:         time.Now,
	}
}

// WarningLevelFor grades usage of the shared budget.
func WarningLevelFor(used, limit int) string {
	if limit <= 0 {
		return models.WarningCritical
	}
	ratio := float64(used) / float64(limit)
	switch {
	case ratio < 0.6:
		return models.WarningNone
	case ratio < 0.9:
		return models.WarningLow
	default:
		return models.WarningCritical
	}
}

func (s *quotaService) TryConsume(ctx context.Context, ownerID int64, amount int) (QuotaDecision, error) {
	if amount <= 0 {
		return QuotaDecision{Allowed: true}, nil
	}

	allowed, deniedBy, err := s.qr.TryConsume(ctx, ownerID, amount, s.ownerLimit, models.FirstOfNextMonth(s.now()))
	if err != nil {
		return QuotaDecision{}, fmt.Errorf("consume quota: %w", err)
	}
	if !allowed {
		metrics.QuotaDenials.WithLabelValues(deniedBy).Inc()
		s.logger.WithFields(logging.Fields{"owner_id": ownerID, "denied_by": deniedBy}).Info("quota denied")
	}
	return QuotaDecision{Allowed: allowed, DeniedBy: deniedBy}, nil
}

func (s *quotaService) Status(ctx context.Context, ownerID int64) (*QuotaStatus, error) {
	global, err := s.qr.GetGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global quota: %w", err)
	}
	owner, err := s.qr.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load owner quota: %w", err)
	}

	status := &QuotaStatus{
		OwnerLimit:  s.ownerLimit,
		GlobalLimit: s.globalLimit,
		ResetOn:     models.FirstOfNextMonth(s.now()),
	}
	if owner != nil {
		status.OwnerLimit = owner.MonthlyLimit
		status.OwnerUsed = owner.MonthlyUsed
		status.ResetOn = owner.ResetOn
	}
	if global != nil {
		status.GlobalLimit = global.MonthlyLimit
		status.GlobalUsed = global.Used
	}
	status.OwnerRemaining = max(status.OwnerLimit-status.OwnerUsed, 0)
	status.WarningLevel = WarningLevelFor(status.GlobalUsed, status.GlobalLimit)
	return status, nil
}

func (s *quotaService) GlobalWarningLevel(ctx context.Context) (string, error) {
	global, err := s.qr.GetGlobal(ctx)
	if err != nil {
		return "", fmt.Errorf("load global quota: %w", err)
	}
	if global == nil {
		return models.WarningNone, nil
	}
	return WarningLevelFor(global.Used, global.MonthlyLimit), nil
}

// ResetMonthly zeroes every counter whose period has elapsed. Running it twice in the
// same period touches nothing the second time.
func (s *quotaService) ResetMonthly(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := s.qr.ResetExpired(ctx, today, models.FirstOfNextMonth(now))
	if err != nil {
		return 0, fmt.Errorf("reset quotas: %w", err)
	}
	if n > 0 {
		s.logger.WithFields(logging.Fields{"rows": n}).Info("monthly quotas reset")
	}
	return n, nil
}

func (s *quotaService) EnsureGlobal(ctx context.Context, now time.Time) error {
	if err := s.qr.EnsureGlobal(ctx, s.globalLimit, models.FirstOfNextMonth(now)); err != nil {
		return fmt.Errorf("ensure global quota: %w", err)
	}
	return nil
}
