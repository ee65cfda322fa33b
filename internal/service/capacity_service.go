package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/repository"
)

type CapacityService interface {
	Recommend(ctx context.Context, now time.Time) (*Recommendation, error)
}

type capacityService struct {
	rr repository.SamplingRunRepository
}

func NewCapacityService(rr repository.SamplingRunRepository) CapacityService {
	return &capacityService{rr: rr}
}

func (s *capacityService) Recommend(ctx context.Context, now time.Time) (*Recommendation, error) {
	week, err := s.rr.Aggregate(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("aggregate 7d runs: %w", err)
	}
	month, err := s.rr.Aggregate(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("aggregate 30d runs: %w", err)
	}
	rec := Recommend(week, month)
	return &rec, nil
}
