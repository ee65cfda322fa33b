package service

import (
	"math"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
)

// LiftWindow bounds the samples compared on either side of a post.
const LiftWindow = 5 * time.Minute

type LiftResult struct {
	Baseline    float64 `json:"baseline"`
	AfterPost   float64 `json:"after_post"`
	RawLift     float64 `json:"raw_lift"`
	Lift        float64 `json:"lift"`
	LiftPercent float64 `json:"lift_percent"`
	BeforeCount int     `json:"before_count"`
	AfterCount  int     `json:"after_count"`
}

// ComputeLift compares mean viewers in the window before a post with the window after it.
// Samples taken exactly at postTime count as after. Returns nil when either side is empty.
func ComputeLift(samples []*models.Sample, postTime time.Time) *LiftResult {
	from := postTime.Add(-LiftWindow)
	to := postTime.Add(LiftWindow)
	return computeLift(samples, postTime, func(s *models.Sample) bool {
		return !s.TakenAt.Before(from) && !s.TakenAt.After(to)
	})
}

// ComputeSessionLift is ComputeLift over the whole stream session.
func ComputeSessionLift(samples []*models.Sample, postTime time.Time) *LiftResult {
	return computeLift(samples, postTime, func(*models.Sample) bool { return true })
}

func computeLift(samples []*models.Sample, postTime time.Time, include func(*models.Sample) bool) *LiftResult {
	var beforeSum, afterSum, beforeN, afterN int
	for _, s := range samples {
		if s == nil || !include(s) {
			continue
		}
		if s.TakenAt.Before(postTime) {
			beforeSum += s.ViewerCount
			beforeN++
		} else {
			afterSum += s.ViewerCount
			afterN++
		}
	}
	if beforeN == 0 || afterN == 0 {
		return nil
	}

	r := &LiftResult{
		Baseline:    float64(beforeSum) / float64(beforeN),
		AfterPost:   float64(afterSum) / float64(afterN),
		BeforeCount: beforeN,
		AfterCount:  afterN,
	}
	// Lift is reported in whole viewers; RawLift keeps the unrounded difference.
	r.RawLift = r.AfterPost - r.Baseline
	r.Lift = max(math.Round(r.RawLift), 0)
	if r.Baseline > 0 {
		r.LiftPercent = r.Lift / r.Baseline * 100
	}
	return r
}
