package service

import (
	"math"

	"github.com/maheshrc27/liveflow/internal/models"
)

const (
	FreeCap = 50
	HardCap = 200

	// distance in days between the midpoints of the 7 and 30 day windows
	windowMidpointGap = 11.5
)

const (
	TierCritical         = "critical"
	TierMigrateNow       = "migrate-now"
	TierPrepareMigration = "prepare-migration"
	TierFreeOK           = "free-ok"
)

type Recommendation struct {
	Tier           string            `json:"tier"`
	Reason         string            `json:"reason"`
	Plan           string            `json:"plan"`
	MonthlyCostUSD float64           `json:"monthly_cost_usd"`
	Peak           int               `json:"peak"`
	Avg7           float64           `json:"avg_7d"`
	Avg30          float64           `json:"avg_30d"`
	DaysUntilLimit *int              `json:"days_until_limit"`
	Week           models.RunMetrics `json:"week"`
	Month          models.RunMetrics `json:"month"`
}

// Recommend maps sampling load onto a hosting tier. The first matching rule wins.
func Recommend(week, month models.RunMetrics) Recommendation {
	peak := max(week.PeakConcurrent, month.PeakConcurrent)
	avg7 := week.AvgConcurrent
	avg30 := month.AvgConcurrent

	rec := Recommendation{
		Peak:           peak,
		Avg7:           avg7,
		Avg30:          avg30,
		DaysUntilLimit: daysUntilLimit(avg7, avg30),
		Week:           week,
		Month:          month,
	}

	switch {
	case peak >= HardCap:
		rec.Tier = TierCritical
		rec.Reason = "peak concurrent streams reached the hard cap of the shared sampler"
		rec.Plan = "move sampling to dedicated workers and shard streams across them"
		rec.MonthlyCostUSD = 120
	case float64(peak) >= FreeCap || avg7 >= 0.8*FreeCap:
		rec.Tier = TierMigrateNow
		rec.Reason = "load is at or above the free tier limit"
		rec.Plan = "migrate the sampler to the paid tier this week"
		rec.MonthlyCostUSD = 25
	case float64(peak) >= 0.7*FreeCap || avg7 >= 0.6*FreeCap:
		rec.Tier = TierPrepareMigration
		rec.Reason = "load is approaching the free tier limit"
		rec.Plan = "prepare the paid tier configuration and watch the trend"
		rec.MonthlyCostUSD = 0
	default:
		rec.Tier = TierFreeOK
		rec.Reason = "load is comfortably inside the free tier"
		rec.Plan = "no action needed"
		rec.MonthlyCostUSD = 0
	}
	return rec
}

func daysUntilLimit(avg7, avg30 float64) *int {
	growth := (avg7 - avg30) / windowMidpointGap
	if growth <= 0 {
		return nil
	}
	days := int(math.Ceil((FreeCap - avg7) / growth))
	if days < 0 {
		days = 0
	}
	return &days
}
