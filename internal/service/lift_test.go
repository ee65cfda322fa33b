package service

import (
	"testing"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplesAt(post time.Time, points map[time.Duration]int) []*models.Sample {
	var out []*models.Sample
	for offset, viewers := range points {
		out = append(out, &models.Sample{TakenAt: post.Add(offset), ViewerCount: viewers})
	}
	return out
}

func TestComputeLift(t *testing.T) {
	post := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	samples := samplesAt(post, map[time.Duration]int{
		-4 * time.Minute: 100,
		-2 * time.Minute: 100,
		2 * time.Minute:  150,
		4 * time.Minute:  150,
	})

	r := ComputeLift(samples, post)
	require.NotNil(t, r)
	assert.Equal(t, 100.0, r.Baseline)
	assert.Equal(t, 150.0, r.AfterPost)
	assert.Equal(t, 50.0, r.Lift)
	assert.Equal(t, 50.0, r.LiftPercent)
	assert.Equal(t, 2, r.BeforeCount)
	assert.Equal(t, 2, r.AfterCount)
}

func TestComputeLiftRoundsToWholeViewers(t *testing.T) {
	post := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	samples := samplesAt(post, map[time.Duration]int{
		-4 * time.Minute: 100,
		-2 * time.Minute: 101,
		2 * time.Minute:  150,
	})

	r := ComputeLift(samples, post)
	require.NotNil(t, r)
	assert.Equal(t, 100.5, r.Baseline)
	assert.Equal(t, 49.5, r.RawLift)
	assert.Equal(t, 50.0, r.Lift)
	assert.InDelta(t, 50.0/100.5*100, r.LiftPercent, 1e-9)
}

func TestComputeLiftNeedsBothSides(t *testing.T) {
	post := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	assert.Nil(t, ComputeLift(samplesAt(post, map[time.Duration]int{time.Minute: 10}), post))
	assert.Nil(t, ComputeLift(samplesAt(post, map[time.Duration]int{-time.Minute: 10}), post))
	assert.Nil(t, ComputeLift(nil, post))
}

func TestComputeLiftClampsNegative(t *testing.T) {
	post := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	r := ComputeLift(samplesAt(post, map[time.Duration]int{-time.Minute: 120, time.Minute: 100}), post)
	require.NotNil(t, r)
	assert.Equal(t, -20.0, r.RawLift)
	assert.Equal(t, 0.0, r.Lift)
	assert.Equal(t, 0.0, r.LiftPercent)
}

func TestComputeLiftZeroBaseline(t *testing.T) {
	post := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	r := ComputeLift(samplesAt(post, map[time.Duration]int{-time.Minute: 0, time.Minute: 30}), post)
	require.NotNil(t, r)
	assert.Equal(t, 30.0, r.Lift)
	assert.Equal(t, 0.0, r.LiftPercent)
}

func TestWindowedAndSessionLiftDiffer(t *testing.T) {
	post := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	samples := samplesAt(post, map[time.Duration]int{
		-60 * time.Minute: 10,
		-3 * time.Minute:  100,
		3 * time.Minute:   150,
		90 * time.Minute:  400,
	})

	windowed := ComputeLift(samples, post)
	require.NotNil(t, windowed)
	assert.Equal(t, 100.0, windowed.Baseline)
	assert.Equal(t, 150.0, windowed.AfterPost)

	session := ComputeSessionLift(samples, post)
	require.NotNil(t, session)
	assert.Equal(t, 55.0, session.Baseline)
	assert.Equal(t, 275.0, session.AfterPost)
	assert.Equal(t, 2, session.BeforeCount)
}

func TestSampleAtPostTimeCountsAfter(t *testing.T) {
	post := time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC)
	r := ComputeLift(samplesAt(post, map[time.Duration]int{-time.Minute: 10, 0: 20}), post)
	require.NotNil(t, r)
	assert.Equal(t, 1, r.AfterCount)
	assert.Equal(t, 20.0, r.AfterPost)
}
