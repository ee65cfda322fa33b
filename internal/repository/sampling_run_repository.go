package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
)

type SamplingRunRepository interface {
	Create(ctx context.Context, run *models.SamplingRun) error
	Aggregate(ctx context.Context, since time.Time) (models.RunMetrics, error)
}

type samplingRunRepository struct {
	db *sql.DB
}

func NewSamplingRunRepository(db *sql.DB) SamplingRunRepository {
	return &samplingRunRepository{db: db}
}

func (r *samplingRunRepository) Create(ctx context.Context, run *models.SamplingRun) error {
	query := `INSERT INTO sampling_runs (started_at, duration_ms, stream_count, error_count) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, run.StartedAt, run.DurationMs, run.StreamCount, run.ErrorCount).Scan(&run.ID); err != nil {
		return fmt.Errorf("insert sampling run: %w", err)
	}
	return nil
}

func (r *samplingRunRepository) Aggregate(ctx context.Context, since time.Time) (models.RunMetrics, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(AVG(stream_count), 0),
			COALESCE(MAX(stream_count), 0),
			COALESCE(AVG(duration_ms), 0),
			COALESCE(MAX(duration_ms), 0),
			COALESCE(AVG(CASE WHEN error_count > 0 THEN 1.0 ELSE 0.0 END), 0)
		FROM sampling_runs
		WHERE started_at >= $1
	`
	var m models.RunMetrics
	err := r.db.QueryRowContext(ctx, query, since).Scan(&m.RunCount, &m.AvgConcurrent, &m.PeakConcurrent,
		&m.AvgExecMs, &m.MaxExecMs, &m.ErrorRate)
	if err != nil {
		return models.RunMetrics{}, fmt.Errorf("aggregate sampling runs: %w", err)
	}
	return m, nil
}
