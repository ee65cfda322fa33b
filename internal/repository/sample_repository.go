package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maheshrc27/liveflow/internal/models"
)

type SampleRepository interface {
	Create(ctx context.Context, sample *models.Sample) (int64, error)
	ListByStream(ctx context.Context, streamID int64) ([]*models.Sample, error)
}

type sampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) SampleRepository {
	return &sampleRepository{db: db}
}

func (r *sampleRepository) Create(ctx context.Context, sample *models.Sample) (int64, error) {
	query := `INSERT INTO samples (stream_id, taken_at, viewer_count) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, sample.StreamID, sample.TakenAt, sample.ViewerCount).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert sample: %w", err)
	}
	return id, nil
}

func (r *sampleRepository) ListByStream(ctx context.Context, streamID int64) ([]*models.Sample, error) {
	query := `SELECT id, stream_id, taken_at, viewer_count FROM samples WHERE stream_id = $1 ORDER BY taken_at`
	rows, err := r.db.QueryContext(ctx, query, streamID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.Sample
	for rows.Next() {
		var s models.Sample
		if err := rows.Scan(&s.ID, &s.StreamID, &s.TakenAt, &s.ViewerCount); err != nil {
			return nil, err
		}
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}
