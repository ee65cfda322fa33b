package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
)

type StreamRepository interface {
	Create(ctx context.Context, stream *models.Stream) (*models.Stream, bool, error)
	GetByID(ctx context.Context, id int64) (*models.Stream, error)
	GetByOwner(ctx context.Context, ownerID, id int64) (*models.Stream, error)
	ListActive(ctx context.Context) ([]*models.Stream, error)
	MarkEnded(ctx context.Context, id int64, endedAt time.Time) (bool, error)
	RecordSample(ctx context.Context, id int64, viewerCount int, takenAt time.Time) (bool, error)
}

type streamRepository struct {
	db *sql.DB
}

func NewStreamRepository(db *sql.DB) StreamRepository {
	return &streamRepository{db: db}
}

const streamColumns = `id, owner_id, platform_stream_id, channel_id, title, started_at, ended_at, peak_viewer_count, last_sampled_at, created_at`

func scanStream(row rowScanner) (*models.Stream, error) {
	var s models.Stream
	var endedAt, lastSampledAt sql.NullTime
	var peak sql.NullInt64
	err := row.Scan(&s.ID, &s.OwnerID, &s.PlatformStreamID, &s.ChannelID, &s.Title, &s.StartedAt, &endedAt, &peak, &lastSampledAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	if lastSampledAt.Valid {
		s.LastSampledAt = &lastSampledAt.Time
	}
	if peak.Valid {
		p := int(peak.Int64)
		s.PeakViewerCount = &p
	}
	return &s, nil
}

// Create inserts the stream unless the owner already has one with the same platform id.
// The returned bool reports whether a new row was written.
func (r *streamRepository) Create(ctx context.Context, stream *models.Stream) (*models.Stream, bool, error) {
	query := `
		INSERT INTO streams (owner_id, platform_stream_id, channel_id, title, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, platform_stream_id) DO NOTHING
		RETURNING ` + streamColumns

	created, err := scanStream(r.db.QueryRowContext(ctx, query, stream.OwnerID, stream.PlatformStreamID, stream.ChannelID, stream.Title, stream.StartedAt))
	if err == nil {
		return created, true, nil
	}
	if !isNoRows(err) {
		return nil, false, fmt.Errorf("insert stream: %w", err)
	}

	existing, err := scanStream(r.db.QueryRowContext(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE owner_id = $1 AND platform_stream_id = $2`,
		stream.OwnerID, stream.PlatformStreamID))
	if err != nil {
		return nil, false, fmt.Errorf("load existing stream: %w", err)
	}
	return existing, false, nil
}

func (r *streamRepository) GetByID(ctx context.Context, id int64) (*models.Stream, error) {
	s, err := scanStream(r.db.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stream %d: %w", id, err)
	}
	return s, nil
}

func (r *streamRepository) GetByOwner(ctx context.Context, ownerID, id int64) (*models.Stream, error) {
	s, err := scanStream(r.db.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stream %d: %w", id, err)
	}
	return s, nil
}

func (r *streamRepository) ListActive(ctx context.Context) ([]*models.Stream, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+streamColumns+` FROM streams WHERE ended_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active streams: %w", err)
	}
	defer rows.Close()

	var streams []*models.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}
	return streams, rows.Err()
}

// MarkEnded sets ended_at once. A stream that already ended is left untouched.
func (r *streamRepository) MarkEnded(ctx context.Context, id int64, endedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE streams SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`, id, endedAt)
	if err != nil {
		return false, fmt.Errorf("mark stream %d ended: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordSample bumps peak_viewer_count monotonically and stamps last_sampled_at.
func (r *streamRepository) RecordSample(ctx context.Context, id int64, viewerCount int, takenAt time.Time) (bool, error) {
	query := `
		UPDATE streams
		SET peak_viewer_count = GREATEST(COALESCE(peak_viewer_count, 0), $2),
			last_sampled_at = $3
		WHERE id = $1 AND ended_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, viewerCount, takenAt)
	if err != nil {
		return false, fmt.Errorf("record sample on stream %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
