package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maheshrc27/liveflow/internal/models"
)

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) (bool, error)
	GetByCode(ctx context.Context, code string) (*models.Link, error)
}

type linkRepository struct {
	db *sql.DB
}

func NewLinkRepository(db *sql.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts the link and reports false when the short code is already taken.
func (r *linkRepository) Create(ctx context.Context, link *models.Link) (bool, error) {
	query := `
		INSERT INTO links (owner_id, short_code, target_url, campaign_id, stream_id, has_media)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (short_code) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, link.OwnerID, link.ShortCode, link.TargetURL, link.CampaignID,
		link.StreamID, link.HasMedia).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert link: %w", err)
	}
	return true, nil
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT id, owner_id, short_code, target_url, campaign_id, stream_id, has_media, created_at FROM links WHERE short_code = $1`

	var l models.Link
	var campaignID sql.NullString
	var streamID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, code).Scan(&l.ID, &l.OwnerID, &l.ShortCode, &l.TargetURL,
		&campaignID, &streamID, &l.HasMedia, &l.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get link %q: %w", code, err)
	}
	if campaignID.Valid {
		l.CampaignID = &campaignID.String
	}
	l.StreamID = nullInt64Ptr(streamID)
	return &l, nil
}
