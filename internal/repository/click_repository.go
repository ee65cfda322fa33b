package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maheshrc27/liveflow/internal/models"
)

type ClickRepository interface {
	Create(ctx context.Context, click *models.Click) error
	CountByLink(ctx context.Context, ownerID, linkID int64) (int64, error)
}

type clickRepository struct {
	db *sql.DB
}

func NewClickRepository(db *sql.DB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Create(ctx context.Context, click *models.Click) error {
	query := `INSERT INTO clicks (link_id, at, user_agent, referrer) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, click.LinkID, click.At, click.UserAgent, click.Referrer); err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

func (r *clickRepository) CountByLink(ctx context.Context, ownerID, linkID int64) (int64, error) {
	query := `
		SELECT COUNT(c.id)
		FROM clicks c
		JOIN links l ON l.id = c.link_id
		WHERE c.link_id = $1 AND l.owner_id = $2
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, linkID, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return n, nil
}
