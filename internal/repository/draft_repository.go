package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
)

type DraftRepository interface {
	Create(ctx context.Context, draft *models.Draft) (*models.Draft, bool, error)
	GetByID(ctx context.Context, ownerID, id int64) (*models.Draft, error)
	GetByStreamID(ctx context.Context, streamID int64) (*models.Draft, error)
	Transition(ctx context.Context, ownerID, id int64, status, resolvedBy string, at time.Time) (bool, error)
	ListOverdue(ctx context.Context, before time.Time, limit int) ([]*models.Draft, error)
}

type draftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) DraftRepository {
	return &draftRepository{db: db}
}

const draftColumns = `id, stream_id, owner_id, title, target_url, image_url, status, timeout_action, grace_deadline, created_at, resolved_at, resolved_by`

func scanDraft(row rowScanner) (*models.Draft, error) {
	var d models.Draft
	var imageURL, resolvedBy sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&d.ID, &d.StreamID, &d.OwnerID, &d.Title, &d.TargetURL, &imageURL, &d.Status,
		&d.TimeoutAction, &d.GraceDeadline, &d.CreatedAt, &resolvedAt, &resolvedBy)
	if err != nil {
		return nil, err
	}
	if imageURL.Valid {
		d.ImageURL = &imageURL.String
	}
	if resolvedAt.Valid {
		d.ResolvedAt = &resolvedAt.Time
	}
	if resolvedBy.Valid {
		d.ResolvedBy = &resolvedBy.String
	}
	return &d, nil
}

// Create writes a pending draft. A stream carries at most one draft; a second insert
// for the same stream returns the existing row and false.
func (r *draftRepository) Create(ctx context.Context, draft *models.Draft) (*models.Draft, bool, error) {
	query := `
		INSERT INTO drafts (stream_id, owner_id, title, target_url, image_url, status, timeout_action, grace_deadline)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7)
		ON CONFLICT (stream_id) DO NOTHING
		RETURNING ` + draftColumns

	created, err := scanDraft(r.db.QueryRowContext(ctx, query, draft.StreamID, draft.OwnerID, draft.Title,
		draft.TargetURL, draft.ImageURL, draft.TimeoutAction, draft.GraceDeadline))
	if err == nil {
		return created, true, nil
	}
	if !isNoRows(err) {
		return nil, false, fmt.Errorf("insert draft: %w", err)
	}

	existing, err := r.GetByStreamID(ctx, draft.StreamID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *draftRepository) GetByID(ctx context.Context, ownerID, id int64) (*models.Draft, error) {
	d, err := scanDraft(r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get draft %d: %w", id, err)
	}
	return d, nil
}

func (r *draftRepository) GetByStreamID(ctx context.Context, streamID int64) (*models.Draft, error) {
	d, err := scanDraft(r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE stream_id = $1`, streamID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get draft for stream %d: %w", streamID, err)
	}
	return d, nil
}

// Transition moves a pending draft to a terminal status. It reports false when the
// draft was no longer pending, in which case the caller must not act further.
func (r *draftRepository) Transition(ctx context.Context, ownerID, id int64, status, resolvedBy string, at time.Time) (bool, error) {
	query := `
		UPDATE drafts
		SET status = $3,
			resolved_at = $4,
			resolved_by = $5
		WHERE id = $1 AND owner_id = $2 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, status, at, resolvedBy)
	if err != nil {
		return false, fmt.Errorf("transition draft %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *draftRepository) ListOverdue(ctx context.Context, before time.Time, limit int) ([]*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE status = 'pending' AND grace_deadline < $1 ORDER BY grace_deadline LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
