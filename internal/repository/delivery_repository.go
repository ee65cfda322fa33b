package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maheshrc27/liveflow/internal/models"
)

type DeliveryRepository interface {
	Insert(ctx context.Context, d *models.Delivery) (bool, error)
	GetByID(ctx context.Context, ownerID, id int64) (*models.Delivery, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Delivery, error)
}

type deliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

const deliveryColumns = `id, owner_id, stream_id, draft_id, channel, status, idempotency_key, external_post_id, error, latency_ms, template_id, body_text, link_id, created_at`

func scanDelivery(row rowScanner) (*models.Delivery, error) {
	var d models.Delivery
	var streamID, draftID, templateID, linkID sql.NullInt64
	var externalID, errText sql.NullString
	err := row.Scan(&d.ID, &d.OwnerID, &streamID, &draftID, &d.Channel, &d.Status, &d.IdempotencyKey,
		&externalID, &errText, &d.LatencyMs, &templateID, &d.BodyText, &linkID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.StreamID = nullInt64Ptr(streamID)
	d.DraftID = nullInt64Ptr(draftID)
	d.TemplateID = nullInt64Ptr(templateID)
	d.LinkID = nullInt64Ptr(linkID)
	if externalID.Valid {
		d.ExternalPostID = &externalID.String
	}
	if errText.Valid {
		d.Error = &errText.String
	}
	return &d, nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// Insert writes the delivery unless one with the same idempotency key exists.
// It fills d.ID and d.CreatedAt and reports whether the row is new.
func (r *deliveryRepository) Insert(ctx context.Context, d *models.Delivery) (bool, error) {
	query := `
		INSERT INTO deliveries (owner_id, stream_id, draft_id, channel, status, idempotency_key,
			external_post_id, error, latency_ms, template_id, body_text, link_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, d.OwnerID, d.StreamID, d.DraftID, d.Channel, d.Status, d.IdempotencyKey,
		d.ExternalPostID, d.Error, d.LatencyMs, d.TemplateID, d.BodyText, d.LinkID).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert delivery: %w", err)
	}
	return true, nil
}

func (r *deliveryRepository) GetByID(ctx context.Context, ownerID, id int64) (*models.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery %d: %w", id, err)
	}
	return d, nil
}

func (r *deliveryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE idempotency_key = $1`, key))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery by key: %w", err)
	}
	return d, nil
}
