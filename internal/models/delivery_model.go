package models

import "time"

// Delivery is one externally visible post attempt. IdempotencyKey is unique, so a
// retried send for the same draft cannot produce a second row.
type Delivery struct {
	ID             int64     `db:"id" json:"id"`
	OwnerID        int64     `db:"owner_id" json:"owner_id"`
	StreamID       *int64    `db:"stream_id" json:"stream_id,omitempty"`
	DraftID        *int64    `db:"draft_id" json:"draft_id,omitempty"`
	Channel        string    `db:"channel" json:"channel"`
	Status         string    `db:"status" json:"status"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key"`
	ExternalPostID *string   `db:"external_post_id" json:"external_post_id,omitempty"`
	Error          *string   `db:"error" json:"error,omitempty"`
	LatencyMs      int64     `db:"latency_ms" json:"latency_ms"`
	TemplateID     *int64    `db:"template_id" json:"template_id,omitempty"`
	BodyText       string    `db:"body_text" json:"body_text"`
	LinkID         *int64    `db:"link_id" json:"link_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	ChannelPrimarySocial   = "primary_social"
	ChannelFallbackWebhook = "fallback_webhook"
)

const (
	DeliveryStatusQueued  = "queued"
	DeliveryStatusSent    = "sent"
	DeliveryStatusFailed  = "failed"
	DeliveryStatusSkipped = "skipped"
)
