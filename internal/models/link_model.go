package models

import "time"

// Link maps a short code to a target URL. Immutable once created.
// HasMedia suppresses the crawler preview page when the post already carries an image.
type Link struct {
	ID         int64     `db:"id" json:"id"`
	OwnerID    int64     `db:"owner_id" json:"owner_id"`
	ShortCode  string    `db:"short_code" json:"short_code"`
	TargetURL  string    `db:"target_url" json:"target_url"`
	CampaignID *string   `db:"campaign_id" json:"campaign_id,omitempty"`
	StreamID   *int64    `db:"stream_id" json:"stream_id,omitempty"`
	HasMedia   bool      `db:"has_media" json:"has_media"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Click struct {
	ID        int64     `db:"id" json:"id"`
	LinkID    int64     `db:"link_id" json:"link_id"`
	At        time.Time `db:"at" json:"at"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	Referrer  string    `db:"referrer" json:"referrer"`
}
