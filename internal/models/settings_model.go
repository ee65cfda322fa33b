package models

import "time"

// Settings holds per-owner announcement preferences.
type Settings struct {
	OwnerID            int64     `db:"owner_id" json:"owner_id"`
	PlatformUserID     string    `db:"platform_user_id" json:"platform_user_id"`
	GraceSeconds       int       `db:"grace_seconds" json:"grace_seconds"`
	TimeoutAction      string    `db:"timeout_action" json:"timeout_action"`
	DefaultTemplate    string    `db:"default_template" json:"default_template"`
	FallbackWebhookURL string    `db:"fallback_webhook_url" json:"-"` // encrypted at rest
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

const (
	MinGraceSeconds     = 30
	MaxGraceSeconds     = 300
	DefaultGraceSeconds = 90
)

const DefaultTemplate = "{title} is live now! {url}"

// ClampGrace bounds a grace window to the supported range.
func ClampGrace(seconds int) int {
	switch {
	case seconds <= 0:
		return DefaultGraceSeconds
	case seconds < MinGraceSeconds:
		return MinGraceSeconds
	case seconds > MaxGraceSeconds:
		return MaxGraceSeconds
	}
	return seconds
}
