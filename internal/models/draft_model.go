package models

import "time"

type Draft struct {
	ID            int64      `db:"id" json:"id"`
	StreamID      int64      `db:"stream_id" json:"stream_id"`
	OwnerID       int64      `db:"owner_id" json:"owner_id"`
	Title         string     `db:"title" json:"title"`
	TargetURL     string     `db:"target_url" json:"target_url"`
	ImageURL      *string    `db:"image_url" json:"image_url,omitempty"`
	Status        string     `db:"status" json:"status"` // pending, posted, skipped
	TimeoutAction string     `db:"timeout_action" json:"timeout_action"`
	GraceDeadline time.Time  `db:"grace_deadline" json:"grace_deadline"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy    *string    `db:"resolved_by" json:"resolved_by,omitempty"`
}

const (
	DraftStatusPending = "pending"
	DraftStatusPosted  = "posted"
	DraftStatusSkipped = "skipped"
)

const (
	ActionPostWithTemplate = "post_with_template"
	ActionPostWithEdits    = "post_with_edits"
	ActionSkip             = "skip"
)

const (
	ResolvedByUser  = "user"
	ResolvedByTimer = "timer"
	ResolvedBySweep = "sweep"
)

func (d *Draft) Pending() bool {
	return d.Status == DraftStatusPending
}
