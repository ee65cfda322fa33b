package models

import "time"

// Stream is one broadcast session. EndedAt is set once, by the sampler, when the
// platform stops reporting the stream as live.
type Stream struct {
	ID               int64      `db:"id" json:"id"`
	OwnerID          int64      `db:"owner_id" json:"owner_id"`
	PlatformStreamID string     `db:"platform_stream_id" json:"platform_stream_id"`
	ChannelID        string     `db:"channel_id" json:"channel_id"`
	Title            string     `db:"title" json:"title"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	EndedAt          *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	PeakViewerCount  *int       `db:"peak_viewer_count" json:"peak_viewer_count,omitempty"`
	LastSampledAt    *time.Time `db:"last_sampled_at" json:"last_sampled_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

func (s *Stream) Ended() bool {
	return s.EndedAt != nil
}

// LastActivity is the most recent moment the stream was known to be live.
func (s *Stream) LastActivity() time.Time {
	if s.LastSampledAt != nil && s.LastSampledAt.After(s.StartedAt) {
		return *s.LastSampledAt
	}
	return s.StartedAt
}

type Sample struct {
	ID          int64     `db:"id" json:"id"`
	StreamID    int64     `db:"stream_id" json:"stream_id"`
	TakenAt     time.Time `db:"taken_at" json:"taken_at"`
	ViewerCount int       `db:"viewer_count" json:"viewer_count"`
}
