package transfer

import "time"

const (
	WebhookMessageNotification = "notification"
	WebhookMessageVerification = "webhook_callback_verification"
	WebhookMessageRevocation   = "revocation"
)

type WebhookSubscription struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// StreamOnlineWebhook is the envelope delivered by the platform event source.
type StreamOnlineWebhook struct {
	Challenge    string              `json:"challenge"`
	Subscription WebhookSubscription `json:"subscription"`
	Event        *StreamOnlineEvent  `json:"event"`
}

type StreamOnlineEvent struct {
	ID                   string    `json:"id" validate:"required,max=128"`
	BroadcasterUserID    string    `json:"broadcaster_user_id" validate:"required,max=128"`
	BroadcasterUserLogin string    `json:"broadcaster_user_login" validate:"max=128"`
	Type                 string    `json:"type"`
	Title                string    `json:"title" validate:"max=300"`
	TargetURL            string    `json:"target_url" validate:"omitempty,url,max=2048"`
	ThumbnailURL         string    `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
	StartedAt            time.Time `json:"started_at"`
}
