package transfer

type SettingsUpdate struct {
	PlatformUserID     string `json:"platform_user_id" validate:"required,max=128"`
	GraceSeconds       int    `json:"grace_seconds" validate:"omitempty,min=30,max=300"`
	TimeoutAction      string `json:"timeout_action" validate:"omitempty,oneof=post_with_template skip"`
	DefaultTemplate    string `json:"default_template" validate:"max=1000"`
	FallbackWebhookURL string `json:"fallback_webhook_url" validate:"omitempty,url,max=2048"`
}

type SettingsView struct {
	OwnerID               int64  `json:"owner_id"`
	PlatformUserID        string `json:"platform_user_id"`
	GraceSeconds          int    `json:"grace_seconds"`
	TimeoutAction         string `json:"timeout_action"`
	DefaultTemplate       string `json:"default_template"`
	HasFallbackWebhookURL bool   `json:"has_fallback_webhook_url"`
}
