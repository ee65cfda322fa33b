package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/models"
)

type SettingsRepository interface {
	GetByOwnerID(ctx context.Context, ownerID int64) (*models.Settings, bool, error)
	GetByPlatformUserID(ctx context.Context, platformUserID string) (*models.Settings, bool, error)
	Upsert(ctx context.Context, s *models.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

const settingsColumns = `owner_id, platform_user_id, grace_seconds, timeout_action, default_template, fallback_webhook_url, created_at, updated_at`

func scanSettings(row rowScanner) (*models.Settings, error) {
	var s models.Settings
	err := row.Scan(&s.OwnerID, &s.PlatformUserID, &s.GraceSeconds, &s.TimeoutAction, &s.DefaultTemplate,
		&s.FallbackWebhookURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) GetByOwnerID(ctx context.Context, ownerID int64) (*models.Settings, bool, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM owner_settings WHERE owner_id = $1`, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get settings: %w", err)
	}
	return s, true, nil
}

func (r *settingsRepository) GetByPlatformUserID(ctx context.Context, platformUserID string) (*models.Settings, bool, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM owner_settings WHERE platform_user_id = $1`, platformUserID))
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get settings by platform user: %w", err)
	}
	return s, true, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.Settings) error {
	query := `
		INSERT INTO owner_settings (owner_id, platform_user_id, grace_seconds, timeout_action, default_template, fallback_webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id) DO UPDATE
		SET platform_user_id = EXCLUDED.platform_user_id,
			grace_seconds = EXCLUDED.grace_seconds,
			timeout_action = EXCLUDED.timeout_action,
			default_template = EXCLUDED.default_template,
			fallback_webhook_url = EXCLUDED.fallback_webhook_url,
			updated_at = $7
	`
	_, err := r.db.ExecContext(ctx, query, s.OwnerID, s.PlatformUserID, s.GraceSeconds, s.TimeoutAction,
		s.DefaultTemplate, s.FallbackWebhookURL, time.Now())
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
