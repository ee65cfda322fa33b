package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/internal/transfer"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"github.com/maheshrc27/liveflow/pkg/utils"
)

type SettingsService interface {
	GetSettings(ctx context.Context, ownerID int64) (*transfer.SettingsView, error)
	UpdateSettings(ctx context.Context, ownerID int64, update *transfer.SettingsUpdate) error
	// Effective returns the stored settings with defaults applied, and the decrypted
	// fallback webhook URL.
	Effective(ctx context.Context, ownerID int64) (*models.Settings, string, error)
	OwnerForPlatformUser(ctx context.Context, platformUserID string) (*models.Settings, error)
}

type settingsService struct {
	sr           repository.SettingsRepository
	validate     *validator.Validate
	key          []byte
	defaultGrace int
	logger       logging.Logger
}

func NewSettingsService(sr repository.SettingsRepository, secretKey string, defaultGrace int, logger logging.Logger) SettingsService {
	return &settingsService{
		sr:           sr,
		validate:     validator.New(),
		key:          []byte(secretKey),
		defaultGrace: models.ClampGrace(defaultGrace),
		logger:       logger,
	}
}

func (s *settingsService) GetSettings(ctx context.Context, ownerID int64) (*transfer.SettingsView, error) {
	settings, _, err := s.Effective(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &transfer.SettingsView{
		OwnerID:               settings.OwnerID,
		PlatformUserID:        settings.PlatformUserID,
		GraceSeconds:          settings.GraceSeconds,
		TimeoutAction:         settings.TimeoutAction,
		DefaultTemplate:       settings.DefaultTemplate,
		HasFallbackWebhookURL: settings.FallbackWebhookURL != "",
	}, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, ownerID int64, update *transfer.SettingsUpdate) error {
	if update == nil {
		return errors.New("settings update is required")
	}
	if err := s.validate.Struct(update); err != nil {
		if update.GraceSeconds != 0 && (update.GraceSeconds < models.MinGraceSeconds || update.GraceSeconds > models.MaxGraceSeconds) {
			return ErrInvalidGraceSeconds
		}
		return fmt.Errorf("invalid settings: %w", err)
	}

	current, exists, err := s.sr.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return err
	}
	if !exists {
		current = &models.Settings{OwnerID: ownerID}
	}

	// The binding decides which tenant receives a broadcaster's webhooks. Proof that the
	// caller controls the platform account happens upstream, at login; here the first
	// binding sticks and cannot be moved to another owner.
	if current.PlatformUserID != "" && current.PlatformUserID != update.PlatformUserID {
		return ErrPlatformUserClaimed
	}
	holder, held, err := s.sr.GetByPlatformUserID(ctx, update.PlatformUserID)
	if err != nil {
		return err
	}
	if held && holder.OwnerID != ownerID {
		return ErrPlatformUserClaimed
	}

	current.PlatformUserID = update.PlatformUserID
	if update.GraceSeconds != 0 {
		current.GraceSeconds = update.GraceSeconds
	}
	if update.TimeoutAction != "" {
		current.TimeoutAction = update.TimeoutAction
	}
	if update.DefaultTemplate != "" {
		current.DefaultTemplate = update.DefaultTemplate
	}
	if update.FallbackWebhookURL != "" {
		encrypted, err := utils.Encrypt([]byte(update.FallbackWebhookURL), s.key)
		if err != nil {
			return fmt.Errorf("encrypt webhook url: %w", err)
		}
		current.FallbackWebhookURL = encrypted
	}
	s.applyDefaults(current)

	if err := s.sr.Upsert(ctx, current); err != nil {
		return err
	}
	s.logger.WithFields(logging.Fields{"owner_id": ownerID}).Info("settings updated")
	return nil
}

func (s *settingsService) Effective(ctx context.Context, ownerID int64) (*models.Settings, string, error) {
	settings, exists, err := s.sr.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, "", ErrOwnerNotFound
	}
	s.applyDefaults(settings)

	var webhookURL string
	if settings.FallbackWebhookURL != "" {
		webhookURL, err = utils.Decrypt(settings.FallbackWebhookURL, s.key)
		if err != nil {
			s.logger.WithFields(logging.Fields{"owner_id": ownerID, "error": err}).Warn("unable to decrypt fallback webhook url")
			webhookURL = ""
		}
	}
	return settings, webhookURL, nil
}

func (s *settingsService) OwnerForPlatformUser(ctx context.Context, platformUserID string) (*models.Settings, error) {
	settings, exists, err := s.sr.GetByPlatformUserID(ctx, platformUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOwnerNotFound
	}
	s.applyDefaults(settings)
	return settings, nil
}

func (s *settingsService) applyDefaults(settings *models.Settings) {
	if settings.GraceSeconds == 0 {
		settings.GraceSeconds = s.defaultGrace
	}
	settings.GraceSeconds = models.ClampGrace(settings.GraceSeconds)
	if settings.TimeoutAction != models.ActionPostWithTemplate && settings.TimeoutAction != models.ActionSkip {
		settings.TimeoutAction = models.ActionPostWithTemplate
	}
	if settings.DefaultTemplate == "" {
		settings.DefaultTemplate = models.DefaultTemplate
	}
}
