package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/liveflow/internal/metrics"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/internal/transfer"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

var idempotencyNamespace = uuid.MustParse("6f1c3f4e-2b7a-5d8e-9c41-7a2e0b5d3f18")

// IdempotencyKey is the delivery key for a draft. Every resolution path for the same
// draft produces the same key.
func IdempotencyKey(draftID int64) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(fmt.Sprintf("draft:%d", draftID))).String()
}

// GraceTimer schedules the automatic resolution of a draft.
type GraceTimer interface {
	Arm(ctx context.Context, draft *models.Draft, delay time.Duration) error
	Cancel(ctx context.Context, draftID int64) error
}

// PostSender publishes to the primary social channel and returns the external post id.
type PostSender interface {
	Send(ctx context.Context, body string, mediaURLs []string) (string, error)
}

// WebhookSender delivers a message to an owner's fallback webhook.
type WebhookSender interface {
	Send(ctx context.Context, webhookURL, message string) error
}

type Outcome struct {
	Draft           *models.Draft    `json:"draft"`
	Delivery        *models.Delivery `json:"delivery,omitempty"`
	AlreadyResolved bool             `json:"already_resolved"`
}

type StreamOnlineResult struct {
	Stream     *models.Stream `json:"stream"`
	Draft      *models.Draft  `json:"draft,omitempty"`
	Duplicate  bool           `json:"duplicate"`
	TimerArmed bool           `json:"timer_armed"`
}

type DraftService interface {
	HandleStreamOnline(ctx context.Context, ev *transfer.StreamOnlineEvent) (*StreamOnlineResult, error)
	CreateDraft(ctx context.Context, stream *models.Stream, title, targetURL string, imageURL *string) (*models.Draft, bool, error)
	ArmGraceTimer(ctx context.Context, draft *models.Draft) error
	GetDraft(ctx context.Context, ownerID, draftID int64) (*models.Draft, error)
	Resolve(ctx context.Context, ownerID, draftID int64, req *transfer.ResolveRequest) (*Outcome, error)
	ResolveByTimer(ctx context.Context, ownerID, draftID int64, trigger string) (*Outcome, error)
}

// DraftDeps collects the collaborators of the draft controller.
type DraftDeps struct {
	Streams    repository.StreamRepository
	Drafts     repository.DraftRepository
	Deliveries repository.DeliveryRepository

	Settings SettingsService
	Quota    QuotaService
	Links    LinkService
	Media    MediaService
	Sampler  SamplingService

	Timer    GraceTimer
	Sender   PostSender
	Fallback WebhookSender
	Notifier DraftNotifier

	// Platform is twitch or youtube, used to derive a target URL when the event has none.
	Platform           string
	FallbackWebhookURL string
	SendTimeout        time.Duration
	Logger             logging.Logger
}

type draftService struct {
	DraftDeps
	now   func() time.Time
	async func(func())
}

func NewDraftService(deps DraftDeps) DraftService {
	if deps.SendTimeout <= 0 {
		deps.SendTimeout = 10 * time.Second
	}
	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(deps.Logger)
	}
	return &draftService{
		DraftDeps: deps,
		now:       time.Now,
		async:     func(fn func()) { go fn() },
	}
}

func (s *draftService) HandleStreamOnline(ctx context.Context, ev *transfer.StreamOnlineEvent) (*StreamOnlineResult, error) {
	owner, err := s.Settings.OwnerForPlatformUser(ctx, ev.BroadcasterUserID)
	if err != nil {
		return nil, err
	}

	startedAt := ev.StartedAt.UTC()
	if startedAt.IsZero() {
		startedAt = s.now().UTC()
	}
	stream, created, err := s.Streams.Create(ctx, &models.Stream{
		OwnerID:          owner.OwnerID,
		PlatformStreamID: ev.ID,
		ChannelID:        ev.BroadcasterUserID,
		Title:            ev.Title,
		StartedAt:        startedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert stream: %w", err)
	}
	log := s.Logger.WithFields(logging.Fields{"owner_id": owner.OwnerID, "stream_id": stream.ID})
	if !created {
		log.Info("duplicate stream online event")
	}

	title := ev.Title
	if title == "" {
		title = stream.Title
	}
	var imageURL *string
	if ev.ThumbnailURL != "" {
		imageURL = &ev.ThumbnailURL
	}
	targetURL := ev.TargetURL
	if targetURL == "" {
		targetURL = channelURL(s.Platform, ev)
	}

	draft, draftCreated, err := s.CreateDraft(ctx, stream, title, targetURL, imageURL)
	if err != nil {
		return nil, err
	}
	result := &StreamOnlineResult{Stream: stream, Draft: draft, Duplicate: !draftCreated}
	if !draftCreated {
		return result, nil
	}

	if err := s.ArmGraceTimer(ctx, draft); err != nil {
		// the reconcile sweep resolves drafts whose timer never fired
		log.WithFields(logging.Fields{"draft_id": draft.ID, "error": err}).Error("failed to arm grace timer")
	} else {
		result.TimerArmed = true
	}

	if err := s.Notifier.DraftCreated(ctx, draft); err != nil {
		log.WithFields(logging.Fields{"draft_id": draft.ID, "error": err}).Warn("draft notification failed")
	}

	if s.Sampler != nil {
		first := stream
		s.async(func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*s.SendTimeout)
			defer cancel()
			if _, err := s.Sampler.SampleStream(sctx, first); err != nil {
				s.Logger.WithFields(logging.Fields{"stream_id": first.ID, "error": err}).Warn("initial sample failed")
			}
		})
	}
	return result, nil
}

// CreateDraft opens the decision window for a stream. A stream has at most one draft;
// a second call returns the existing one with created=false.
func (s *draftService) CreateDraft(ctx context.Context, stream *models.Stream, title, targetURL string, imageURL *string) (*models.Draft, bool, error) {
	settings, _, err := s.Settings.Effective(ctx, stream.OwnerID)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	draft := &models.Draft{
		StreamID:      stream.ID,
		OwnerID:       stream.OwnerID,
		Title:         title,
		TargetURL:     targetURL,
		ImageURL:      imageURL,
		Status:        models.DraftStatusPending,
		TimeoutAction: settings.TimeoutAction,
		GraceDeadline: now.Add(time.Duration(settings.GraceSeconds) * time.Second),
	}
	stored, created, err := s.Drafts.Create(ctx, draft)
	if err != nil {
		return nil, false, fmt.Errorf("create draft: %w", err)
	}
	return stored, created, nil
}

func (s *draftService) ArmGraceTimer(ctx context.Context, draft *models.Draft) error {
	delay := draft.GraceDeadline.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	return s.Timer.Arm(ctx, draft, delay)
}

func (s *draftService) GetDraft(ctx context.Context, ownerID, draftID int64) (*models.Draft, error) {
	draft, err := s.Drafts.GetByID(ctx, ownerID, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	return draft, nil
}

func (s *draftService) Resolve(ctx context.Context, ownerID, draftID int64, req *transfer.ResolveRequest) (*Outcome, error) {
	if req == nil {
		return nil, ErrInvalidAction
	}
	switch req.Action {
	case models.ActionPostWithTemplate, models.ActionSkip:
	case models.ActionPostWithEdits:
		if strings.TrimSpace(req.EditedBody) == "" {
			return nil, ErrEditedBodyRequired
		}
	default:
		return nil, ErrInvalidAction
	}

	draft, err := s.GetDraft(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}

	outcome, err := s.resolve(ctx, draft, req.Action, req.EditedBody, models.ResolvedByUser)
	if err != nil {
		return nil, err
	}
	if !outcome.AlreadyResolved {
		if err := s.Timer.Cancel(ctx, draft.ID); err != nil {
			s.Logger.WithFields(logging.Fields{"draft_id": draft.ID, "error": err}).Debug("grace timer not cancelled")
		}
	}
	return outcome, nil
}

// ResolveByTimer applies the draft's timeout action. trigger is timer or sweep.
func (s *draftService) ResolveByTimer(ctx context.Context, ownerID, draftID int64, trigger string) (*Outcome, error) {
	draft, err := s.GetDraft(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	action := draft.TimeoutAction
	if action != models.ActionSkip {
		action = models.ActionPostWithTemplate
	}
	return s.resolve(ctx, draft, action, "", trigger)
}

func (s *draftService) resolve(ctx context.Context, draft *models.Draft, action, editedBody, by string) (*Outcome, error) {
	if !draft.Pending() {
		metrics.DraftResolutions.WithLabelValues(by, "already_resolved").Inc()
		return &Outcome{Draft: draft, AlreadyResolved: true}, nil
	}

	status := models.DraftStatusPosted
	if action == models.ActionSkip {
		status = models.DraftStatusSkipped
	}

	now := s.now().UTC()
	won, err := s.Drafts.Transition(ctx, draft.OwnerID, draft.ID, status, by, now)
	if err != nil {
		return nil, fmt.Errorf("transition draft: %w", err)
	}
	log := s.Logger.WithFields(logging.Fields{"owner_id": draft.OwnerID, "draft_id": draft.ID, "trigger": by, "action": action})
	if !won {
		metrics.DraftResolutions.WithLabelValues(by, "already_resolved").Inc()
		log.Debug("draft already resolved")
		return &Outcome{Draft: draft, AlreadyResolved: true}, nil
	}

	draft.Status = status
	draft.ResolvedAt = &now
	draft.ResolvedBy = &by
	metrics.DraftResolutions.WithLabelValues(by, status).Inc()
	log.Info("draft resolved")

	var delivery *models.Delivery
	if action == models.ActionSkip {
		delivery, err = s.recordDelivery(ctx, &models.Delivery{
			OwnerID:        draft.OwnerID,
			StreamID:       &draft.StreamID,
			DraftID:        &draft.ID,
			Channel:        models.ChannelPrimarySocial,
			Status:         models.DeliveryStatusSkipped,
			IdempotencyKey: IdempotencyKey(draft.ID),
		})
	} else {
		delivery, err = s.post(ctx, draft, action, editedBody)
		if err != nil {
			// the draft is no longer pending, so the failure must land on its delivery row
			log.WithFields(logging.Fields{"error": err}).Error("delivery aborted before send")
			msg := err.Error()
			delivery, err = s.recordDelivery(ctx, &models.Delivery{
				OwnerID:        draft.OwnerID,
				StreamID:       &draft.StreamID,
				DraftID:        &draft.ID,
				Channel:        models.ChannelPrimarySocial,
				Status:         models.DeliveryStatusFailed,
				IdempotencyKey: IdempotencyKey(draft.ID),
				Error:          &msg,
			})
		}
	}
	if err != nil {
		return nil, err
	}
	return &Outcome{Draft: draft, Delivery: delivery}, nil
}

func (s *draftService) post(ctx context.Context, draft *models.Draft, action, editedBody string) (*models.Delivery, error) {
	log := s.Logger.WithFields(logging.Fields{"owner_id": draft.OwnerID, "draft_id": draft.ID})

	template := models.DefaultTemplate
	webhookURL := s.FallbackWebhookURL
	settings, ownerWebhook, err := s.Settings.Effective(ctx, draft.OwnerID)
	switch {
	case err == nil:
		template = settings.DefaultTemplate
		if ownerWebhook != "" {
			webhookURL = ownerWebhook
		}
	case errors.Is(err, ErrOwnerNotFound):
	default:
		return nil, err
	}

	channel := models.ChannelPrimarySocial
	level, err := s.Quota.GlobalWarningLevel(ctx)
	if err != nil {
		return nil, err
	}
	if level == models.WarningCritical {
		channel = models.ChannelFallbackWebhook
		metrics.QuotaDenials.WithLabelValues(models.WarningCritical).Inc()
		log.Info("global quota critical, using fallback webhook")
	} else {
		decision, err := s.Quota.TryConsume(ctx, draft.OwnerID, 1)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			channel = models.ChannelFallbackWebhook
		}
	}

	var mediaURLs []string
	if channel == models.ChannelPrimarySocial && draft.ImageURL != nil && *draft.ImageURL != "" && s.Media != nil {
		mediaURL, err := s.Media.Prepare(ctx, draft.ID, *draft.ImageURL)
		if err != nil {
			log.WithFields(logging.Fields{"error": err}).Warn("media unavailable, posting without it")
		} else if mediaURL != "" {
			mediaURLs = []string{mediaURL}
		}
	}

	url := draft.TargetURL
	var linkID *int64
	link, err := s.Links.CreateShortLink(ctx, draft.OwnerID, draft.TargetURL, LinkOptions{
		StreamID: &draft.StreamID,
		HasMedia: len(mediaURLs) > 0,
	})
	if err != nil {
		log.WithFields(logging.Fields{"error": err}).Warn("short link unavailable, using target url")
	} else {
		url = s.Links.ShortURL(link.ShortCode)
		linkID = &link.ID
	}

	var body string
	if action == models.ActionPostWithEdits {
		body = editedBody
		if url != draft.TargetURL && draft.TargetURL != "" {
			body = strings.ReplaceAll(body, draft.TargetURL, url)
		}
	} else {
		body = RenderTemplate(template, draft.Title, url)
	}

	delivery := &models.Delivery{
		OwnerID:        draft.OwnerID,
		StreamID:       &draft.StreamID,
		DraftID:        &draft.ID,
		Channel:        channel,
		IdempotencyKey: IdempotencyKey(draft.ID),
		BodyText:       body,
		LinkID:         linkID,
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.SendTimeout)
	started := time.Now()
	var sendErr error
	if channel == models.ChannelPrimarySocial {
		var externalID string
		externalID, sendErr = s.Sender.Send(sendCtx, body, mediaURLs)
		if sendErr == nil && externalID != "" {
			delivery.ExternalPostID = &externalID
		}
	} else if webhookURL == "" {
		sendErr = errors.New("no fallback webhook configured")
	} else {
		sendErr = s.Fallback.Send(sendCtx, webhookURL, body)
	}
	cancel()
	delivery.LatencyMs = time.Since(started).Milliseconds()

	if sendErr != nil {
		msg := sendErr.Error()
		delivery.Status = models.DeliveryStatusFailed
		delivery.Error = &msg
		log.WithFields(logging.Fields{"channel": channel, "error": sendErr}).Error("delivery failed")
	} else {
		delivery.Status = models.DeliveryStatusSent
	}

	return s.recordDelivery(ctx, delivery)
}

// recordDelivery stores d unless a delivery with the same key exists, in which case the
// existing row is returned.
func (s *draftService) recordDelivery(ctx context.Context, d *models.Delivery) (*models.Delivery, error) {
	inserted, err := s.Deliveries.Insert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("insert delivery: %w", err)
	}
	if inserted {
		metrics.Deliveries.WithLabelValues(d.Channel, d.Status).Inc()
		return d, nil
	}
	existing, err := s.Deliveries.GetByIdempotencyKey(ctx, d.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("load delivery: %w", err)
	}
	if existing == nil {
		return d, nil
	}
	return existing, nil
}

// RenderTemplate fills the {title} and {url} placeholders of a post body.
func RenderTemplate(tmpl, title, url string) string {
	if tmpl == "" {
		tmpl = models.DefaultTemplate
	}
	return strings.NewReplacer("{title}", title, "{url}", url).Replace(tmpl)
}

func channelURL(platform string, ev *transfer.StreamOnlineEvent) string {
	switch platform {
	case "youtube":
		return "https://www.youtube.com/watch?v=" + ev.ID
	default:
		login := ev.BroadcasterUserLogin
		if login == "" {
			login = ev.BroadcasterUserID
		}
		return "https://www.twitch.tv/" + strings.ToLower(login)
	}
}
