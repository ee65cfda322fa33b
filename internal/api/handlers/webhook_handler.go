package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/internal/transfer"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"github.com/redis/go-redis/v9"
)

const (
	HeaderMessageID   = "X-Webhook-Message-Id"
	HeaderTimestamp   = "X-Webhook-Timestamp"
	HeaderSignature   = "X-Webhook-Signature"
	HeaderMessageType = "X-Webhook-Message-Type"

	maxWebhookAge = 10 * time.Minute
	dedupeTTL     = 10 * time.Minute
)

// MessageDeduper remembers webhook message ids so redeliveries are acknowledged
// without being processed twice.
type MessageDeduper interface {
	FirstSeen(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

type redisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client) MessageDeduper {
	return &redisDeduper{rdb: rdb, ttl: dedupeTTL}
}

func (d *redisDeduper) FirstSeen(ctx context.Context, messageID string) (bool, error) {
	return d.rdb.SetNX(ctx, "webhook:msg:"+messageID, 1, d.ttl).Result()
}

func (d *redisDeduper) Forget(ctx context.Context, messageID string) error {
	return d.rdb.Del(ctx, "webhook:msg:"+messageID).Err()
}

type WebhookHandler struct {
	ds       service.DraftService
	dedupe   MessageDeduper
	secret   []byte
	validate *validator.Validate
	logger   logging.Logger
	now      func() time.Time
}

func NewWebhookHandler(ds service.DraftService, dedupe MessageDeduper, secret string, logger logging.Logger) *WebhookHandler {
	return &WebhookHandler{
		ds:       ds,
		dedupe:   dedupe,
		secret:   []byte(secret),
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Sign computes the signature header value for a webhook delivery.
func Sign(secret []byte, messageID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) verify(c *fiber.Ctx) error {
	messageID := c.Get(HeaderMessageID)
	timestamp := c.Get(HeaderTimestamp)
	signature := c.Get(HeaderSignature)
	if messageID == "" || timestamp == "" || signature == "" {
		return errors.New("missing signature headers")
	}

	sentAt, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return errors.New("invalid timestamp")
	}
	if age := h.now().Sub(sentAt); age > maxWebhookAge || age < -maxWebhookAge {
		return errors.New("stale message")
	}

	expected := Sign(h.secret, messageID, timestamp, c.Body())
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return errors.New("signature mismatch")
	}
	return nil
}

func (h *WebhookHandler) StreamOnline(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		h.logger.WithFields(logging.Fields{"error": err, "ip": c.IP()}).Warn("rejected webhook")
		return errorJSON(c, fiber.StatusForbidden, "Invalid signature")
	}

	var payload transfer.StreamOnlineWebhook
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse json")
	}

	messageID := c.Get(HeaderMessageID)
	switch c.Get(HeaderMessageType) {
	case transfer.WebhookMessageVerification:
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusOK).SendString(payload.Challenge)
	case transfer.WebhookMessageRevocation:
		h.logger.WithFields(logging.Fields{"subscription": payload.Subscription.ID}).Warn("webhook subscription revoked")
		return c.SendStatus(fiber.StatusNoContent)
	}

	if payload.Event == nil {
		return errorJSON(c, fiber.StatusBadRequest, "Missing event")
	}
	if err := h.validate.Struct(payload.Event); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	first, err := h.dedupe.FirstSeen(ctx, messageID)
	if err != nil {
		// without the dedupe store the unique constraints still suppress duplicates
		h.logger.WithFields(logging.Fields{"error": err}).Warn("webhook dedupe unavailable")
		first = true
	}
	if !first {
		return c.SendStatus(fiber.StatusNoContent)
	}

	result, err := h.ds.HandleStreamOnline(ctx, payload.Event)
	if err != nil {
		if errors.Is(err, service.ErrOwnerNotFound) {
			h.logger.WithFields(logging.Fields{"broadcaster": payload.Event.BroadcasterUserID}).Info("stream online for unknown owner")
			return c.SendStatus(fiber.StatusNoContent)
		}
		if ferr := h.dedupe.Forget(ctx, messageID); ferr != nil {
			h.logger.WithFields(logging.Fields{"error": ferr}).Warn("failed to release webhook message id")
		}
		return serviceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}
