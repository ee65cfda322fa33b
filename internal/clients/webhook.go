package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/maheshrc27/liveflow/pkg/logging"
)

// WebhookClient delivers plain-text messages to chat webhooks (Discord/Slack style).
type WebhookClient struct {
	http    *http.Client
	timeout time.Duration
	cb      circuitbreaker.CircuitBreaker[any]
}

func NewWebhookClient(timeout time.Duration, logger logging.Logger) *WebhookClient {
	return &WebhookClient{
		http:    &http.Client{},
		timeout: timeout,
		cb:      newBreaker("fallback-webhook", logger),
	}
}

func (c *WebhookClient) Send(ctx context.Context, webhookURL, message string) error {
	if webhookURL == "" {
		return errors.New("no fallback webhook configured")
	}
	_, err := call(ctx, c.cb, c.timeout, func(ctx context.Context) (struct{}, error) {
		payload, err := json.Marshal(map[string]string{"content": message, "text": message})
		if err != nil {
			return struct{}{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}
