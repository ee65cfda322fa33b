package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/oauth2"

	"github.com/maheshrc27/liveflow/pkg/logging"
)

type postRequest struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

type postResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// SocialPostClient publishes a post on the primary social channel.
type SocialPostClient struct {
	http     *http.Client
	endpoint string
	timeout  time.Duration
	cb       circuitbreaker.CircuitBreaker[any]
}

func NewSocialPostClient(endpoint, token string, timeout time.Duration, logger logging.Logger) *SocialPostClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &SocialPostClient{
		http:     oauth2.NewClient(context.Background(), src),
		endpoint: endpoint,
		timeout:  timeout,
		cb:       newBreaker("social-post", logger),
	}
}

// Send returns the external post id. Errors carry the upstream message verbatim.
func (c *SocialPostClient) Send(ctx context.Context, body string, mediaURLs []string) (string, error) {
	if c.endpoint == "" {
		return "", errors.New("post api is not configured")
	}
	return call(ctx, c.cb, c.timeout, func(ctx context.Context) (string, error) {
		payload, err := json.Marshal(postRequest{Text: body, MediaURLs: mediaURLs})
		if err != nil {
			return "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var out postResponse
		_ = json.Unmarshal(raw, &out)

		if resp.StatusCode >= 300 {
			if out.Error != "" {
				return "", fmt.Errorf("post rejected (%d): %s", resp.StatusCode, out.Error)
			}
			return "", fmt.Errorf("post rejected (%d)", resp.StatusCode)
		}
		if out.ID == "" {
			return "", errors.New("post api returned no id")
		}
		return out.ID, nil
	})
}
