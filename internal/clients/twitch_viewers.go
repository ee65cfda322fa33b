package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/maheshrc27/liveflow/pkg/logging"
)

const (
	twitchHelixURL = "https://api.twitch.tv/helix"
	twitchTokenURL = "https://id.twitch.tv/oauth2/token"
)

type twitchStreamsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		UserID      string `json:"user_id"`
		Type        string `json:"type"`
		ViewerCount int    `json:"viewer_count"`
	} `json:"data"`
}

// TwitchViewerClient reads live viewer counts from the Helix streams endpoint using an
// app access token.
type TwitchViewerClient struct {
	http     *http.Client
	clientID string
	baseURL  string
	timeout  time.Duration
	cb       circuitbreaker.CircuitBreaker[any]
}

func NewTwitchViewerClient(clientID, clientSecret string, timeout time.Duration, logger logging.Logger) *TwitchViewerClient {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     twitchTokenURL,
	}
	return &TwitchViewerClient{
		http:     cc.Client(context.Background()),
		clientID: clientID,
		baseURL:  twitchHelixURL,
		timeout:  timeout,
		cb:       newBreaker("twitch-viewers", logger),
	}
}

// LiveViewerCount reports whether streamID is still the channel's live broadcast.
// A different live stream on the same channel counts as the old one having ended.
func (c *TwitchViewerClient) LiveViewerCount(ctx context.Context, channelID, streamID string) (int, bool, error) {
	type result struct {
		count int
		live  bool
	}
	r, err := call(ctx, c.cb, c.timeout, func(ctx context.Context) (result, error) {
		endpoint := fmt.Sprintf("%s/streams?user_id=%s", c.baseURL, url.QueryEscape(channelID))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return result{}, err
		}
		req.Header.Set("Client-Id", c.clientID)

		resp, err := c.http.Do(req)
		if err != nil {
			return result{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return result{}, fmt.Errorf("twitch streams returned %d", resp.StatusCode)
		}

		var body twitchStreamsResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return result{}, fmt.Errorf("decode twitch streams: %w", err)
		}
		for _, s := range body.Data {
			if s.ID == streamID && s.Type == "live" {
				return result{count: s.ViewerCount, live: true}, nil
			}
		}
		return result{}, nil
	})
	if err != nil {
		return 0, false, err
	}
	return r.count, r.live, nil
}
