package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/maheshrc27/liveflow/pkg/logging"
)

// YoutubeViewerClient reads concurrent viewers from a live video's streaming details.
type YoutubeViewerClient struct {
	svc     *youtube.Service
	timeout time.Duration
	cb      circuitbreaker.CircuitBreaker[any]
}

func NewYoutubeViewerClient(ctx context.Context, apiKey string, timeout time.Duration, logger logging.Logger) (*YoutubeViewerClient, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YoutubeViewerClient{
		svc:     svc,
		timeout: timeout,
		cb:      newBreaker("youtube-viewers", logger),
	}, nil
}

// LiveViewerCount treats the stream id as the broadcast's video id.
func (c *YoutubeViewerClient) LiveViewerCount(ctx context.Context, _ string, videoID string) (int, bool, error) {
	type result struct {
		count int
		live  bool
	}
	r, err := call(ctx, c.cb, c.timeout, func(ctx context.Context) (result, error) {
		resp, err := c.svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
		if err != nil {
			return result{}, err
		}
		if len(resp.Items) == 0 || resp.Items[0].LiveStreamingDetails == nil {
			return result{}, nil
		}
		details := resp.Items[0].LiveStreamingDetails
		if details.ActualStartTime == "" || details.ActualEndTime != "" {
			return result{}, nil
		}
		return result{count: int(details.ConcurrentViewers), live: true}, nil
	})
	if err != nil {
		return 0, false, err
	}
	return r.count, r.live, nil
}
