package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/liveflow/internal/metrics"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

// ViewerCounter queries the streaming platform for the live audience of a stream.
// live is false once the platform no longer reports the stream.
type ViewerCounter interface {
	LiveViewerCount(ctx context.Context, channelID, platformStreamID string) (count int, live bool, err error)
}

type DeliveryLiftReport struct {
	DeliveryID  int64       `json:"delivery_id"`
	StreamID    *int64      `json:"stream_id"`
	PostedAt    time.Time   `json:"posted_at"`
	SampleCount int         `json:"sample_count"`
	Lift        *LiftResult `json:"lift"`
	SessionLift *LiftResult `json:"session_lift"`
}

type SamplingService interface {
	Sample(ctx context.Context, streamID int64) (*models.Sample, error)
	SampleStream(ctx context.Context, stream *models.Stream) (*models.Sample, error)
	DeliveryLift(ctx context.Context, ownerID, deliveryID int64) (*DeliveryLiftReport, error)
}

type samplingService struct {
	sr      repository.StreamRepository
	smr     repository.SampleRepository
	delr    repository.DeliveryRepository
	viewers ViewerCounter
	timeout time.Duration
	logger  logging.Logger
	now     func() time.Time
}

func NewSamplingService(
	sr repository.StreamRepository,
	smr repository.SampleRepository,
	delr repository.DeliveryRepository,
	viewers ViewerCounter,
	timeout time.Duration,
	logger logging.Logger) SamplingService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &samplingService{
		sr:      sr,
		smr:     smr,
		delr:    delr,
		viewers: viewers,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *samplingService) Sample(ctx context.Context, streamID int64) (*models.Sample, error) {
	stream, err := s.sr.GetByID(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("load stream: %w", err)
	}
	if stream == nil {
		return nil, ErrStreamNotFound
	}
	return s.SampleStream(ctx, stream)
}

// SampleStream records one viewer count for a live stream. A stream the platform no
// longer reports is marked ended and yields no sample. A failed platform query writes
// nothing and is returned so the caller can retry on the next pass.
func (s *samplingService) SampleStream(ctx context.Context, stream *models.Stream) (*models.Sample, error) {
	if stream.Ended() {
		return nil, nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	count, live, err := s.viewers.LiveViewerCount(qctx, stream.ChannelID, stream.PlatformStreamID)
	cancel()
	if err != nil {
		metrics.Samples.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("query viewers for stream %d: %w", stream.ID, err)
	}

	now := s.now().UTC()
	if !live {
		ended, err := s.sr.MarkEnded(ctx, stream.ID, now)
		if err != nil {
			return nil, fmt.Errorf("mark stream ended: %w", err)
		}
		if ended {
			metrics.Samples.WithLabelValues("ended").Inc()
			s.logger.WithFields(logging.Fields{"stream_id": stream.ID}).Info("stream ended")
		}
		return nil, nil
	}

	if count < 0 {
		count = 0
	}
	sample := &models.Sample{StreamID: stream.ID, TakenAt: now, ViewerCount: count}
	id, err := s.smr.Create(ctx, sample)
	if err != nil {
		return nil, fmt.Errorf("insert sample: %w", err)
	}
	sample.ID = id

	if _, err := s.sr.RecordSample(ctx, stream.ID, count, now); err != nil {
		return nil, fmt.Errorf("update stream peak: %w", err)
	}
	metrics.Samples.WithLabelValues("sampled").Inc()
	return sample, nil
}

func (s *samplingService) DeliveryLift(ctx context.Context, ownerID, deliveryID int64) (*DeliveryLiftReport, error) {
	delivery, err := s.delr.GetByID(ctx, ownerID, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("load delivery: %w", err)
	}
	if delivery == nil {
		return nil, ErrDeliveryNotFound
	}

	report := &DeliveryLiftReport{
		DeliveryID: delivery.ID,
		StreamID:   delivery.StreamID,
		PostedAt:   delivery.CreatedAt,
	}
	if delivery.StreamID == nil {
		return report, nil
	}

	samples, err := s.smr.ListByStream(ctx, *delivery.StreamID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	report.SampleCount = len(samples)
	report.Lift = ComputeLift(samples, delivery.CreatedAt)
	report.SessionLift = ComputeSessionLift(samples, delivery.CreatedAt)
	return report, nil
}
