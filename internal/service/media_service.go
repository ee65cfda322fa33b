package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	config "github.com/maheshrc27/liveflow/configs"
	"github.com/maheshrc27/liveflow/pkg/logging"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxMediaBytes = 8 << 20

var ErrUnsupportedMedia = errors.New("unsupported media type")

// MediaService copies a draft's preview image into object storage so the post
// references a URL we control.
type MediaService interface {
	Prepare(ctx context.Context, draftID int64, sourceURL string) (string, error)
}

// ObjectUploader is the subset of the S3 client used for uploads.
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type mediaService struct {
	uploader  ObjectUploader
	bucket    string
	publicURL string
	http      *http.Client
	logger    logging.Logger
}

// NewR2Client builds an S3 client pointed at the account's R2 endpoint.
func NewR2Client(ctx context.Context, r2 config.R2) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	}), nil
}

// NewMediaService returns a service that uploads through uploader. A nil uploader
// leaves source URLs untouched.
func NewMediaService(uploader ObjectUploader, bucket, publicURL string, fetchTimeout time.Duration, logger logging.Logger) MediaService {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &mediaService{
		uploader:  uploader,
		bucket:    bucket,
		publicURL: publicURL,
		http:      &http.Client{Timeout: fetchTimeout},
		logger:    logger,
	}
}

func (m *mediaService) Prepare(ctx context.Context, draftID int64, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", nil
	}
	if m.uploader == nil {
		return sourceURL, nil
	}

	data, err := m.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return "", ErrUnsupportedMedia
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("drafts/%d/%s.%s", draftID, id, kind.Extension)

	_, err = m.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
	})
	if err != nil {
		m.logger.WithFields(logging.Fields{"draft_id": draftID, "error": err}).Error("media upload failed")
		return "", fmt.Errorf("upload media: %w", err)
	}

	return m.publicURL + "/" + key, nil
}

func (m *mediaService) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("media exceeds %d bytes", maxMediaBytes)
	}
	return data, nil
}
