// Package storage ships aged reconciliation history to S3-compatible object
// storage before it is purged from the database.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/reconciliation"
	"github.com/restosuite/backend/internal/infrastructure/config"
	"github.com/restosuite/backend/internal/infrastructure/scheduler"
)

// maxArchiveBatch bounds one archival run. Events beyond the bound stay in
// the database and ship on the next run.
const maxArchiveBatch = 10000

// objectChunkSize is how many events go into a single archive object.
const objectChunkSize = 500

var _ scheduler.Archiver = (*S3EventArchiver)(nil)

// S3EventArchiver writes aged reconciliation events as JSON objects to an
// S3-compatible bucket (AWS S3, MinIO, RustFS).
type S3EventArchiver struct {
	client *s3.Client
	events reconciliation.Repository
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3EventArchiver creates an archiver from configuration.
func NewS3EventArchiver(cfg config.ArchiveConfig, events reconciliation.Repository, logger *zap.Logger) (*S3EventArchiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("archive access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("archive secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			if _, err := url.Parse(endpoint); err == nil {
				o.BaseEndpoint = aws.String(endpoint)
				// S3-compatible stores generally need path-style addressing
				o.UsePathStyle = true
			}
		}
	})

	return &S3EventArchiver{
		client: client,
		events: events,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// EnsureBucket creates the archive bucket if it does not exist. NewArchiver
// runs this once at startup.
func (a *S3EventArchiver) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ArchiveEvents ships events created before the cutoff and returns how many
// were written. The caller owns deletion; a partial failure here means the
// unshipped remainder stays in the database.
func (a *S3EventArchiver) ArchiveEvents(ctx context.Context, cutoff time.Time) (int, error) {
	events, err := a.events.FindOlderThan(ctx, cutoff, maxArchiveBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to load events for archival: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	shipped := 0
	for lo := 0; lo < len(events); lo += objectChunkSize {
		hi := lo + objectChunkSize
		if hi > len(events) {
			hi = len(events)
		}
		chunk := events[lo:hi]

		body, err := marshalArchive(chunk)
		if err != nil {
			return shipped, fmt.Errorf("failed to encode archive chunk: %w", err)
		}

		key := a.objectKey(chunk)
		_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/x-ndjson"),
		})
		if err != nil {
			return shipped, fmt.Errorf("failed to write archive object %s: %w", key, err)
		}

		a.logger.Debug("wrote archive object",
			zap.String("key", key),
			zap.Int("events", len(chunk)))
		shipped += len(chunk)
	}

	return shipped, nil
}

// objectKey derives the archive object name from the chunk's oldest event.
// Events are partitioned by creation date for later bulk retrieval.
func (a *S3EventArchiver) objectKey(chunk []reconciliation.Event) string {
	day := chunk[0].CreatedAt.UTC().Format("2006-01-02")
	name := fmt.Sprintf("%s-%s.ndjson", day, uuid.New().String())
	return path.Join(a.prefix, "reconciliation-events", day, name)
}

// archivedEvent is the wire shape of one archived event line.
type archivedEvent struct {
	ID         uuid.UUID       `json:"id"`
	VendorID   uuid.UUID       `json:"vendorId"`
	Type       string          `json:"type"`
	Summary    json.RawMessage `json:"summary"`
	DurationMs int64           `json:"durationMs"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// marshalArchive encodes events as newline-delimited JSON.
func marshalArchive(events []reconciliation.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		e := &events[i]
		line := archivedEvent{
			ID:         e.ID,
			VendorID:   e.VendorID,
			Type:       string(e.Type),
			Summary:    e.Summary,
			DurationMs: e.DurationMs,
			CreatedAt:  e.CreatedAt,
		}
		if err := enc.Encode(line); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// NopArchiver is used when archival is disabled: events are purged without
// being shipped anywhere.
type NopArchiver struct{}

var _ scheduler.Archiver = (*NopArchiver)(nil)

// ArchiveEvents reports zero shipped events.
func (NopArchiver) ArchiveEvents(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

// NewArchiver returns the configured archiver implementation. When archival
// is enabled the bucket is created up front, so the first scheduled run does
// not fail on a missing bucket.
func NewArchiver(ctx context.Context, cfg config.ArchiveConfig, events reconciliation.Repository, logger *zap.Logger) (scheduler.Archiver, error) {
	if !cfg.Enabled {
		return NopArchiver{}, nil
	}
	archiver, err := NewS3EventArchiver(cfg, events, logger)
	if err != nil {
		return nil, err
	}
	if err := archiver.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return archiver, nil
}
