package artifact

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

// S3Config selects the bucket. Region falls back to the AWS default chain.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
}

// objectPutter is the slice of the S3 client the sink needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads artifacts as JSON objects.
type S3Sink struct {
	client objectPutter
	cfg    S3Config
	logger *slog.Logger
}

// NewS3Sink builds a client from the default AWS configuration chain.
func NewS3Sink(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: empty bucket")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Sink(s3.NewFromConfig(awsCfg), cfg, logger), nil
}

func newS3Sink(client objectPutter, cfg S3Config, logger *slog.Logger) *S3Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Sink{client: client, cfg: cfg, logger: logger}
}

func (s *S3Sink) Put(ctx context.Context, art *entity.DocumentArtifact) (string, error) {
	b, err := encode(art)
	if err != nil {
		return "", err
	}
	key := path.Join(s.cfg.Prefix, Key(art))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.logger.Error("artifact.s3.failed", "bucket", s.cfg.Bucket, "key", key, "error", err)
		return "", fmt.Errorf("put artifact s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	s.logger.Debug("artifact.s3.ok", "bucket", s.cfg.Bucket, "key", key, "records", len(art.Records))
	return "s3://" + s.cfg.Bucket + "/" + key, nil
}
