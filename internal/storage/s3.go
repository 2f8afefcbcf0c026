package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sony/gobreaker"
)

// Archiver keeps a copy of every produced artifact.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// S3Config selects the bucket and endpoint for the archive. Static keys are
// optional; without them the default AWS credential chain applies.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads artifacts to an S3-compatible bucket behind a circuit
// breaker, so an unavailable bucket fails fast instead of stalling every job.
type S3Archiver struct {
	client  objectPutter
	bucket  string
	prefix  string
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewS3Archiver builds an archiver from cfg.
func NewS3Archiver(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 archive requires a bucket")
	}

	var client *s3.Client
	if cfg.AccessKeyID != "" {
		opts := s3.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}
		if cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Endpoint)
			opts.UsePathStyle = true
		}
		client = s3.New(opts)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	return newS3Archiver(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3Archiver(client objectPutter, bucket, prefix string, logger *slog.Logger) *S3Archiver {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "s3-archive",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &S3Archiver{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		circuit: cb,
		logger:  logger,
	}
}

// Archive uploads data under prefix/name and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if strings.Contains(name, "..") || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid archive name %q", name)
	}
	key := name
	if a.prefix != "" {
		key = path.Join(a.prefix, name)
	}

	_, err := a.circuit.Execute(func() (interface{}, error) {
		return a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return key, nil
}
