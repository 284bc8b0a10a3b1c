// internal/adapters/storage/s3.go
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ammerola/stocksync/internal/core/ports"
)

// attachment keys embed a fresh uuid, so an object never changes once written
const immutableCaching = "public, max-age=31536000, immutable"

type bucketAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type uploadAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Storage stores transaction photos in an S3 bucket
type S3Storage struct {
	buckets   bucketAPI
	uploader  uploadAPI
	bucket    string
	region    string
	prefix    string
	publicURL string
	logger    *slog.Logger
}

var _ ports.AttachmentStore = (*S3Storage)(nil)

// S3Config holds S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // MinIO or LocalStack
	UsePathStyle    bool
	KeyPrefix       string
	// PublicBaseURL replaces the upload location in returned URLs, for a CDN
	// or proxy in front of the bucket
	PublicBaseURL string
}

// NewS3Storage connects to the bucket, creating it when it does not exist
func NewS3Storage(ctx context.Context, cfg *S3Config, logger *slog.Logger) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	s := newS3Storage(client, manager.NewUploader(client), cfg, logger)
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "S3 storage initialized",
		slog.String("bucket", cfg.Bucket),
		slog.String("region", cfg.Region))
	return s, nil
}

func newS3Storage(buckets bucketAPI, uploader uploadAPI, cfg *S3Config, logger *slog.Logger) *S3Storage {
	return &S3Storage{
		buckets:   buckets,
		uploader:  uploader,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		prefix:    strings.Trim(cfg.KeyPrefix, "/"),
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:    logger.With(slog.String("storage", "s3")),
	}
}

// ensureBucket creates the bucket only when S3 reports it missing. Any other
// HeadBucket failure, such as denied access, is returned as is.
func (s *S3Storage) ensureBucket(ctx context.Context) error {
	_, err := s.buckets.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var missing *types.NotFound
	if !errors.As(err, &missing) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.buckets.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.logger.InfoContext(ctx, "created S3 bucket", slog.String("bucket", s.bucket))
	return nil
}

// Upload stores a photo under key and returns its URL
func (s *S3Storage) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	key = objectKey(s.prefix, key)

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(body),
		ContentType:       aws.String(detectContentType(key, contentType)),
		CacheControl:      aws.String(immutableCaching),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	location := out.Location
	if s.publicURL != "" {
		location = s.publicURL + "/" + key
	}
	s.logger.DebugContext(ctx, "attachment uploaded",
		slog.String("key", key),
		slog.Int("bytes", len(body)))
	return location, nil
}

// objectKey cleans key and places it under prefix. Dot segments cannot climb
// out of the prefix.
func objectKey(prefix, key string) string {
	key = strings.TrimLeft(path.Clean("/"+key), "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func detectContentType(key, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(key)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
