package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/chronolens/chronolens/internal/bytesize"
)

// Config contains object storage configuration.
type Config struct {
	Endpoint  string `mapstructure:"endpoint"   yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket"     yaml:"bucket"     validate:"required"`
	Region    string `mapstructure:"region"     yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`

	// PartSize controls multipart uploads. Must be between 5MB and 5GB;
	// only the final part of an upload may be smaller. Supports
	// human-readable values like "8MB" or "16Mi". Default: 5MB.
	PartSize bytesize.ByteSize `mapstructure:"part_size" yaml:"part_size,omitempty"`
}

// DefaultPartSize is the multipart part size used when none is configured,
// which is also the S3 minimum for non-final parts.
const DefaultPartSize = 5 * 1024 * 1024

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.PartSize == 0 {
		c.PartSize = DefaultPartSize
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket name is required")
	}
	if c.PartSize < 5*1024*1024 {
		return fmt.Errorf("part size must be at least 5MB, got %d bytes", c.PartSize)
	}
	if c.PartSize > 5*1024*1024*1024 {
		return fmt.Errorf("part size must be at most 5GB, got %d bytes", c.PartSize)
	}
	return nil
}

// S3Store implements Store using Amazon S3 or S3-compatible storage.
//
// Thread safety: the store is safe for concurrent use. Each Upload tracks
// its own part state and must be used from one goroutine at a time.
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	partSize int64
}

// NewS3Client creates an S3 client from configuration parameters.
// Path-style addressing is always used so bucket names never become
// DNS labels (required for MinIO and localhost endpoints).
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token (empty for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return client, nil
}

// NewS3Store creates an S3-backed blob store and ensures the bucket exists,
// creating it if missing.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid object storage configuration: %w", err)
	}

	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := &S3Store{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		partSize: cfg.PartSize.Int64(),
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// PartSize returns the configured multipart part size in bytes.
func (s *S3Store) PartSize() int64 {
	return s.partSize
}

// ensureBucket creates the bucket when it does not exist yet.
func (s *S3Store) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// Get fetches an object. Missing keys return ErrNotFound.
func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}

	obj := &Object{
		Body:        result.Body,
		ContentType: aws.ToString(result.ContentType),
	}
	if result.ContentLength != nil {
		obj.Size = *result.ContentLength
	}
	return obj, nil
}

// Put writes a small object in one request.
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}
	return nil
}

// Delete removes an object. S3 DeleteObject is idempotent, so deleting a
// missing key succeeds.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// PresignGet mints a time-limited GET URL for the key.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %q: %w", key, err)
	}
	return req.URL, nil
}
