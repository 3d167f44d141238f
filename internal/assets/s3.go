package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Config describes an S3-compatible bucket (AWS S3, MinIO, R2, ...).
type S3Config struct {
	Endpoint        string
	Bucket          string
	// Prefix is prepended to every object key and public URL.
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL is the public address of the bucket root. When empty it
	// is derived from Endpoint or the AWS virtual-hosted URL.
	PublicBaseURL string
}

// Validate checks if the configuration is valid.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3 assets: bucket is required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return errors.New("s3 assets: access_key_id and secret_access_key must be set together")
	}
	return nil
}

func (c S3Config) region() string {
	if c.Region == "" {
		return "us-east-1"
	}
	return c.Region
}

func (c S3Config) baseURL() string {
	base := c.PublicBaseURL
	switch {
	case base != "":
	case c.Endpoint != "":
		base = joinURL(c.Endpoint, c.Bucket)
	default:
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.region())
	}
	if c.Prefix == "" {
		return base
	}
	return joinURL(base, c.Prefix)
}

func (c S3Config) key(path string) string {
	if c.Prefix == "" {
		return path
	}
	return c.Prefix + "/" + path
}

// S3Store uploads assets to an S3-compatible bucket.
type S3Store struct {
	cfg      S3Config
	uploader *manager.Uploader
	logger   zerolog.Logger
}

// NewS3Store builds an S3 client from cfg.
func NewS3Store(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.region()),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 assets: load config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("s3 assets: invalid endpoint %q: %w", cfg.Endpoint, err)
		}
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Store{
		cfg:      cfg,
		uploader: manager.NewUploader(client),
		logger:   logger.With().Str("component", "s3_assets").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

// Upload stores body under path.
func (s *S3Store) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.key(path)),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", path, err)
	}

	s.logger.Debug().Str("key", s.cfg.key(path)).Str("location", out.Location).Msg("asset stored")
	return nil
}

// PublicURL returns the public address of path.
func (s *S3Store) PublicURL(path string) string {
	return joinURL(s.cfg.baseURL(), path)
}
