// Package objectstore builds the S3 client shared by the dataset loader and the
// certificate store. Any S3-compatible service works when Endpoint is set.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	ErrInvalidConfig  = errors.New("objectstore: bucket and region are required")
	ErrLoadConfig     = errors.New("objectstore: failed to load aws config")
	ErrInvalidAddress = errors.New("objectstore: invalid s3 address")
)

// Client is the subset of the S3 API used by this module.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config describes the bucket connection.
type Config struct {
	Bucket         string `env:"S3_BUCKET"`
	Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	Endpoint       string `env:"S3_ENDPOINT"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"`
}

// New creates an S3 client from cfg. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*s3.Client, error) {
	if cfg.Region == "" {
		return nil, ErrInvalidConfig
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// ParseAddress splits an s3://bucket/key address.
func ParseAddress(addr string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(addr, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	return bucket, key, nil
}

// IsAddress reports whether src names an S3 object.
func IsAddress(src string) bool {
	return strings.HasPrefix(src, "s3://")
}
