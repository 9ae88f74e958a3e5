package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ByLCY/certify/objectstore"
)

// Store persists exported artifacts and returns where they landed.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// LocalStore writes artifacts into a directory.
type LocalStore struct {
	Dir string
}

// Put implements Store.
func (s LocalStore) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid name %q", ErrStoreFailed, name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Join(ErrStoreFailed, err)
	}
	target := filepath.Join(s.Dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", errors.Join(ErrStoreFailed, err)
	}
	return target, nil
}

// S3Store uploads artifacts to a bucket under an optional prefix.
type S3Store struct {
	Client objectstore.Client
	Bucket string
	Prefix string
}

// Put implements Store.
func (s S3Store) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if s.Client == nil || s.Bucket == "" {
		return "", fmt.Errorf("%w: s3 store is not configured", ErrStoreFailed)
	}
	key := path.Join(s.Prefix, name)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", errors.Join(ErrStoreFailed, err)
	}
	return "s3://" + s.Bucket + "/" + key, nil
}
