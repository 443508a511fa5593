// Package s3 implements blob.Store on an S3-compatible backend (AWS S3 or
// MinIO), grounded on the aws-sdk-go-v2 usage pattern.
package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"itemstate/internal/blob"
)

// Config holds explicit construction parameters. In production most of
// this is expected to come from the environment via OpenFromEnv.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional; set for MinIO or another S3-compatible endpoint
	PathStyle bool
}

// Store is a content-addressed blob store backed by a single S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds a Store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = awssdk.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// OpenFromEnv constructs a Store from process environment variables.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("ITEMSTATE_BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("ITEMSTATE_BLOB_S3_BUCKET required for the s3 blob backend")
	}
	return New(ctx, Config{
		Bucket:    bucket,
		Region:    os.Getenv("ITEMSTATE_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("ITEMSTATE_BLOB_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("ITEMSTATE_BLOB_S3_PATH_STYLE"), "true"),
	})
}

// Put buffers value to compute its content hash, then uploads it under that
// key if not already present.
func (s *Store) Put(ctx context.Context, value io.Reader) (string, int64, error) {
	buf, err := io.ReadAll(value)
	if err != nil {
		return "", 0, err
	}
	sum := sha256.Sum256(buf)
	key := hex.EncodeToString(sum[:])

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return key, int64(len(buf)), nil // already stored under this content hash
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(buf),
	}); err != nil {
		return "", 0, err
	}
	return key, int64(len(buf)), nil
}

// Get streams key's object body.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, blob.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

// Delete removes key's object. Deleting an absent key is not an error, per
// S3 DeleteObject semantics.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	return err
}

func isNotFound(err error) bool {
	type statusCoder interface{ HTTPStatusCode() int }
	for e := err; e != nil; {
		if sc, ok := e.(statusCoder); ok {
			return sc.HTTPStatusCode() == http.StatusNotFound
		}
		unwrapper, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = unwrapper.Unwrap()
	}
	return false
}

var _ blob.Store = (*Store)(nil)
