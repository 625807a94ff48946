package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// MinIOConfig holds connection settings for the document bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOConfigFromEnv reads MINIO_* variables. ok is false when no endpoint is set.
func MinIOConfigFromEnv() (cfg MinIOConfig, ok bool) {
	cfg = MinIOConfig{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    os.Getenv("MINIO_BUCKET"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "invoices"
	}
	return cfg, cfg.Endpoint != ""
}

// MinIOStore is a DocumentStore backed by an S3-compatible bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	log    logrus.FieldLogger
}

// NewMinIOStore connects to MinIO and verifies the bucket exists.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig, log logrus.FieldLogger) (*MinIOStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Verify bucket exists
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	log.WithFields(logrus.Fields{"endpoint": cfg.Endpoint, "bucket": cfg.Bucket}).Info("MinIO document store ready")
	return &MinIOStore{client: client, bucket: cfg.Bucket, log: log}, nil
}

func (s *MinIOStore) Put(ctx context.Context, obj Object) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(obj.Key), bytes.NewReader(obj.Data), int64(len(obj.Data)), minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: obj.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload document: %w", err)
	}
	return nil
}

func (s *MinIOStore) Get(ctx context.Context, key string) (*Object, error) {
	name := s.objectName(key)
	o, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(err)
	}
	defer o.Close()

	info, err := o.Stat()
	if err != nil {
		return nil, s.mapErr(err)
	}
	data, err := io.ReadAll(o)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return &Object{
		Key:         key,
		ContentType: info.ContentType,
		Data:        data,
		Metadata:    info.UserMetadata,
	}, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	name := s.objectName(key)
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		return s.mapErr(err)
	}
	return s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}

func (s *MinIOStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", info.Err)
		}
		keys = append(keys, info.Key)
	}
	return keys, nil
}

// PresignedURL generates a presigned URL for viewing a document
func (s *MinIOStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	url, err := s.client.PresignedGetObject(ctx, s.bucket, s.objectName(key), expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// objectName removes the bucket prefix if present
func (s *MinIOStore) objectName(key string) string {
	return strings.TrimPrefix(key, s.bucket+"/")
}

func (s *MinIOStore) mapErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
