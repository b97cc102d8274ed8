package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Backend implements a storage backend using Amazon S3 or a compatible
// service. Credentials come from the default AWS provider chain.
type S3Backend struct {
	client     s3iface.S3API
	bucketName string
	prefix     string
	log        *slog.Logger
}

// NewS3Backend creates a new S3 storage backend. A custom endpoint switches
// to path-style addressing for S3-compatible servers.
func NewS3Backend(bucketName, prefix, region, endpoint string, log *slog.Logger) (*S3Backend, error) {
	if bucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newS3Backend(s3.New(sess), bucketName, prefix, log), nil
}

func newS3Backend(client s3iface.S3API, bucketName, prefix string, log *slog.Logger) *S3Backend {
	if log == nil {
		log = slog.Default()
	}
	return &S3Backend{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
		log:        log,
	}
}

// Put uploads a pass as a private object
func (b *S3Backend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	objectKey, err := b.objectKey(key)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Archived pass to S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(body)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Get downloads an archived pass
func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := b.objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Name returns a unique identifier for this storage backend
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

func (b *S3Backend) objectKey(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if b.prefix == "" {
		return key, nil
	}
	return path.Join(b.prefix, key), nil
}
