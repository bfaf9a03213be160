package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"events-tracker/internal/domain"
)

// S3Store keeps attachments in Amazon S3 (or a compatible API). One object per
// event; S3 object replacement is atomic, so readers see either the old or the
// new attachment, never a mix.
type S3Store struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
}

func NewS3Store(client *s3.Client, bucket, keyPrefix string) *S3Store {
	return &S3Store{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *S3Store) key(eventID int64) string {
	if s.keyPrefix == "" {
		return fmt.Sprintf("%d", eventID)
	}
	return fmt.Sprintf("%s/%d", s.keyPrefix, eventID)
}

func (s *S3Store) Put(ctx context.Context, eventID int64, contentType string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(eventID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("upload event image: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, eventID int64) (string, []byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(eventID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", nil, fmt.Errorf("event image %w", domain.ErrNotFound)
		}
		return "", nil, fmt.Errorf("get event image: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read event image: %w", err)
	}
	return aws.ToString(out.ContentType), data, nil
}

func (s *S3Store) Delete(ctx context.Context, eventID int64) error {
	// S3 DeleteObject on a missing key succeeds, which is the idempotency
	// this store promises
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(eventID)),
	})
	if err != nil {
		return fmt.Errorf("delete event image: %w", err)
	}
	return nil
}
