package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"atsfit/internal/config"
	"atsfit/internal/errors"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportArchive stores rendered reports and uploaded resumes in an S3-compatible bucket
type ReportArchive struct {
	client *minio.Client
	bucket string
	logger *errors.Logger
}

// NewReportArchive connects to MinIO and makes sure the bucket exists
func NewReportArchive(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (*ReportArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeStorageFailed, "failed to create minio client", err)
	}

	archive := &ReportArchive{client: client, bucket: cfg.Bucket, logger: logger}
	if err := archive.ensureBucket(ctx, cfg.Location); err != nil {
		return nil, err
	}

	logger.Info("Report archive ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return archive, nil
}

func (a *ReportArchive) ensureBucket(ctx context.Context, location string) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to check bucket", err).
			WithContext("bucket", a.bucket)
	}
	if exists {
		return nil
	}

	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		// Another instance may have created it concurrently
		if exists, errExists := a.client.BucketExists(ctx, a.bucket); errExists == nil && exists {
			return nil
		}
		return errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to create bucket", err).
			WithContext("bucket", a.bucket)
	}
	a.logger.Info("Created bucket", "bucket", a.bucket, "location", location)
	return nil
}

// ReportKey returns reports/<yyyy>/<mm>/<id>.pdf
func ReportKey(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("reports/%04d/%02d/%s.pdf", now.Year(), int(now.Month()), id)
}

// PutReport stores a rendered PDF under a fresh key and returns the key
func (a *ReportArchive) PutReport(ctx context.Context, data []byte) (string, error) {
	key := ReportKey(time.Now().UTC(), uuid.New())
	if err := a.Put(ctx, key, data, "application/pdf"); err != nil {
		return "", err
	}
	return key, nil
}

// Put uploads data under key
func (a *ReportArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to upload object", err).
			WithContext("key", key)
	}
	a.logger.Debug("Uploaded object", "bucket", a.bucket, "key", key, "size", len(data))
	return nil
}

// Get downloads the object stored under key
func (a *ReportArchive) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to get object", err).
			WithContext("key", key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "object not found", err).
				WithContext("key", key)
		}
		return nil, errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to read object", err).
			WithContext("key", key)
	}
	return data, nil
}
