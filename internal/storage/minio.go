package storage

import (
	"context"
	"io"
	"net/http"
	"strings"

	"snapgram/internal/models"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const metaOriginalName = "Original-Name"

// MinioConfig locates an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinioStore keeps files as objects in one bucket, keyed by file ID.
type MinioStore struct {
	cfg    MinioConfig
	client *minio.Client
}

// NewMinioStore creates a client for cfg. It does not contact the server.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{cfg: cfg, client: cl}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *MinioStore) CreateFile(ctx context.Context, upload Upload) (*models.StoredFile, error) {
	id := uuid.NewString()
	info, err := s.client.PutObject(ctx, s.cfg.Bucket, id, upload.Body, upload.Size, minio.PutObjectOptions{
		ContentType:  upload.ContentType,
		UserMetadata: map[string]string{metaOriginalName: upload.Name},
	})
	if err != nil {
		return nil, translateMinioError(err, id)
	}
	return &models.StoredFile{
		ID:          id,
		Bucket:      s.cfg.Bucket,
		Name:        upload.Name,
		ContentType: upload.ContentType,
		SizeBytes:   info.Size,
		CreatedAt:   info.LastModified,
	}, nil
}

func (s *MinioStore) GetFile(ctx context.Context, fileID string) (*models.StoredFile, io.ReadCloser, error) {
	stat, err := s.client.StatObject(ctx, s.cfg.Bucket, fileID, minio.StatObjectOptions{})
	if err != nil {
		return nil, nil, translateMinioError(err, fileID)
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, fileID, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, translateMinioError(err, fileID)
	}
	return &models.StoredFile{
		ID:          fileID,
		Bucket:      s.cfg.Bucket,
		Name:        stat.UserMetadata[metaOriginalName],
		ContentType: stat.ContentType,
		SizeBytes:   stat.Size,
		CreatedAt:   stat.LastModified,
	}, obj, nil
}

// DeleteFile removes the object. S3 deletes are idempotent, so the object is
// stat'ed first to report a missing file as NOT_FOUND.
func (s *MinioStore) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := s.client.StatObject(ctx, s.cfg.Bucket, fileID, minio.StatObjectOptions{}); err != nil {
		return translateMinioError(err, fileID)
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, fileID, minio.RemoveObjectOptions{}); err != nil {
		return translateMinioError(err, fileID)
	}
	return nil
}

func translateMinioError(err error, fileID string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return models.NewNotFoundError("File", fileID)
	}
	return models.NewUnavailableError("storage", err)
}
