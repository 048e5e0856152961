package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService archives raw webhook payloads for the billing audit trail.
type StorageService interface {
	ArchiveEvent(ctx context.Context, eventID string, payload []byte) error
}

type minioStorageService struct {
	client *minio.Client
	bucket string
}

// NewMinioStorageService connects to object storage and ensures the billing
// archive bucket exists.
func NewMinioStorageService(endpoint, accessKey, secretKey string, useSSL bool) (StorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	s := &minioStorageService{client: client, bucket: "sakan-billing-events"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return s, nil
}

func (s *minioStorageService) ArchiveEvent(ctx context.Context, eventID string, payload []byte) error {
	if eventID == "" {
		eventID = fmt.Sprintf("unidentified-%d", time.Now().UnixNano())
	}
	objectName := fmt.Sprintf("%s/%s.json", time.Now().UTC().Format("2006/01/02"), eventID)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}
