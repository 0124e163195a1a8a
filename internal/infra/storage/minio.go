package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
)

// Store archives JSON snapshots of persisted scenarios in a MinIO bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	newID      func() uuid.UUID
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region, newID: uuid.New}, nil
}

// Archive uploads rec as JSON and returns the object URL.
func (s *Store) Archive(ctx context.Context, rec *scenario.Record) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := objectKey(rec, s.newID())
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	// URL publik (jika bucket public), kalau private harus generate presigned URL
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucketName, key), nil
}

// Check reports whether the bucket is reachable.
func (s *Store) Check(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s missing", s.bucketName)
	}
	return nil
}

func objectKey(rec *scenario.Record, id uuid.UUID) string {
	t := rec.CreatedAt.UTC()
	return fmt.Sprintf("scenarios/%04d/%02d/%02d/%d-%s.json", t.Year(), t.Month(), t.Day(), rec.ID, id)
}
