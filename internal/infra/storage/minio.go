// Package storage mirrors analyses into an S3-compatible bucket as JSON objects:
//
//	users/<owner>/profile.json
//	users/<owner>/analyses/<report>.json
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, classify(err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, classify(err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

func profileKey(ownerID string) string { return path.Join("users", ownerID, "profile.json") }

func reportKey(ownerID, reportID string) string {
	return path.Join("users", ownerID, "analyses", reportID+".json")
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucketName); err != nil {
		return classify(err)
	}
	return nil
}

// UpsertProfile is read-merge-write; objects have no partial update.
// Concurrent upserts for the same owner are last-writer-wins.
func (s *Store) UpsertProfile(ctx context.Context, p mirror.Profile) error {
	key := profileKey(p.OwnerID)

	var stored mirror.Profile
	if _, err := s.getJSON(ctx, key, &stored); err != nil {
		return err
	}
	return s.putJSON(ctx, key, p.Over(stored))
}

func (s *Store) PutReport(ctx context.Context, r mirror.Report) error {
	return s.putJSON(ctx, reportKey(r.OwnerID, r.ReportID), r)
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return false, classify(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, classify(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return classify(err)
}

// classify maps transport failures to mirror.ErrUnavailable. S3 error
// responses (access denied, bad key) stay as they are.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", mirror.ErrUnavailable, err)
	}
	return err
}
