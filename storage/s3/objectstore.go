package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectStore implements storage.ObjectStore over an S3-compatible service.
// Containers map to buckets.
type ObjectStore struct {
	client *minio.Client
	logger *slog.Logger
}

var _ storage.ObjectStore = (*ObjectStore)(nil)

// NewObjectStore connects to the configured endpoint.
//
// Returns storage.ObjectStore interface to enforce abstraction.
func NewObjectStore(cfg Config) (storage.ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &ObjectStore{
		client: client,
		logger: slog.Default().With("component", "s3-objectstore"),
	}, nil
}

// Read returns the full content of the object.
func (s *ObjectStore) Read(ctx context.Context, identity core.ObjectIdentity) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, identity.Container, identity.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && respErr.Code == "NoSuchKey" {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 read object: %w", err)
	}
	return content, nil
}

// Write stores content under the identity.
func (s *ObjectStore) Write(ctx context.Context, identity core.ObjectIdentity, content []byte) error {
	_, err := s.client.PutObject(
		ctx,
		identity.Container,
		identity.Path,
		bytes.NewReader(content),
		int64(len(content)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// List returns the identities under a container whose paths start with
// prefix.
func (s *ObjectStore) List(ctx context.Context, container, prefix string) ([]core.ObjectIdentity, error) {
	var identities []core.ObjectIdentity
	for object := range s.client.ListObjects(ctx, container, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", object.Err)
		}
		identities = append(identities, core.ObjectIdentity{Container: container, Path: object.Key})
	}
	return identities, nil
}

// Ping reports whether the endpoint is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		s.logger.Warn("object store unreachable", "err", err)
		return fmt.Errorf("%w: %v", core.ErrUnreachable, err)
	}
	return nil
}
