// Package storage persists recordings and question media as opaque objects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
)

// ErrInvalidKey is returned for object keys that escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// Provider stores objects and resolves their public URLs.
type Provider interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New returns the provider selected by STORAGE_DRIVER. MinIO failures fall
// back to local disk so the exam keeps accepting recordings.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) Provider {
	if cfg.StorageDriver == config.StorageMinIO {
		p, err := NewMinIO(ctx, cfg)
		if err == nil {
			log.Info().
				Str("endpoint", cfg.MinIOEndpoint).
				Str("bucket", cfg.MinIOBucket).
				Msg("MinIO storage ready")
			return p
		}
		log.Error().Err(err).Msg("MinIO unavailable, falling back to local storage")
	}
	log.Info().Str("dir", cfg.UploadDir).Msg("Local storage ready")
	return NewLocal(cfg.UploadDir)
}

func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}

// Local writes objects below a directory served at /uploads.
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (p *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(p.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return p.URL(k), nil
}

func (p *Local) Delete(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(p.root, filepath.FromSlash(k)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (p *Local) URL(key string) string {
	return "/uploads/" + strings.TrimPrefix(key, "/")
}

// MinIO stores objects in an S3-compatible bucket.
type MinIO struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIO connects to the bucket, creating it when missing.
func NewMinIO(ctx context.Context, cfg *config.Config) (*MinIO, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	public := strings.TrimRight(cfg.MinIOPublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.MinIOUseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.MinIOEndpoint
	}

	return &MinIO{client: client, bucket: cfg.MinIOBucket, publicURL: public}, nil
}

func (p *MinIO) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = p.client.PutObject(ctx, p.bucket, k, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return p.URL(k), nil
}

func (p *MinIO) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	return p.client.RemoveObject(ctx, p.bucket, k, minio.RemoveObjectOptions{})
}

func (p *MinIO) URL(key string) string {
	return p.publicURL + "/" + p.bucket + "/" + strings.TrimPrefix(key, "/")
}
