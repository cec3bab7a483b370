// Package minio stores run report artifacts in object storage.  Each
// finished run produces one JSON report object that investigators can pull
// without touching the database.
package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// objectAPI is the slice of the MinIO SDK the report store needs.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Config holds the object-storage connection parameters.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
}

// Client wraps the SDK client with the configured bucket.
type Client struct {
	api    objectAPI
	cfg    Config
	logger logging.Logger
}

// NewClient connects to object storage and ensures the report bucket exists.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.InvalidParam("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.InvalidParam("minio bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create minio client")
	}

	c := &Client{api: mc, cfg: cfg, logger: log}
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.ensureBucket(ensureCtx); err != nil {
		return nil, err
	}

	log.Info("connected to object storage",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to check report bucket")
	}
	if exists {
		return nil
	}
	err = c.api.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{Region: c.cfg.Region})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create report bucket").
			WithDetail("bucket=" + c.cfg.Bucket)
	}
	return nil
}
