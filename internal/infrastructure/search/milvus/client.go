// Package milvus wraps the vector store that holds case-description
// embeddings for the optional vector enrichment provider.
package milvus

import (
	"context"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// milvusNewClient is a variable to allow substitution in tests.
var milvusNewClient = client.NewClient

// Config holds the vector-store connection parameters.
type Config struct {
	Addr           string
	User           string
	Password       string
	DBName         string
	ConnectTimeout time.Duration
}

// Client manages the Milvus connection.
type Client struct {
	milvus client.Client
	cfg    Config
	logger logging.Logger
	once   sync.Once
}

// NewClient connects to the vector store.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.InvalidParam("milvus address is required")
	}
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	mc, err := milvusNewClient(connectCtx, client.Config{
		Address:  cfg.Addr,
		Username: cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to connect to milvus")
	}

	log.Info("connected to Milvus",
		logging.String("addr", cfg.Addr),
		logging.String("db", cfg.DBName),
	)
	return &Client{milvus: mc, cfg: cfg, logger: log}, nil
}

// Milvus returns the underlying SDK client.
func (c *Client) Milvus() client.Client { return c.milvus }

// HealthCheck verifies the connection.
func (c *Client) HealthCheck(ctx context.Context) error {
	state, err := c.milvus.CheckHealth(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "milvus health check failed")
	}
	if !state.IsHealthy {
		return errors.New(errors.ErrCodeExternalService, "milvus reports unhealthy")
	}
	return nil
}

// Close releases the connection.  Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		err = c.milvus.Close()
		if err == nil {
			c.logger.Info("closed Milvus connection")
		} else {
			c.logger.Error("failed to close Milvus connection", logging.Err(err))
		}
	})
	return err
}
