// Package redis provides the run-checkpoint store.  A matching run records
// how far through the remains corpus it has progressed so an aborted run can
// resume instead of starting over.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// Config holds the checkpoint-store connection parameters.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Client manages the Redis connection.
type Client struct {
	rdb    redis.UniversalClient
	logger logging.Logger
	once   sync.Once
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(cfg Config, log logging.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.InvalidParam("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to connect to redis")
	}

	log.Info("connected to Redis", logging.String("addr", cfg.Addr))
	return &Client{rdb: rdb, logger: log}, nil
}

// Redis returns the underlying client.
func (c *Client) Redis() redis.UniversalClient { return c.rdb }

// HealthCheck verifies the connection.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "redis health check failed")
	}
	return nil
}

// Close releases the connection.  Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		err = c.rdb.Close()
		if err == nil {
			c.logger.Info("closed Redis connection")
		} else {
			c.logger.Error("failed to close Redis connection", logging.Err(err))
		}
	})
	return err
}
