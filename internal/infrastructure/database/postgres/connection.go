// Package postgres provides the PostgreSQL connection pool and schema
// migrations for the corpus and lead store.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// Config holds the database connection parameters.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Pool manages the PostgreSQL connection pool.
type Pool struct {
	pool   *pgxpool.Pool
	cfg    Config
	logger logging.Logger
	once   sync.Once
}

// NewPool establishes a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg Config, log logging.Logger) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to parse database config")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create connection pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("connected to PostgreSQL",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName),
	)

	return &Pool{pool: pool, cfg: cfg, logger: log}, nil
}

// Pool returns the underlying pgx pool.
func (p *Pool) Pool() *pgxpool.Pool { return p.pool }

// HealthCheck verifies the database connection status.
func (p *Pool) HealthCheck(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	stat := p.pool.Stat()
	if total := stat.TotalConns(); total > 0 {
		usage := float64(stat.AcquiredConns()) / float64(total)
		if usage > 0.8 {
			p.logger.Warn("high database connection pool usage",
				logging.Int("acquired", int(stat.AcquiredConns())),
				logging.Int("total", int(total)),
				logging.Float64("usage", usage),
			)
		}
	}
	return nil
}

// Close releases the pool.  Safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.pool.Close()
		p.logger.Info("closed PostgreSQL connection pool")
	})
}

// DSN constructs the connection string for cfg.
func DSN(cfg Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.DBName,
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
