// Package neo4j wraps the knowledge-graph driver used by the optional graph
// enrichment provider.
package neo4j

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// Config holds graph connection parameters.
type Config struct {
	URI                   string
	User                  string
	Password              string
	Database              string
	MaxConnectionPoolSize int
	ConnectionTimeout     time.Duration
}

// Result abstracts neo4j.ResultWithContext for testability.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Transaction abstracts neo4j.ManagedTransaction.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// Reader runs read transactions against the graph.  Driver implements it;
// tests substitute fakes.
type Reader interface {
	ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error)
}

type stdResult struct {
	res neo4j.ResultWithContext
}

func (r *stdResult) Next(ctx context.Context) bool { return r.res.Next(ctx) }
func (r *stdResult) Record() *neo4j.Record         { return r.res.Record() }
func (r *stdResult) Err() error                    { return r.res.Err() }

type stdTransaction struct {
	tx neo4j.ManagedTransaction
}

func (t *stdTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &stdResult{res: res}, nil
}

// Driver is the high-level graph connection wrapper.
type Driver struct {
	driver neo4j.DriverWithContext
	cfg    Config
	logger logging.Logger
	once   sync.Once
}

// NewDriver connects to the graph and verifies connectivity.
func NewDriver(cfg Config, log logging.Logger) (*Driver, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			} else {
				c.MaxConnectionPoolSize = 50
			}
			if cfg.ConnectionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
			}
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create neo4j driver")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to connect to neo4j")
	}

	log.Info("connected to Neo4j",
		logging.String("uri", cfg.URI),
		logging.String("database", cfg.Database),
	)
	return &Driver{driver: driver, cfg: cfg, logger: log}, nil
}

// ExecuteRead runs work inside a managed read transaction.
func (d *Driver) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	dbName := d.cfg.Database
	if dbName == "" {
		dbName = "neo4j"
	}
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&stdTransaction{tx: tx})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j read failed")
	}
	return result, nil
}

// HealthCheck verifies graph connectivity.
func (d *Driver) HealthCheck(ctx context.Context) error {
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j connectivity check failed")
	}
	return nil
}

// Close releases the driver.  Safe to call more than once.
func (d *Driver) Close() error {
	var err error
	d.once.Do(func() {
		err = d.driver.Close(context.Background())
		if err == nil {
			d.logger.Info("closed Neo4j driver")
		} else {
			d.logger.Error("failed to close Neo4j driver", logging.Err(err))
		}
	})
	return err
}
