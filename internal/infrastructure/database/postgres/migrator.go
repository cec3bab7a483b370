package postgres

import (
	"embed"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies all pending schema migrations from the embedded migration
// set.  It is safe to call on every startup; an up-to-date schema is a no-op.
func Migrate(cfg Config, log logging.Logger) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to load embedded migrations")
	}

	dsn := strings.Replace(DSN(cfg), "postgres://", "pgx5://", 1)
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		version, _, _ := m.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations").
			WithDetail("current version " + strconv.Itoa(int(version)))
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Warn("failed to read migration version", logging.Err(err))
	}
	log.Info("database migrations complete",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}
