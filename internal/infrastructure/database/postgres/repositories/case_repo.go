// Package repositories implements the PostgreSQL persistence for cases,
// runs, and leads.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filamentproject/filament/internal/domain/record"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// CaseRepository reads the case corpus.  The engine treats the corpus as a
// read-only snapshot per run; ingestion writes are out of scope.
type CaseRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCaseRepository constructs a CaseRepository.
func NewCaseRepository(pool *pgxpool.Pool, log logging.Logger) *CaseRepository {
	return &CaseRepository{pool: pool, logger: log.Named("case_repo")}
}

const selectCasesBySide = `
SELECT id, sex, age_min, age_max,
       height_cm_min, height_cm_max, weight_kg_min, weight_kg_max,
       ancestry, hair, eyes, lat, lon,
       to_char(case_date, 'YYYY-MM-DD'),
       description, clothing, features, source
FROM cases
WHERE side = $1
ORDER BY id`

// ListBySide returns all raw records of one population, ordered by
// identifier for deterministic corpus snapshots.
func (r *CaseRepository) ListBySide(ctx context.Context, side record.Side) ([]*record.Raw, error) {
	if !side.IsValid() {
		return nil, errors.InvalidParam("unsupported record side: " + string(side))
	}

	rows, err := r.pool.Query(ctx, selectCasesBySide, string(side))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query cases").
			WithDetail("side=" + string(side))
	}
	defer rows.Close()

	var out []*record.Raw
	for rows.Next() {
		raw := &record.Raw{Side: string(side)}
		var source *string
		if err := rows.Scan(
			&raw.ID, &raw.Sex, &raw.AgeMin, &raw.AgeMax,
			&raw.HeightCM, &raw.HeightCMMax, &raw.WeightKG, &raw.WeightKGMax,
			&raw.Ancestry, &raw.Hair, &raw.Eyes, &raw.Lat, &raw.Lon,
			&raw.Date,
			&raw.Description, &raw.Clothing, &raw.Features, &source,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan case row")
		}
		if source != nil {
			raw.Source = *source
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "case row iteration failed")
	}

	r.logger.Debug("loaded case records",
		logging.String("side", string(side)),
		logging.Int("count", len(out)),
	)
	return out, nil
}

// CountBySide returns the number of cases on one side.
func (r *CaseRepository) CountBySide(ctx context.Context, side record.Side) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM cases WHERE side = $1`, string(side)).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count cases")
	}
	return count, nil
}
