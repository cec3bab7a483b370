package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
	"github.com/filamentproject/filament/pkg/types/common"
)

// RunRepository records run lifecycle state so that an aborted or incomplete
// run is distinguishable from a completed one.
type RunRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRunRepository constructs a RunRepository.
func NewRunRepository(pool *pgxpool.Pool, log logging.Logger) *RunRepository {
	return &RunRepository{pool: pool, logger: log.Named("run_repo")}
}

// Create records a new run.
func (r *RunRepository) Create(ctx context.Context, info *common.RunInfo) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO runs (run_id, state, corpus_fingerprint, started_at)
		 VALUES ($1, $2, $3, $4)`,
		string(info.RunID), string(info.State), info.CorpusFingerprint, info.StartedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to create run").
			WithDetail("run_id=" + string(info.RunID))
	}
	return nil
}

// SetState transitions a run's lifecycle state.
func (r *RunRepository) SetState(ctx context.Context, runID common.ID, state common.RunState) error {
	var finished *time.Time
	switch state {
	case common.RunStateCompleted, common.RunStateIncomplete, common.RunStateAborted:
		now := time.Now().UTC()
		finished = &now
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE runs SET state = $2, finished_at = $3 WHERE run_id = $1`,
		string(runID), string(state), finished)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to update run state").
			WithDetail("run_id=" + string(runID))
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("run not found").WithDetail(string(runID))
	}
	r.logger.Info("run state changed",
		logging.String("run_id", string(runID)),
		logging.String("state", string(state)),
	)
	return nil
}

// Get returns one run's lifecycle record.
func (r *RunRepository) Get(ctx context.Context, runID common.ID) (*common.RunInfo, error) {
	info := &common.RunInfo{}
	var id, state string
	var finished *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT run_id, state, corpus_fingerprint, started_at, finished_at
		 FROM runs WHERE run_id = $1`, string(runID)).
		Scan(&id, &state, &info.CorpusFingerprint, &info.StartedAt, &finished)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read run").
			WithDetail("run_id=" + string(runID))
	}
	info.RunID = common.ID(id)
	info.State = common.RunState(state)
	if finished != nil {
		info.FinishedAt = *finished
	}
	return info, nil
}
