package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filamentproject/filament/internal/domain/match"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// LeadRepository persists run output.  A write failure here is fatal to the
// run: the run is marked incomplete rather than silently emitting a partial
// report, so every error carries ErrCodePersistence.
type LeadRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewLeadRepository constructs a LeadRepository.
func NewLeadRepository(pool *pgxpool.Pool, log logging.Logger) *LeadRepository {
	return &LeadRepository{pool: pool, logger: log.Named("lead_repo")}
}

const insertLead = `
INSERT INTO leads (run_id, remains_id, missing_id,
                   composite, structured, geographic, timeframe, rarity,
                   graph_score, vector_score,
                   shared_tokens, reasons, rich_narrative, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (run_id, remains_id, missing_id) DO NOTHING`

// SaveLeads writes a batch of leads in a single transaction.  Consumers
// gate on the run state, so a run's leads become visible only once the run
// completes.  The insert is idempotent on (run_id, remains_id, missing_id):
// a resumed run may replay the batch that committed just before the crash,
// and the replay must not fail on the primary key.
func (r *LeadRepository) SaveLeads(ctx context.Context, leads []*match.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to begin lead transaction")
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, l := range leads {
		batch.Queue(insertLead,
			l.RunID, l.RemainsID, l.MissingID,
			l.Scores.Composite, l.Scores.Structured, l.Scores.Geographic,
			l.Scores.Timeframe, l.Scores.Rarity,
			l.Scores.Graph, l.Scores.Vector,
			l.SharedTokens, l.Reasons, l.RichNarrative, string(l.Status), l.CreatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to insert leads").
			WithDetail("run_id=" + leads[0].RunID)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to commit lead transaction")
	}

	r.logger.Info("persisted run leads",
		logging.String("run_id", leads[0].RunID),
		logging.Int("count", len(leads)),
	)
	return nil
}

const selectLeadsByRun = `
SELECT run_id, remains_id, missing_id,
       composite, structured, geographic, timeframe, rarity,
       graph_score, vector_score,
       shared_tokens, reasons, rich_narrative, status, created_at
FROM leads
WHERE run_id = $1
ORDER BY composite DESC, rarity DESC, missing_id ASC`

// ListByRun returns a run's leads in output order.
func (r *LeadRepository) ListByRun(ctx context.Context, runID string) ([]*match.Lead, error) {
	rows, err := r.pool.Query(ctx, selectLeadsByRun, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query leads").
			WithDetail("run_id=" + runID)
	}
	defer rows.Close()

	var out []*match.Lead
	for rows.Next() {
		l := &match.Lead{}
		var status string
		if err := rows.Scan(
			&l.RunID, &l.RemainsID, &l.MissingID,
			&l.Scores.Composite, &l.Scores.Structured, &l.Scores.Geographic,
			&l.Scores.Timeframe, &l.Scores.Rarity,
			&l.Scores.Graph, &l.Scores.Vector,
			&l.SharedTokens, &l.Reasons, &l.RichNarrative, &status, &l.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan lead row")
		}
		l.Status = match.LeadStatus(status)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "lead row iteration failed")
	}
	return out, nil
}

// UpdateStatus applies a reviewer-driven status transition, enforcing the
// lead state machine.
func (r *LeadRepository) UpdateStatus(ctx context.Context, runID, remainsID, missingID string, next match.LeadStatus) error {
	var current string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM leads WHERE run_id = $1 AND remains_id = $2 AND missing_id = $3`,
		runID, remainsID, missingID).Scan(&current)
	if err == pgx.ErrNoRows {
		return errors.NotFound("lead not found").
			WithDetail(remainsID + "/" + missingID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read lead status")
	}

	lead := &match.Lead{Status: match.LeadStatus(current)}
	if err := lead.Transition(next); err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE leads SET status = $4 WHERE run_id = $1 AND remains_id = $2 AND missing_id = $3`,
		runID, remainsID, missingID, string(next))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update lead status")
	}
	return nil
}
