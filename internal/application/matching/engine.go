// Package matching orchestrates batch matching runs: corpus snapshot, index
// build, parallel per-remains-case scoring, checkpointing, and emission of
// the ranked leads to the configured sinks.
package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/filamentproject/filament/internal/domain/index"
	"github.com/filamentproject/filament/internal/domain/match"
	"github.com/filamentproject/filament/internal/domain/record"
	"github.com/filamentproject/filament/internal/infrastructure/database/redis"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/prometheus"
	"github.com/filamentproject/filament/pkg/errors"
	"github.com/filamentproject/filament/pkg/types/common"
)

// CorpusSource loads raw records for one side of the corpus.
type CorpusSource interface {
	ListBySide(ctx context.Context, side record.Side) ([]*record.Raw, error)
}

// RunStore tracks run lifecycle state.
type RunStore interface {
	Create(ctx context.Context, info *common.RunInfo) error
	SetState(ctx context.Context, runID common.ID, state common.RunState) error
	Get(ctx context.Context, runID common.ID) (*common.RunInfo, error)
}

// LeadSink persists batches of leads atomically and reads back a run's
// persisted set, which a resumed run needs to rebuild its full output.
type LeadSink interface {
	SaveLeads(ctx context.Context, leads []*match.Lead) error
	ListByRun(ctx context.Context, runID string) ([]*match.Lead, error)
}

// CheckpointStore saves resume offsets.  Optional; a nil store disables
// resumption.
type CheckpointStore interface {
	Save(ctx context.Context, cp redis.Checkpoint) error
	Load(ctx context.Context, runID string) (*redis.Checkpoint, error)
	Clear(ctx context.Context, runID string) error
}

// LeadPublisher pushes finished leads to the notification topic.  Optional.
type LeadPublisher interface {
	PublishLeads(ctx context.Context, leads []match.Lead) error
}

// ReportSink stores the run report artifact.  Optional.
type ReportSink interface {
	SaveReport(ctx context.Context, runID string, report []byte) (string, error)
}

// Dependencies collects the engine's collaborators.  Cases, Runs and Leads
// are required; everything else degrades gracefully when nil.
type Dependencies struct {
	Cases       CorpusSource
	Runs        RunStore
	Leads       LeadSink
	Checkpoints CheckpointStore
	Publisher   LeadPublisher
	Reports     ReportSink
	Graph       match.GraphScorer
	Vector      match.VectorScorer
	Metrics     *prometheus.Metrics
	Logger      logging.Logger
}

// Options tunes a run.
type Options struct {
	Params             match.Params
	Concurrency        int
	CheckpointInterval int
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID             string
	CorpusFingerprint string
	RemainsCases      int
	MissingCases      int
	PairsCompared     int
	Leads             []*match.Lead
	Resumed           bool
	ResumeOffset      int
}

// Engine runs the matching pipeline end to end.
type Engine struct {
	deps  Dependencies
	opts  Options
	store *index.Store
	now   func() time.Time
}

// NewEngine validates dependencies and builds an engine.
func NewEngine(deps Dependencies, opts Options) (*Engine, error) {
	if deps.Cases == nil || deps.Runs == nil || deps.Leads == nil {
		return nil, errors.InvalidParam("cases, runs and leads dependencies are required")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = 250
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewMetrics()
	}
	return &Engine{
		deps:  deps,
		opts:  opts,
		store: index.NewStore(),
		now:   time.Now,
	}, nil
}

// Run executes one matching run.  resumeRunID, when non-empty, continues an
// aborted run from its checkpoint; the corpus must be unchanged since the
// original run or the resume is rejected as stale.
func (e *Engine) Run(ctx context.Context, resumeRunID string) (*RunResult, error) {
	log := e.deps.Logger.Named("engine")
	started := e.now()

	remains, missing, err := e.loadCorpus(ctx)
	if err != nil {
		return nil, err
	}
	all := make([]*record.CaseRecord, 0, len(remains)+len(missing))
	all = append(all, remains...)
	all = append(all, missing...)
	fingerprint := index.FingerprintRecords(all)

	info, offset, err := e.prepareRun(ctx, resumeRunID, fingerprint, log)
	if err != nil {
		return nil, err
	}
	result := &RunResult{
		RunID:             info.RunID.String(),
		CorpusFingerprint: fingerprint,
		RemainsCases:      len(remains),
		MissingCases:      len(missing),
		Resumed:           resumeRunID != "",
		ResumeOffset:      offset,
	}

	snap, err := e.buildIndex(all, fingerprint)
	if err != nil {
		return nil, e.failRun(ctx, info.RunID, common.RunStateIncomplete, err)
	}
	defer e.store.Discard()

	generator := match.NewGenerator(snap, missing, e.opts.Params, log)
	scorer := match.NewScorer(e.opts.Params, e.deps.Graph, e.deps.Vector, log)
	ranker := match.NewRanker(e.opts.Params)

	pool, err := ants.NewPool(e.opts.Concurrency)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create worker pool")
	}
	defer pool.Release()

	runID := info.RunID.String()
	var leads []*match.Lead
	for batchStart := offset; batchStart < len(remains); batchStart += e.opts.CheckpointInterval {
		if err := ctx.Err(); err != nil {
			return nil, e.failRun(ctx, info.RunID, common.RunStateAborted,
				errors.Wrap(err, errors.ErrCodeInternal, "run cancelled"))
		}

		batchEnd := batchStart + e.opts.CheckpointInterval
		if batchEnd > len(remains) {
			batchEnd = len(remains)
		}
		batchLeads, err := e.scoreBatch(ctx, pool, generator, scorer, ranker,
			runID, remains[batchStart:batchEnd], result)
		if err != nil {
			return nil, e.failRun(ctx, info.RunID, common.RunStateIncomplete, err)
		}

		if err := e.deps.Leads.SaveLeads(ctx, batchLeads); err != nil {
			return nil, e.failRun(ctx, info.RunID, common.RunStateIncomplete, err)
		}
		leads = append(leads, batchLeads...)
		e.checkpoint(ctx, runID, fingerprint, batchEnd, log)
	}

	if result.Resumed {
		// The in-memory slice only holds batches scored by this process.
		// Fold in what the aborted attempt already persisted so the report
		// and the topic see the whole run, not the tail.
		prior, err := e.deps.Leads.ListByRun(ctx, runID)
		if err != nil {
			return nil, e.failRun(ctx, info.RunID, common.RunStateIncomplete, err)
		}
		leads = mergeLeads(prior, leads)
	}
	match.SortLeads(leads)
	result.Leads = leads

	if err := e.deps.Runs.SetState(ctx, info.RunID, common.RunStateCompleted); err != nil {
		return nil, e.failRun(ctx, info.RunID, common.RunStateIncomplete,
			errors.Wrap(err, errors.ErrCodePersistence, "failed to complete run"))
	}
	e.clearCheckpoint(ctx, runID, log)
	e.emit(ctx, result, log)

	e.deps.Metrics.RunDuration.Observe(e.now().Sub(started).Seconds())
	e.deps.Metrics.RunsTotal.WithLabelValues(string(common.RunStateCompleted)).Inc()
	for _, lead := range leads {
		e.deps.Metrics.LeadsEmitted.WithLabelValues(string(lead.Priority())).Inc()
	}

	log.Info("run complete",
		logging.String("run_id", runID),
		logging.Int("remains", len(remains)),
		logging.Int("missing", len(missing)),
		logging.Int("pairs_compared", result.PairsCompared),
		logging.Int("leads", len(leads)),
		logging.Duration("elapsed", e.now().Sub(started)),
	)
	return result, nil
}

// loadCorpus fetches and normalizes both sides concurrently.  Records that
// fail normalization are skipped, never defaulted.
func (e *Engine) loadCorpus(ctx context.Context) (remains, missing []*record.CaseRecord, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		remains, err = e.loadSide(gctx, record.SideRemains)
		return err
	})
	g.Go(func() error {
		var err error
		missing, err = e.loadSide(gctx, record.SideMissing)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return remains, missing, nil
}

func (e *Engine) loadSide(ctx context.Context, side record.Side) ([]*record.CaseRecord, error) {
	raws, err := e.deps.Cases.ListBySide(ctx, side)
	if err != nil {
		return nil, err
	}
	normalizer := record.NewNormalizer()
	recs := make([]*record.CaseRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := normalizer.Normalize(raw)
		if err != nil {
			e.deps.Logger.Debug("skipping record",
				logging.String("side", string(side)),
				logging.Err(err),
			)
			continue
		}
		recs = append(recs, rec)
	}
	// Input order is ID order so merges and checkpoints are reproducible.
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

// prepareRun creates a fresh run, or revalidates an aborted one and returns
// its resume offset.
func (e *Engine) prepareRun(ctx context.Context, resumeRunID, fingerprint string, log logging.Logger) (*common.RunInfo, int, error) {
	if resumeRunID == "" {
		info := common.NewRunInfo(fingerprint)
		if err := e.deps.Runs.Create(ctx, info); err != nil {
			return nil, 0, err
		}
		if err := e.deps.Runs.SetState(ctx, info.RunID, common.RunStateRunning); err != nil {
			return nil, 0, err
		}
		return info, 0, nil
	}

	info, err := e.deps.Runs.Get(ctx, common.ID(resumeRunID))
	if err != nil {
		return nil, 0, err
	}
	if info.CorpusFingerprint != fingerprint {
		return nil, 0, errors.New(errors.ErrCodeIndexStale,
			"corpus changed since the original run; resume rejected").
			WithDetail("run_id=" + resumeRunID)
	}

	offset := 0
	if e.deps.Checkpoints != nil {
		cp, err := e.deps.Checkpoints.Load(ctx, resumeRunID)
		if err != nil {
			log.Warn("checkpoint unreadable, restarting from zero", logging.Err(err))
		} else if cp != nil && cp.CorpusFingerprint == fingerprint {
			offset = cp.Offset
		}
	}
	if err := e.deps.Runs.SetState(ctx, info.RunID, common.RunStateRunning); err != nil {
		return nil, 0, err
	}
	log.Info("resuming run",
		logging.String("run_id", resumeRunID),
		logging.Int("offset", offset),
	)
	return info, offset, nil
}

func (e *Engine) buildIndex(all []*record.CaseRecord, fingerprint string) (*index.Snapshot, error) {
	buildStart := e.now()
	builder, err := index.NewBuilder(e.opts.Params.WeightFunc)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if err := builder.Add(rec); err != nil {
			return nil, err
		}
	}
	snap, err := builder.Build()
	if err != nil {
		return nil, err
	}
	if err := snap.VerifyFingerprint(fingerprint); err != nil {
		return nil, err
	}
	if err := e.store.Publish(snap); err != nil {
		return nil, err
	}
	e.deps.Metrics.IndexBuildDuration.Observe(e.now().Sub(buildStart).Seconds())
	return snap, nil
}

// scoreBatch scores a slice of remains cases on the worker pool.  Each case
// produces an independent partition; partitions are merged in input order so
// output never depends on scheduling.
func (e *Engine) scoreBatch(ctx context.Context, pool *ants.Pool,
	generator *match.Generator, scorer *match.Scorer, ranker *match.Ranker,
	runID string, batch []*record.CaseRecord, result *RunResult) ([]*match.Lead, error) {

	partitions := make([][]*match.Lead, len(batch))
	stats := make([]match.BlockStats, len(batch))
	pairs := make([]int, len(batch))

	var wg sync.WaitGroup
	for i, u := range batch {
		i, u := i, u
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			candidates, blockStats := generator.Generate(u)
			stats[i] = blockStats
			pairs[i] = len(candidates)

			leads := make([]*match.Lead, 0, len(candidates))
			for _, c := range candidates {
				leads = append(leads, scorer.Score(ctx, runID, u, c))
			}
			partitions[i] = ranker.Rank(leads)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to submit scoring task")
		}
	}
	wg.Wait()

	var merged []*match.Lead
	for i := range batch {
		merged = append(merged, partitions[i]...)
		result.PairsCompared += pairs[i]
		e.deps.Metrics.PairsCompared.Add(float64(pairs[i]))
		e.deps.Metrics.CasesProcessed.Inc()
		if stats[i].Truncated > 0 {
			e.deps.Metrics.PoolTruncations.Inc()
		}
		if stats[i].UsedFallback {
			e.deps.Metrics.FallbackBlocks.Inc()
		}
	}
	return merged, nil
}

// mergeLeads unions previously persisted leads with freshly scored ones,
// keyed by run and pair.  Fresh wins on overlap: a batch replayed across a
// crash carries the same scores, and the fresh copy is the one in hand.
func mergeLeads(prior, fresh []*match.Lead) []*match.Lead {
	seen := make(map[string]bool, len(fresh))
	for _, l := range fresh {
		seen[l.PairKey()] = true
	}
	merged := make([]*match.Lead, 0, len(prior)+len(fresh))
	merged = append(merged, fresh...)
	for _, l := range prior {
		if !seen[l.PairKey()] {
			merged = append(merged, l)
		}
	}
	return merged
}

func (e *Engine) checkpoint(ctx context.Context, runID, fingerprint string, offset int, log logging.Logger) {
	if e.deps.Checkpoints == nil {
		return
	}
	err := e.deps.Checkpoints.Save(ctx, redis.Checkpoint{
		RunID:             runID,
		CorpusFingerprint: fingerprint,
		Offset:            offset,
		UpdatedAt:         e.now().UTC(),
	})
	if err != nil {
		// A run that cannot checkpoint keeps going, it just cannot resume.
		log.Warn("checkpoint save failed", logging.Err(err))
	}
}

func (e *Engine) clearCheckpoint(ctx context.Context, runID string, log logging.Logger) {
	if e.deps.Checkpoints == nil {
		return
	}
	if err := e.deps.Checkpoints.Clear(ctx, runID); err != nil {
		log.Warn("checkpoint clear failed", logging.Err(err))
	}
}

// emit pushes the finished run to the optional sinks.  Sink failures are
// logged and swallowed: the database already holds the leads.
func (e *Engine) emit(ctx context.Context, result *RunResult, log logging.Logger) {
	if e.deps.Publisher != nil {
		leads := make([]match.Lead, len(result.Leads))
		for i, l := range result.Leads {
			leads[i] = *l
		}
		if err := e.deps.Publisher.PublishLeads(ctx, leads); err != nil {
			log.Warn("lead publish failed", logging.Err(err))
		}
	}
	if e.deps.Reports != nil {
		report := BuildReport(result, e.now().UTC())
		data, err := report.JSON()
		if err != nil {
			log.Warn("report encoding failed", logging.Err(err))
			return
		}
		if _, err := e.deps.Reports.SaveReport(ctx, result.RunID, data); err != nil {
			log.Warn("report upload failed", logging.Err(err))
		}
	}
}

// failRun marks the run with a terminal failure state and returns the
// original error.
func (e *Engine) failRun(ctx context.Context, runID common.ID, state common.RunState, cause error) error {
	e.deps.Metrics.RunsTotal.WithLabelValues(string(state)).Inc()
	if err := e.deps.Runs.SetState(ctx, runID, state); err != nil {
		e.deps.Logger.Error("failed to record run state",
			logging.String("run_id", runID.String()),
			logging.String("state", string(state)),
			logging.Err(err),
		)
	}
	return cause
}
