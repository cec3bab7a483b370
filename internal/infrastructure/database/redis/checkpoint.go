package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// Checkpoint records how far a run has progressed through the remains
// corpus.  Offset counts fully processed remains cases in input order; a
// resumed run skips that many and verifies the fingerprint still matches
// before trusting the offset.
type Checkpoint struct {
	RunID             string    `json:"run_id"`
	CorpusFingerprint string    `json:"corpus_fingerprint"`
	Offset            int       `json:"offset"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CheckpointStore persists run checkpoints in Redis.  Checkpoint failures
// are reported but never fatal: a run that cannot checkpoint keeps going,
// it just cannot resume.
type CheckpointStore struct {
	client *Client
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewCheckpointStore builds a store writing under the given key prefix.
// Entries expire after ttl so abandoned runs do not accumulate.
func NewCheckpointStore(client *Client, prefix string, ttl time.Duration, log logging.Logger) *CheckpointStore {
	if prefix == "" {
		prefix = "filament"
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &CheckpointStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: log.Named("checkpoint"),
	}
}

func (s *CheckpointStore) key(runID string) string {
	return s.prefix + ":checkpoint:" + runID
}

// Save overwrites the checkpoint for cp.RunID.
func (s *CheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCheckpoint, "failed to encode checkpoint")
	}
	if err := s.client.Redis().Set(ctx, s.key(cp.RunID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCheckpoint, "failed to write checkpoint").
			WithDetail("run_id=" + cp.RunID)
	}
	return nil
}

// Load returns the checkpoint for a run, or nil when none exists.
func (s *CheckpointStore) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	data, err := s.client.Redis().Get(ctx, s.key(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCheckpoint, "failed to read checkpoint").
			WithDetail("run_id=" + runID)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCheckpoint, "failed to decode checkpoint").
			WithDetail("run_id=" + runID)
	}
	return &cp, nil
}

// Clear removes the checkpoint once a run completes.
func (s *CheckpointStore) Clear(ctx context.Context, runID string) error {
	if err := s.client.Redis().Del(ctx, s.key(runID)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCheckpoint, "failed to clear checkpoint").
			WithDetail("run_id=" + runID)
	}
	return nil
}
