package index

import (
	"sync/atomic"

	"github.com/filamentproject/filament/pkg/errors"
)

// Store publishes index snapshots to concurrent readers by atomic pointer
// swap.  Readers always see either the previous complete snapshot or the new
// one, never an intermediate state; the swapped-out snapshot is dropped and
// reclaimed once its readers finish.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty Store with no published snapshot.
func NewStore() *Store { return &Store{} }

// Publish swaps the given snapshot in as the current index.
func (s *Store) Publish(snap *Snapshot) error {
	if snap == nil {
		return errors.InvalidParam("snapshot must not be nil")
	}
	s.current.Store(snap)
	return nil
}

// Current returns the published snapshot, or an ErrCodeIndexStale error when
// nothing has been published yet.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, errors.New(errors.ErrCodeIndexStale, "no index snapshot published")
	}
	return snap, nil
}

// CurrentFor returns the published snapshot after verifying it was built
// from the given corpus fingerprint.  Callers pin the returned snapshot for
// the duration of their run; a later Publish does not affect them.
func (s *Store) CurrentFor(corpusFingerprint string) (*Snapshot, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	if err := snap.VerifyFingerprint(corpusFingerprint); err != nil {
		return nil, err
	}
	return snap, nil
}

// Discard drops the published snapshot, ending the run-scoped lifecycle.
func (s *Store) Discard() {
	s.current.Store(nil)
}
