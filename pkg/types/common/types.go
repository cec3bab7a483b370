// Package common defines shared value types used across the Filament engine:
// identifiers, audit metadata, and batch run descriptors.
package common

import (
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// NewID generates a new random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string form of the ID.
func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id == "" }

// Metadata is an open-ended key-value bag attached to provenance records.
type Metadata map[string]interface{}

// BaseEntity carries audit metadata for domain entities.
type BaseEntity struct {
	ID        ID        `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunState is the lifecycle state of a matching run.
type RunState string

const (
	RunStatePending    RunState = "pending"
	RunStateRunning    RunState = "running"
	RunStateCompleted  RunState = "completed"
	RunStateIncomplete RunState = "incomplete"
	RunStateAborted    RunState = "aborted"
)

// RunInfo identifies one batch matching run.  CorpusFingerprint binds the run
// to the exact corpus snapshot it scored; a mismatch between the index and
// the run fingerprint is fatal.
type RunInfo struct {
	RunID             ID        `json:"run_id"`
	State             RunState  `json:"state"`
	CorpusFingerprint string    `json:"corpus_fingerprint"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at,omitempty"`
}

// NewRunInfo constructs a RunInfo in the pending state.
func NewRunInfo(fingerprint string) *RunInfo {
	return &RunInfo{
		RunID:             NewID(),
		State:             RunStatePending,
		CorpusFingerprint: fingerprint,
		StartedAt:         time.Now().UTC(),
	}
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Pagination defines parameters for paginated listings.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}
