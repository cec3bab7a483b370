package neo4j

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	apperrors "github.com/filamentproject/filament/pkg/errors"
)

type fakeResult struct {
	values []any
	done   bool
}

func (f *fakeResult) Next(context.Context) bool {
	if f.done || f.values == nil {
		return false
	}
	f.done = true
	return true
}

func (f *fakeResult) Record() *neo4j.Record { return &neo4j.Record{Values: f.values} }
func (f *fakeResult) Err() error            { return nil }

type fakeTx struct {
	result *fakeResult
	err    error
}

func (f *fakeTx) Run(context.Context, string, map[string]any) (Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeReader struct {
	tx  *fakeTx
	err error
}

func (f *fakeReader) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return work(f.tx)
}

func TestRelationStrength(t *testing.T) {
	s := NewGraphScorer(&fakeReader{tx: &fakeTx{result: &fakeResult{values: []any{0.5}}}},
		logging.NewNopLogger())

	strength, err := s.RelationStrength(context.Background(), "UID-1", "MP-1")
	require.NoError(t, err)
	assert.Equal(t, 0.5, strength)
}

func TestRelationStrength_Clamped(t *testing.T) {
	s := NewGraphScorer(&fakeReader{tx: &fakeTx{result: &fakeResult{values: []any{1.7}}}},
		logging.NewNopLogger())

	strength, err := s.RelationStrength(context.Background(), "UID-1", "MP-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, strength)
}

func TestRelationStrength_PairNotInGraph(t *testing.T) {
	s := NewGraphScorer(&fakeReader{tx: &fakeTx{result: &fakeResult{}}},
		logging.NewNopLogger())

	_, err := s.RelationStrength(context.Background(), "UID-1", "MP-1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnrichmentUnavailable))
}

func TestRelationStrength_ReadFailure(t *testing.T) {
	s := NewGraphScorer(&fakeReader{err: apperrors.New(apperrors.ErrCodeDatabaseError, "down")},
		logging.NewNopLogger())

	_, err := s.RelationStrength(context.Background(), "UID-1", "MP-1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnrichmentUnavailable))
}
