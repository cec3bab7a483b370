package milvus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	apperrors "github.com/filamentproject/filament/pkg/errors"
)

func scorerWithEmbeddings(embeddings map[string][]float32) *VectorScorer {
	return &VectorScorer{
		fetch: func(_ context.Context, caseID string) ([]float32, error) {
			vec, ok := embeddings[caseID]
			if !ok {
				return nil, apperrors.NotFound("no embedding stored for case")
			}
			return vec, nil
		},
		logger: logging.NewNopLogger(),
	}
}

func TestSimilarity(t *testing.T) {
	s := scorerWithEmbeddings(map[string][]float32{
		"UID-1": {1, 0, 0},
		"MP-1":  {1, 0, 0},
		"MP-2":  {-1, 0, 0},
		"MP-3":  {0, 1, 0},
	})

	identical, err := s.Similarity(context.Background(), "UID-1", "MP-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, identical, 1e-9)

	opposite, err := s.Similarity(context.Background(), "UID-1", "MP-2")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, opposite, 1e-9)

	orthogonal, err := s.Similarity(context.Background(), "UID-1", "MP-3")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, orthogonal, 1e-9)
}

func TestSimilarity_MissingEmbedding(t *testing.T) {
	s := scorerWithEmbeddings(map[string][]float32{"UID-1": {1, 0}})

	_, err := s.Similarity(context.Background(), "UID-1", "MP-404")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnrichmentUnavailable))
}

func TestSimilarity_DimensionMismatch(t *testing.T) {
	s := scorerWithEmbeddings(map[string][]float32{
		"UID-1": {1, 0, 0},
		"MP-1":  {1, 0},
	})

	_, err := s.Similarity(context.Background(), "UID-1", "MP-1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnrichmentUnavailable))
}

func TestCosine_ZeroVector(t *testing.T) {
	_, err := cosine([]float32{0, 0}, []float32{1, 1})
	assert.Error(t, err)
}
