package milvus

import (
	"context"
	"math"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// embeddingField is the vector field of the case-embedding collection; the
// collection is keyed by case_id and populated by the upstream embedding
// collaborator.
const (
	caseIDField    = "case_id"
	embeddingField = "embedding"
)

// fetchFunc loads the stored embedding for one case.
type fetchFunc func(ctx context.Context, caseID string) ([]float32, error)

// VectorScorer is the optional vector-similarity enrichment provider.  It
// satisfies match.VectorScorer: cosine similarity between the two cases'
// description embeddings, mapped into [0,1].  Any error is treated upstream
// as signal unavailable.
type VectorScorer struct {
	fetch  fetchFunc
	logger logging.Logger
}

// NewVectorScorer constructs a VectorScorer over the case-embedding
// collection.
func NewVectorScorer(c *Client, collection string, log logging.Logger) *VectorScorer {
	return &VectorScorer{
		fetch:  milvusFetcher(c.Milvus(), collection),
		logger: log.Named("vector_scorer"),
	}
}

// milvusFetcher queries one case's embedding by primary key.
func milvusFetcher(mc client.Client, collection string) fetchFunc {
	return func(ctx context.Context, caseID string) ([]float32, error) {
		pks := entity.NewColumnVarChar(caseIDField, []string{caseID})
		cols, err := mc.QueryByPks(ctx, collection, nil, pks, []string{embeddingField})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExternalService, "embedding query failed").
				WithDetail("case_id=" + caseID)
		}
		for _, col := range cols {
			vec, ok := col.(*entity.ColumnFloatVector)
			if !ok || col.Name() != embeddingField {
				continue
			}
			data := vec.Data()
			if len(data) == 0 {
				break
			}
			return data[0], nil
		}
		return nil, errors.New(errors.ErrCodeNotFound, "no embedding stored for case").
			WithDetail("case_id=" + caseID)
	}
}

// Similarity returns the cosine similarity of the two cases' description
// embeddings, mapped into [0,1].
func (v *VectorScorer) Similarity(ctx context.Context, remainsID, missingID string) (float64, error) {
	a, err := v.fetch(ctx, remainsID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeEnrichmentUnavailable, "vector signal unavailable")
	}
	b, err := v.fetch(ctx, missingID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeEnrichmentUnavailable, "vector signal unavailable")
	}

	cos, err := cosine(a, b)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeEnrichmentUnavailable, "vector signal unavailable")
	}
	// Cosine lands in [-1,1]; shift into the unit interval.
	return (cos + 1) / 2, nil
}

func cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, errors.InvalidParam("embedding dimensions differ")
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, errors.InvalidParam("zero-magnitude embedding")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
