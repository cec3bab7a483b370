package match

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/internal/domain/record"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
)

// runPipeline wires Generator → Scorer → Ranker over a small corpus, the way
// the matching application does per remains case.
func runPipeline(t *testing.T, params Params, remainsRecs, missingRecs []*record.CaseRecord) []*Lead {
	t.Helper()
	g := newGenerator(t, params, remainsRecs, missingRecs)
	s := NewScorer(params, nil, nil, logging.NewNopLogger())
	s.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	r := NewRanker(params)

	var out []*Lead
	for _, u := range remainsRecs {
		pool, _ := g.Generate(u)
		leads := make([]*Lead, 0, len(pool))
		for _, c := range pool {
			leads = append(leads, s.Score(context.Background(), "run-1", u, c))
		}
		out = append(out, r.Rank(leads)...)
	}
	return out
}

// A uniquely shared "toboggan" token must surface exactly one high-rarity
// candidate even with every geographic field unknown.
func TestPipeline_TobogganScenario(t *testing.T) {
	params := DefaultParams()
	params.Threshold = 0.3 // structured signals are all neutral here

	u := remains("UID-1", "toboggan")
	match := missing("MP-1", "toboggan")
	other := missing("MP-2", "parka")

	leads := runPipeline(t, params, []*record.CaseRecord{u},
		[]*record.CaseRecord{match, other})

	require.Len(t, leads, 1)
	l := leads[0]
	assert.Equal(t, "UID-1", l.RemainsID)
	assert.Equal(t, "MP-1", l.MissingID)
	assert.Equal(t, []string{"toboggan"}, l.SharedTokens)
	assert.Greater(t, l.Scores.Rarity, 0.5, "a uniquely shared token dominates")
	assert.Equal(t, StatusPending, l.Status)
}

func TestPipeline_DeterministicOutput(t *testing.T) {
	params := DefaultParams()
	params.Threshold = 0.2

	mkCorpus := func() ([]*record.CaseRecord, []*record.CaseRecord) {
		u1 := remains("UID-1", "toboggan", "nike jacket")
		u2 := remains("UID-2", "zephyr")
		m1 := missing("MP-1", "toboggan")
		m2 := missing("MP-2", "nike jacket", "zephyr")
		m3 := missing("MP-3", "toboggan", "zephyr")
		return []*record.CaseRecord{u1, u2}, []*record.CaseRecord{m1, m2, m3}
	}

	r1, m1 := mkCorpus()
	r2, m2 := mkCorpus()
	first, err := json.Marshal(runPipeline(t, params, r1, m1))
	require.NoError(t, err)
	second, err := json.Marshal(runPipeline(t, params, r2, m2))
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical corpus and config give byte-identical output")
}

func TestPipeline_NoDuplicatePairKeys(t *testing.T) {
	params := DefaultParams()
	params.Threshold = 0.1

	// Multiple shared blocking tokens must not create duplicate rows.
	u := remains("UID-1", "toboggan", "zephyr", "nike jacket")
	m := missing("MP-1", "toboggan", "zephyr", "nike jacket")

	leads := runPipeline(t, params, []*record.CaseRecord{u}, []*record.CaseRecord{m})

	seen := make(map[string]bool)
	for _, l := range leads {
		require.False(t, seen[l.PairKey()], "duplicate pair %s", l.PairKey())
		seen[l.PairKey()] = true
	}
	require.Len(t, leads, 1)
	assert.Len(t, leads[0].SharedTokens, 3)
}

func TestPipeline_ThresholdCorrectness(t *testing.T) {
	params := DefaultParams()

	var remainsRecs, missingRecs []*record.CaseRecord
	u := remains("UID-1", "toboggan")
	m := missing("MP-1", "toboggan")
	remainsRecs = append(remainsRecs, u)
	missingRecs = append(missingRecs, m, missing("MP-2", "parka"))

	leads := runPipeline(t, params, remainsRecs, missingRecs)
	for _, l := range leads {
		assert.GreaterOrEqual(t, l.Scores.Composite, params.Threshold)
	}
}
