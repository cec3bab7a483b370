package match

import "sort"

// Ranker turns a remains case's scored leads into its reviewable slice:
// deduplicated by pair key, ordered deterministically, capped to top-K, and
// filtered by the review threshold.
type Ranker struct {
	topK      int
	threshold float64
}

// NewRanker constructs a Ranker from the pipeline parameters.
func NewRanker(params Params) *Ranker {
	return &Ranker{topK: params.TopK, threshold: params.Threshold}
}

// Rank processes the leads of one remains case.  Leads below the threshold
// are discarded, not hidden.
func (r *Ranker) Rank(leads []*Lead) []*Lead {
	deduped := make([]*Lead, 0, len(leads))
	seen := make(map[string]bool, len(leads))
	for _, l := range leads {
		if seen[l.PairKey()] {
			continue
		}
		seen[l.PairKey()] = true
		deduped = append(deduped, l)
	}

	SortLeads(deduped)

	if len(deduped) > r.topK {
		deduped = deduped[:r.topK]
	}
	out := deduped[:0:0]
	for _, l := range deduped {
		if l.Scores.Composite >= r.threshold {
			out = append(out, l)
		}
	}
	return out
}

// SortLeads orders leads for output: descending composite, ties broken by
// higher rarity score, then by lexicographically smaller missing identifier.
func SortLeads(leads []*Lead) {
	sort.Slice(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		if a.Scores.Composite != b.Scores.Composite {
			return a.Scores.Composite > b.Scores.Composite
		}
		if a.Scores.Rarity != b.Scores.Rarity {
			return a.Scores.Rarity > b.Scores.Rarity
		}
		return a.MissingID < b.MissingID
	})
}
