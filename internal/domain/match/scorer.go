package match

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/filamentproject/filament/internal/domain/record"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
)

// neutralScore is the contribution of a sub-signal when either side lacks
// the attribute.  Unknown is neutral, never a mismatch.
const neutralScore = 0.5

// maxReasonTokens caps how many shared tokens appear in the reasons list.
const maxReasonTokens = 3

// GraphScorer is the optional knowledge-graph collaborator: relationship
// strength in [0,1] for a pair of case identifiers.
type GraphScorer interface {
	RelationStrength(ctx context.Context, remainsID, missingID string) (float64, error)
}

// VectorScorer is the optional embedding collaborator: semantic similarity
// in [0,1] between the two cases' free-text descriptions.
type VectorScorer interface {
	Similarity(ctx context.Context, remainsID, missingID string) (float64, error)
}

// Scorer computes the composite score for candidate pairs.  It is stateless
// apart from its configuration and providers, and safe for concurrent use.
type Scorer struct {
	params Params
	graph  GraphScorer  // nil when no graph collaborator is wired
	vector VectorScorer // nil when no vector collaborator is wired
	logger logging.Logger
	now    func() time.Time
}

// NewScorer constructs a Scorer.  Either provider may be nil; the fusion
// weights renormalize over whichever signals are present.
func NewScorer(params Params, graph GraphScorer, vector VectorScorer, logger logging.Logger) *Scorer {
	return &Scorer{
		params: params,
		graph:  graph,
		vector: vector,
		logger: logger.Named("scorer"),
		now:    time.Now,
	}
}

// Score produces the lead for one candidate pair.  The result is a pure
// function of the records, the candidate's token evidence, the configuration,
// and the provider responses.
func (s *Scorer) Score(ctx context.Context, runID string, u *record.CaseRecord, c Candidate) *Lead {
	m := c.Missing
	w := s.params.StructuredWeights

	geoScore := s.geoScore(u, m)
	timeScore := s.timeframeScore(u, m)
	structured := w.Sex*sexScore(u.Sex, m.Sex) +
		w.Age*ageScore(u.Age, m.Age) +
		w.Ancestry*textMatchScore(u.Ancestry, m.Ancestry) +
		w.Geo*geoScore +
		w.Timeframe*timeScore +
		w.Physical*s.physicalScore(u, m) +
		w.Clothing*clothingScore(u, m)

	rarity := s.rarityScore(c.RarityWeightSum)
	graph := s.enrich(ctx, "graph", u.ID, m.ID, s.graphFn())
	vector := s.enrich(ctx, "vector", u.ID, m.ID, s.vectorFn())

	fw := s.params.FusionWeights.renormalize(graph != nil, vector != nil)
	composite := fw.Structured*structured + fw.Rarity*rarity
	if graph != nil {
		composite += fw.Graph * *graph
	}
	if vector != nil {
		composite += fw.Vector * *vector
	}
	composite = clamp01(composite)

	return &Lead{
		RunID:     runID,
		RemainsID: u.ID,
		MissingID: m.ID,
		Scores: Scores{
			Structured: clamp01(structured),
			Geographic: geoScore,
			Timeframe:  timeScore,
			Rarity:     rarity,
			Graph:      graph,
			Vector:     vector,
			Composite:  composite,
		},
		Status:        StatusPending,
		SharedTokens:  c.SharedTokens,
		Reasons:       s.reasons(u, m, c),
		RichNarrative: u.HasNarrative() && m.HasNarrative(),
		CreatedAt:     s.now().UTC(),
	}
}

func sexScore(a, b record.Sex) float64 {
	if a == record.SexUnknown || b == record.SexUnknown {
		return neutralScore
	}
	if a == b {
		return 1
	}
	return 0
}

func ageScore(a, b record.AgeRange) float64 {
	if !a.Known || !b.Known {
		return neutralScore
	}
	return a.OverlapFraction(b)
}

func textMatchScore(a, b string) float64 {
	if a == record.UnknownText || b == record.UnknownText {
		return neutralScore
	}
	if a == b {
		return 1
	}
	return 0
}

func (s *Scorer) geoScore(u, m *record.CaseRecord) float64 {
	if !u.Location.Known || !m.Location.Known {
		return neutralScore
	}
	d := HaversineKM(u.Location.Lat, u.Location.Lon, m.Location.Lat, m.Location.Lon)
	return geoDecay(d, s.params.GeoDecayKM)
}

// timeframeScore bands the gap between last contact and discovery.  The
// bands reward recency without zeroing out cold cases.
func (s *Scorer) timeframeScore(u, m *record.CaseRecord) float64 {
	if !u.Date.Known || !m.Date.Known {
		return neutralScore
	}
	days := u.Date.Time.Sub(m.Date.Time).Hours() / 24
	if days < 0 {
		// Blocking rejects these; a direct caller still gets a floor score.
		return 0
	}
	switch {
	case days <= 90:
		return 1.0
	case days <= 365:
		return 0.9
	case days <= 2*365:
		return 0.8
	case days <= 5*365:
		return 0.6
	default:
		return 0.4
	}
}

func (s *Scorer) physicalScore(u, m *record.CaseRecord) float64 {
	var sum float64
	var n int
	if u.Height.Known && m.Height.Known {
		sum += measureOverlapFraction(u.Height, m.Height, s.params.HeightToleranceCM)
		n++
	}
	if u.Weight.Known && m.Weight.Known {
		sum += measureOverlapFraction(u.Weight, m.Weight, 0)
		n++
	}
	if u.Hair != record.UnknownText && m.Hair != record.UnknownText {
		sum += equalScore(u.Hair, m.Hair)
		n++
	}
	if u.Eyes != record.UnknownText && m.Eyes != record.UnknownText {
		sum += equalScore(u.Eyes, m.Eyes)
		n++
	}
	if n == 0 {
		return neutralScore
	}
	return sum / float64(n)
}

func equalScore(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// measureOverlapFraction is the overlap of two measurement ranges, widened
// by tolerance, relative to the smaller range.
func measureOverlapFraction(a, b record.MeasureRange, tolerance float64) float64 {
	lo := math.Max(a.Min-tolerance, b.Min)
	hi := math.Min(a.Max+tolerance, b.Max)
	if hi < lo {
		return 0
	}
	span := math.Min(a.Max-a.Min+2*tolerance, b.Max-b.Min)
	if span <= 0 {
		return 1
	}
	return math.Min((hi-lo)/span, 1)
}

// clothingScore is the fraction of the smaller side's clothing tokens that
// appear on the other side.
func clothingScore(u, m *record.CaseRecord) float64 {
	ut := record.Tokenize(u.ClothingText)
	mt := record.Tokenize(m.ClothingText)
	if len(ut) == 0 || len(mt) == 0 {
		return neutralScore
	}
	set := make(map[string]bool, len(ut))
	for _, tok := range ut {
		set[tok] = true
	}
	shared := 0
	for _, tok := range mt {
		if set[tok] {
			shared++
		}
	}
	smaller := len(ut)
	if len(mt) < smaller {
		smaller = len(mt)
	}
	return float64(shared) / float64(smaller)
}

// rarityScore saturates the shared rarity-weight mass into [0,1), so one
// highly distinctive shared token can dominate a sparse match without ever
// escaping the unit interval.
func (s *Scorer) rarityScore(weightSum float64) float64 {
	if weightSum <= 0 {
		return 0
	}
	return 1 - math.Exp(-weightSum/s.params.RaritySaturation)
}

type providerFn func(ctx context.Context, remainsID, missingID string) (float64, error)

func (s *Scorer) graphFn() providerFn {
	if s.graph == nil {
		return nil
	}
	return s.graph.RelationStrength
}

func (s *Scorer) vectorFn() providerFn {
	if s.vector == nil {
		return nil
	}
	return s.vector.Similarity
}

// enrich queries an optional provider under the per-signal timeout.  Any
// error or timeout makes the signal unavailable for the pair; it is never
// retried and never scored as zero.
func (s *Scorer) enrich(ctx context.Context, signal, remainsID, missingID string, fn providerFn) *float64 {
	if fn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.params.SignalTimeout)
	defer cancel()

	score, err := fn(ctx, remainsID, missingID)
	if err != nil {
		s.logger.Debug("enrichment signal unavailable",
			logging.String("signal", signal),
			logging.String("remains_id", remainsID),
			logging.String("missing_id", missingID),
			logging.Err(err),
		)
		return nil
	}
	score = clamp01(score)
	return &score
}

func (s *Scorer) reasons(u, m *record.CaseRecord, c Candidate) []string {
	var reasons []string
	for i, tok := range c.SharedTokens {
		if i == maxReasonTokens {
			break
		}
		reasons = append(reasons, fmt.Sprintf("shared distinctive token %q", tok))
	}
	if u.Sex != record.SexUnknown && u.Sex == m.Sex {
		reasons = append(reasons, "sex: both "+string(u.Sex))
	}
	if u.Date.Known && m.Date.Known {
		days := int(u.Date.Time.Sub(m.Date.Time).Hours() / 24)
		if days >= 0 {
			reasons = append(reasons, fmt.Sprintf("last contact %d days before discovery", days))
		}
	}
	if u.Location.Known && m.Location.Known {
		d := HaversineKM(u.Location.Lat, u.Location.Lon, m.Location.Lat, m.Location.Lon)
		reasons = append(reasons, fmt.Sprintf("locations %.0f km apart", d))
	}
	return reasons
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
