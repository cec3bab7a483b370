package neo4j

import (
	"context"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// relationStrengthCypher scores the shortest indirect connection between two
// case nodes.  A direct link scores 1.0 and each additional hop halves the
// strength; unconnected cases score 0.
const relationStrengthCypher = `
MATCH (u:Case {case_id: $remains_id, side: 'remains'})
MATCH (m:Case {case_id: $missing_id, side: 'missing'})
OPTIONAL MATCH p = shortestPath((u)-[*..6]-(m))
RETURN CASE WHEN p IS NULL THEN 0.0
            ELSE 1.0 / (2.0 ^ (length(p) - 1))
       END AS strength`

// GraphScorer is the optional knowledge-graph enrichment provider.  It
// satisfies match.GraphScorer; the engine treats any error as signal
// unavailable, so failures here never abort a run.
type GraphScorer struct {
	reader Reader
	logger logging.Logger
}

// NewGraphScorer constructs a GraphScorer over a graph reader.
func NewGraphScorer(reader Reader, log logging.Logger) *GraphScorer {
	return &GraphScorer{reader: reader, logger: log.Named("graph_scorer")}
}

// RelationStrength returns the connection strength in [0,1] for a case pair.
func (g *GraphScorer) RelationStrength(ctx context.Context, remainsID, missingID string) (float64, error) {
	out, err := g.reader.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		result, err := tx.Run(ctx, relationStrengthCypher, map[string]any{
			"remains_id": remainsID,
			"missing_id": missingID,
		})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			strength, ok := result.Record().Values[0].(float64)
			if !ok {
				return nil, errors.New(errors.ErrCodeSerialization, "unexpected strength type")
			}
			return strength, nil
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		// Either case is absent from the graph: no signal.
		return nil, errors.New(errors.ErrCodeEnrichmentUnavailable, "case pair not in graph")
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeEnrichmentUnavailable, "graph relation lookup failed").
			WithDetail(remainsID + "/" + missingID)
	}

	strength := out.(float64)
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	return strength, nil
}
