// Package match implements the pairing pipeline for one run: candidate
// generation (blocking) against the rare-token index, composite scoring of
// surviving pairs, and ranking/deduplication/thresholding into a reviewable
// lead list.  Scoring policy lives in weight structs consumed by stateless
// scoring code, never embedded at call sites.
package match

import (
	"fmt"
	"math"

	"github.com/filamentproject/filament/pkg/errors"
)

// weightSumTolerance bounds how far a weight set may drift from 1.0 before
// validation rejects it.
const weightSumTolerance = 1e-6

// StructuredWeights are the sub-weights of the structured component score.
// They must be non-negative and sum to 1.
type StructuredWeights struct {
	Sex       float64 `mapstructure:"sex" json:"sex"`
	Age       float64 `mapstructure:"age" json:"age"`
	Ancestry  float64 `mapstructure:"ancestry" json:"ancestry"`
	Geo       float64 `mapstructure:"geo" json:"geo"`
	Timeframe float64 `mapstructure:"timeframe" json:"timeframe"`
	Physical  float64 `mapstructure:"physical" json:"physical"`
	Clothing  float64 `mapstructure:"clothing" json:"clothing"`
}

// DefaultStructuredWeights returns the default structured sub-weight set.
func DefaultStructuredWeights() StructuredWeights {
	return StructuredWeights{
		Sex:       0.20,
		Age:       0.15,
		Ancestry:  0.15,
		Geo:       0.15,
		Timeframe: 0.15,
		Physical:  0.10,
		Clothing:  0.10,
	}
}

// Validate checks non-negativity and unit sum.
func (w StructuredWeights) Validate() error {
	vals := []float64{w.Sex, w.Age, w.Ancestry, w.Geo, w.Timeframe, w.Physical, w.Clothing}
	sum := 0.0
	for _, v := range vals {
		if v < 0 {
			return errors.InvalidParam("structured weights must be non-negative")
		}
		sum += v
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errors.InvalidParam(fmt.Sprintf("structured weights must sum to 1.0, got %.4f", sum))
	}
	return nil
}

// FusionWeights combine the component scores into the composite.  Structured
// and rarity are always available; graph and vector weights only participate
// when the corresponding provider returned a score, and the participating
// weights are renormalized to sum to 1 per pair.
type FusionWeights struct {
	Structured float64 `mapstructure:"structured" json:"structured"`
	Rarity     float64 `mapstructure:"rarity" json:"rarity"`
	Graph      float64 `mapstructure:"graph" json:"graph"`
	Vector     float64 `mapstructure:"vector" json:"vector"`
}

// DefaultFusionWeights returns the default fusion weight set.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Structured: 0.35,
		Rarity:     0.30,
		Graph:      0.20,
		Vector:     0.15,
	}
}

// Validate checks non-negativity, unit sum, and that the always-available
// signals carry weight at all.
func (w FusionWeights) Validate() error {
	vals := []float64{w.Structured, w.Rarity, w.Graph, w.Vector}
	sum := 0.0
	for _, v := range vals {
		if v < 0 {
			return errors.InvalidParam("fusion weights must be non-negative")
		}
		sum += v
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errors.InvalidParam(fmt.Sprintf("fusion weights must sum to 1.0, got %.4f", sum))
	}
	if w.Structured+w.Rarity <= 0 {
		return errors.InvalidParam("structured and rarity fusion weights must not both be zero")
	}
	return nil
}

// renormalize returns the fusion weights for the signals actually available
// on one pair, scaled to sum to 1.  Unavailable signals are excluded from the
// sum entirely; they never default to a zero score.
func (w FusionWeights) renormalize(hasGraph, hasVector bool) FusionWeights {
	out := FusionWeights{Structured: w.Structured, Rarity: w.Rarity}
	if hasGraph {
		out.Graph = w.Graph
	}
	if hasVector {
		out.Vector = w.Vector
	}
	sum := out.Structured + out.Rarity + out.Graph + out.Vector
	if sum <= 0 {
		return out
	}
	out.Structured /= sum
	out.Rarity /= sum
	out.Graph /= sum
	out.Vector /= sum
	return out
}
