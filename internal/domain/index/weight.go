package index

import (
	"math"

	"github.com/filamentproject/filament/pkg/errors"
)

// WeightFuncName selects the rarity weighting function used by the index.
// Rarity thresholds materially change recall, so the function is
// configuration, never hard-coded.
type WeightFuncName string

const (
	// WeightInverseLog is w = 1 / ln(1 + df): strictly decreasing, positive,
	// bounded by 1/ln 2 ≈ 1.44 at df = 1.
	WeightInverseLog WeightFuncName = "inverse_log"

	// WeightLog10IDF is the specificity weight w = log10(N/df) / log10(N),
	// normalized into (0, 1] over a corpus of N documents.
	WeightLog10IDF WeightFuncName = "log10_idf"
)

// IsValid checks if the weight function name is recognized.
func (n WeightFuncName) IsValid() bool {
	return n == WeightInverseLog || n == WeightLog10IDF
}

// WeightFunc computes a rarity weight from a token's document frequency and
// the corpus size.  Implementations must be strictly decreasing in df,
// positive, and bounded.
type WeightFunc func(df, corpusSize int) float64

// NewWeightFunc resolves a weight function by name.
func NewWeightFunc(name WeightFuncName) (WeightFunc, error) {
	switch name {
	case WeightInverseLog:
		return inverseLogWeight, nil
	case WeightLog10IDF:
		return log10IDFWeight, nil
	default:
		return nil, errors.InvalidParam("unsupported rarity weight function: " + string(name))
	}
}

func inverseLogWeight(df, _ int) float64 {
	if df < 1 {
		df = 1
	}
	return 1.0 / math.Log(1.0+float64(df))
}

func log10IDFWeight(df, corpusSize int) float64 {
	if df < 1 {
		df = 1
	}
	if corpusSize < 2 {
		corpusSize = 2
	}
	if df >= corpusSize {
		// Floor below the df = corpusSize-1 value: a token in every document
		// still gets a positive weight and the function stays decreasing.
		return 0.1 / (math.Log10(float64(corpusSize)) * float64(corpusSize))
	}
	return math.Log10(float64(corpusSize)/float64(df)) / math.Log10(float64(corpusSize))
}
