package match

import (
	"fmt"
	"time"

	"github.com/filamentproject/filament/internal/domain/index"
	"github.com/filamentproject/filament/pkg/errors"
)

// Params is the full tuning surface of the pairing pipeline.  Everything
// that materially changes recall or ranking lives here, never in code.
type Params struct {
	// Blocking.
	RarityThreshold      int     `mapstructure:"rarity_threshold" json:"rarity_threshold"`             // T: df below this counts as distinctive
	MaxDistinctiveTokens int     `mapstructure:"max_distinctive_tokens" json:"max_distinctive_tokens"` // NTok
	MaxPoolSize          int     `mapstructure:"max_pool_size" json:"max_pool_size"`                   // M
	AgeSlackBelowYears   int     `mapstructure:"age_slack_below_years" json:"age_slack_below_years"`
	AgeSlackAboveYears   int     `mapstructure:"age_slack_above_years" json:"age_slack_above_years"`
	MaxRadiusKM          float64 `mapstructure:"max_radius_km" json:"max_radius_km"`
	HeightToleranceCM    float64 `mapstructure:"height_tolerance_cm" json:"height_tolerance_cm"`

	// Scoring.
	WeightFunc        index.WeightFuncName `mapstructure:"weight_func" json:"weight_func"`
	GeoDecayKM        float64              `mapstructure:"geo_decay_km" json:"geo_decay_km"`
	RaritySaturation  float64              `mapstructure:"rarity_saturation" json:"rarity_saturation"`
	SignalTimeout     time.Duration        `mapstructure:"signal_timeout" json:"signal_timeout"`
	StructuredWeights StructuredWeights    `mapstructure:"structured_weights" json:"structured_weights"`
	FusionWeights     FusionWeights        `mapstructure:"fusion_weights" json:"fusion_weights"`

	// Ranking.
	TopK      int     `mapstructure:"top_k" json:"top_k"`
	Threshold float64 `mapstructure:"threshold" json:"threshold"`
}

// DefaultParams returns the default pipeline parameters.
func DefaultParams() Params {
	return Params{
		RarityThreshold:      25,
		MaxDistinctiveTokens: 12,
		MaxPoolSize:          500,
		AgeSlackBelowYears:   10,
		AgeSlackAboveYears:   15,
		MaxRadiusKM:          800,
		HeightToleranceCM:    15,

		WeightFunc:        index.WeightInverseLog,
		GeoDecayKM:        480,
		RaritySaturation:  1.0,
		SignalTimeout:     2 * time.Second,
		StructuredWeights: DefaultStructuredWeights(),
		FusionWeights:     DefaultFusionWeights(),

		TopK:      5,
		Threshold: 0.70,
	}
}

// Validate checks every parameter range.
func (p Params) Validate() error {
	switch {
	case p.RarityThreshold < 2:
		return errors.InvalidParam("rarity_threshold must be at least 2")
	case p.MaxDistinctiveTokens < 1:
		return errors.InvalidParam("max_distinctive_tokens must be positive")
	case p.MaxPoolSize < 1:
		return errors.InvalidParam("max_pool_size must be positive")
	case p.AgeSlackBelowYears < 0 || p.AgeSlackAboveYears < 0:
		return errors.InvalidParam("age slack must not be negative")
	case p.MaxRadiusKM <= 0:
		return errors.InvalidParam("max_radius_km must be positive")
	case p.HeightToleranceCM < 0:
		return errors.InvalidParam("height_tolerance_cm must not be negative")
	case !p.WeightFunc.IsValid():
		return errors.InvalidParam("unsupported weight_func: " + string(p.WeightFunc))
	case p.GeoDecayKM <= 0:
		return errors.InvalidParam("geo_decay_km must be positive")
	case p.RaritySaturation <= 0:
		return errors.InvalidParam("rarity_saturation must be positive")
	case p.SignalTimeout <= 0:
		return errors.InvalidParam("signal_timeout must be positive")
	case p.TopK < 1:
		return errors.InvalidParam("top_k must be at least 1")
	case p.Threshold < 0 || p.Threshold > 1:
		return errors.InvalidParam(fmt.Sprintf("threshold must be in [0,1], got %.2f", p.Threshold))
	}
	if err := p.StructuredWeights.Validate(); err != nil {
		return err
	}
	return p.FusionWeights.Validate()
}
