package record

import (
	"strings"
	"time"

	"github.com/filamentproject/filament/pkg/errors"
)

// Raw is the source-specific input shape delivered by the ingestion
// collaborator.  Every optional field is a pointer: absent fields stay nil
// and map to the explicit unknown sentinel, never to a guessed default.
type Raw struct {
	ID   string `json:"id"`
	Side string `json:"side"`

	Sex         *string  `json:"sex,omitempty"`
	AgeMin      *int     `json:"age_min,omitempty"`
	AgeMax      *int     `json:"age_max,omitempty"`
	HeightCM    *float64 `json:"height_cm,omitempty"`
	HeightCMMax *float64 `json:"height_cm_max,omitempty"`
	WeightKG    *float64 `json:"weight_kg,omitempty"`
	WeightKGMax *float64 `json:"weight_kg_max,omitempty"`
	Ancestry    *string  `json:"ancestry,omitempty"`
	Hair        *string  `json:"hair,omitempty"`
	Eyes        *string  `json:"eyes,omitempty"`

	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	Date *string  `json:"date,omitempty"` // ISO 8601, date part is sufficient

	Description *string `json:"description,omitempty"`
	Clothing    *string `json:"clothing,omitempty"`
	Features    *string `json:"features,omitempty"`

	Source string `json:"source,omitempty"`
}

// measureSpread widens a single-point height or weight into a range, since a
// stated "170 cm" on a years-old report is itself an estimate.
const measureSpread = 5.0

// Normalizer canonicalizes raw records into CaseRecords.  It is stateless
// and safe for concurrent use.
type Normalizer struct{}

// NewNormalizer constructs a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts a raw record into its canonical CaseRecord form.
// Missing fields become explicit unknown sentinels.  The token set is
// derived from the description, clothing and feature text; because Tokenize
// is pure, normalizing the same raw record twice yields identical output.
func (n *Normalizer) Normalize(raw *Raw) (*CaseRecord, error) {
	if raw == nil {
		return nil, errors.InvalidParam("raw record must not be nil")
	}
	side, err := ParseSide(raw.Side)
	if err != nil {
		return nil, err
	}

	rec := &CaseRecord{
		ID:         strings.TrimSpace(raw.ID),
		Side:       side,
		Sex:        NormalizeSex(deref(raw.Sex)),
		Ancestry:   normalizeText(raw.Ancestry),
		Hair:       normalizeText(raw.Hair),
		Eyes:       normalizeText(raw.Eyes),
		Provenance: raw.Source,
	}

	if raw.AgeMin != nil || raw.AgeMax != nil {
		rec.Age = normalizeAge(raw.AgeMin, raw.AgeMax)
	}
	rec.Height = normalizeMeasure(raw.HeightCM, raw.HeightCMMax)
	rec.Weight = normalizeMeasure(raw.WeightKG, raw.WeightKGMax)

	if raw.Lat != nil && raw.Lon != nil {
		rec.Location = Location{Lat: *raw.Lat, Lon: *raw.Lon, Known: true}
	}
	if raw.Date != nil {
		if t, ok := parseDate(*raw.Date); ok {
			rec.Date = Date{Time: t, Known: true}
		}
	}

	rec.Description = strings.TrimSpace(deref(raw.Description))
	rec.ClothingText = strings.TrimSpace(deref(raw.Clothing))
	rec.FeatureText = strings.TrimSpace(deref(raw.Features))
	rec.Tokens = Tokenize(rec.Description, rec.ClothingText, rec.FeatureText)

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// NormalizeSex maps the many source spellings ("M", "Male", "fem.",
// "Uncertain", "") onto the three canonical values.
func NormalizeSex(v string) Sex {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return SexUnknown
	}
	switch v[0] {
	case 'm':
		return SexMale
	case 'f':
		return SexFemale
	default:
		return SexUnknown
	}
}

// normalizeAge builds an AgeRange from optional min/max, widening a single
// stated value into a point range.
func normalizeAge(min, max *int) AgeRange {
	switch {
	case min != nil && max != nil:
		lo, hi := *min, *max
		if lo > hi {
			lo, hi = hi, lo
		}
		return AgeRange{Min: lo, Max: hi, Known: true}
	case min != nil:
		return AgeRange{Min: *min, Max: *min, Known: true}
	case max != nil:
		return AgeRange{Min: *max, Max: *max, Known: true}
	default:
		return AgeRange{}
	}
}

// normalizeMeasure builds a MeasureRange from optional min/max values,
// widening a single value by measureSpread.
func normalizeMeasure(min, max *float64) MeasureRange {
	switch {
	case min != nil && max != nil:
		lo, hi := *min, *max
		if lo > hi {
			lo, hi = hi, lo
		}
		return MeasureRange{Min: lo, Max: hi, Known: true}
	case min != nil:
		return MeasureRange{Min: *min - measureSpread, Max: *min + measureSpread, Known: true}
	case max != nil:
		return MeasureRange{Min: *max - measureSpread, Max: *max + measureSpread, Known: true}
	default:
		return MeasureRange{}
	}
}

// normalizeText lowercases a categorical text attribute, mapping absence and
// the various "unknown" spellings to the sentinel.
func normalizeText(v *string) string {
	if v == nil {
		return UnknownText
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	switch s {
	case "", "unknown", "unsure", "uncertain", "n/a":
		return UnknownText
	}
	return s
}

// dateLayouts are tried in order when parsing source dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
