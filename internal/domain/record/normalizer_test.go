package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/pkg/errors"
)

func strp(s string) *string   { return &s }
func intp(i int) *int         { return &i }
func fltp(f float64) *float64 { return &f }

func TestNormalize_FullRecord(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(&Raw{
		ID:          " UID-2020-001 ",
		Side:        "remains",
		Sex:         strp("M"),
		AgeMin:      intp(25),
		AgeMax:      intp(40),
		HeightCM:    fltp(170),
		HeightCMMax: fltp(180),
		WeightKG:    fltp(70),
		Ancestry:    strp("European"),
		Hair:        strp("Brown"),
		Eyes:        strp("blue"),
		Lat:         fltp(49.25),
		Lon:         fltp(-123.1),
		Date:        strp("2019-06-14"),
		Description: strp("Found near logging road, Nike jacket"),
		Features:    strp("eagle tattoo left forearm"),
		Source:      "namus",
	})
	require.NoError(t, err)

	assert.Equal(t, "UID-2020-001", rec.ID)
	assert.Equal(t, SideRemains, rec.Side)
	assert.Equal(t, SexMale, rec.Sex)
	assert.Equal(t, AgeRange{Min: 25, Max: 40, Known: true}, rec.Age)
	assert.Equal(t, MeasureRange{Min: 170, Max: 180, Known: true}, rec.Height)
	// Single weight value widens into a range.
	assert.Equal(t, MeasureRange{Min: 65, Max: 75, Known: true}, rec.Weight)
	assert.Equal(t, "european", rec.Ancestry)
	assert.Equal(t, "brown", rec.Hair)
	assert.True(t, rec.Location.Known)
	assert.True(t, rec.Date.Known)
	assert.Equal(t, time.Date(2019, 6, 14, 0, 0, 0, 0, time.UTC), rec.Date.Time)
	assert.Contains(t, rec.Tokens, "eagle tattoo")
	assert.Equal(t, "namus", rec.Provenance)
}

func TestNormalize_MissingFieldsBecomeUnknown(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(&Raw{ID: "MP-1", Side: "missing"})
	require.NoError(t, err)

	assert.Equal(t, SexUnknown, rec.Sex)
	assert.False(t, rec.Age.Known)
	assert.False(t, rec.Height.Known)
	assert.False(t, rec.Weight.Known)
	assert.False(t, rec.Location.Known)
	assert.False(t, rec.Date.Known)
	assert.Equal(t, UnknownText, rec.Ancestry)
	assert.Equal(t, UnknownText, rec.Hair)
	assert.Equal(t, UnknownText, rec.Eyes)
	assert.Empty(t, rec.Tokens)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer()
	raw := &Raw{
		ID:          "MP-2",
		Side:        "missing",
		Sex:         strp("female"),
		Description: strp("Last seen wearing blue toboggan and Levis jeans"),
	}
	first, err := n.Normalize(raw)
	require.NoError(t, err)
	second, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Token set is a pure function of the normalized text.
	assert.Equal(t, first.Tokens, Tokenize(first.Description, first.ClothingText, first.FeatureText))
}

func TestNormalizeSex(t *testing.T) {
	tests := map[string]Sex{
		"M":         SexMale,
		"male":      SexMale,
		"Mâle":      SexMale,
		"F":         SexFemale,
		"fem.":      SexFemale,
		"":          SexUnknown,
		"Uncertain": SexUnknown,
		"unknown":   SexUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSex(in), "input %q", in)
	}
}

func TestNormalize_LocationRequiresBothCoordinates(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(&Raw{ID: "MP-3", Side: "missing", Lat: fltp(49.0)})
	require.NoError(t, err)
	assert.False(t, rec.Location.Known)
}

func TestNormalize_BadInput(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize(nil)
	assert.Error(t, err)

	_, err = n.Normalize(&Raw{ID: "x", Side: "neither"})
	assert.Error(t, err)

	_, err = n.Normalize(&Raw{Side: "missing"})
	assert.Error(t, err)
}

func TestNormalize_AbsentIDIsMissingField(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(&Raw{ID: "   ", Side: "missing"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingField))
	assert.False(t, errors.IsRunFatal(err), "one bad record never fails the run")
}

func TestNormalize_UnparseableDateStaysUnknown(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(&Raw{ID: "MP-4", Side: "missing", Date: strp("sometime in 1987")})
	require.NoError(t, err)
	assert.False(t, rec.Date.Known)
}

func TestNormalize_SwappedAgeBounds(t *testing.T) {
	n := NewNormalizer()
	rec, err := n.Normalize(&Raw{ID: "U-5", Side: "remains", AgeMin: intp(40), AgeMax: intp(25)})
	require.NoError(t, err)
	assert.Equal(t, AgeRange{Min: 25, Max: 40, Known: true}, rec.Age)
}
