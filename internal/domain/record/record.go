// Package record provides the core domain model for case records in the
// Filament matching engine.  A CaseRecord is the canonical, comparable form
// of one entry from either population: unidentified remains or missing
// persons.  The Normalizer in this package is the only way to construct one,
// which guarantees every downstream component sees the same shape.
package record

import (
	"time"

	"github.com/filamentproject/filament/pkg/errors"
)

// Side identifies which population a case record belongs to.
type Side string

const (
	SideRemains Side = "remains"
	SideMissing Side = "missing"
)

// IsValid checks if the side is one of the two populations.
func (s Side) IsValid() bool {
	return s == SideRemains || s == SideMissing
}

// Opposite returns the other population.
func (s Side) Opposite() Side {
	if s == SideRemains {
		return SideMissing
	}
	return SideRemains
}

// ParseSide parses a string into a Side.
func ParseSide(s string) (Side, error) {
	side := Side(s)
	if side.IsValid() {
		return side, nil
	}
	return "", errors.InvalidParam("unsupported record side: " + s)
}

// Sex is the biological-sex attribute of a case record.  Unknown is a first
// class value: it is compatible with everything and contributes neutrally to
// scoring, never as a mismatch.
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// Compatible reports whether two sex values can belong to the same person.
// Unknown on either side is always compatible.
func (s Sex) Compatible(other Sex) bool {
	if s == SexUnknown || other == SexUnknown {
		return true
	}
	return s == other
}

// AgeRange is an estimated age interval in years.  Known is false when the
// source record carried no age information; the range values are then
// meaningless and must not be read.
type AgeRange struct {
	Min   int  `json:"min"`
	Max   int  `json:"max"`
	Known bool `json:"known"`
}

// Overlaps reports whether two age ranges overlap once each is widened by
// the given slack in years.  An unknown range overlaps everything.
func (a AgeRange) Overlaps(b AgeRange, slackBelow, slackAbove int) bool {
	if !a.Known || !b.Known {
		return true
	}
	return a.Max >= b.Min-slackBelow && a.Min <= b.Max+slackAbove
}

// OverlapFraction returns the size of the overlap between two known ranges
// relative to the smaller range, clamped to [0,1].  Returns 0 when the
// ranges are disjoint; callers must check Known first.
func (a AgeRange) OverlapFraction(b AgeRange) float64 {
	lo := a.Min
	if b.Min > lo {
		lo = b.Min
	}
	hi := a.Max
	if b.Max < hi {
		hi = b.Max
	}
	if hi < lo {
		return 0
	}
	span := a.Max - a.Min
	if bs := b.Max - b.Min; bs < span {
		span = bs
	}
	if span <= 0 {
		return 1
	}
	f := float64(hi-lo+1) / float64(span+1)
	if f > 1 {
		return 1
	}
	return f
}

// MeasureRange is a physical measurement interval (height in cm, weight in
// kg) with an explicit Known flag.
type MeasureRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Known bool    `json:"known"`
}

// OverlapsWithin reports whether two known ranges overlap once widened by
// tolerance.  Unknown ranges overlap everything.
func (m MeasureRange) OverlapsWithin(other MeasureRange, tolerance float64) bool {
	if !m.Known || !other.Known {
		return true
	}
	return m.Max+tolerance >= other.Min && m.Min-tolerance <= other.Max
}

// Location is a geographic point with an explicit Known flag.  Remains cases
// carry the discovery location, missing-person cases the last-known location.
type Location struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Known bool    `json:"known"`
}

// Date is a calendar date with an explicit Known flag.  Remains cases carry
// the discovery date, missing-person cases the date of last contact.
type Date struct {
	Time  time.Time `json:"time"`
	Known bool      `json:"known"`
}

// UnknownText is the sentinel for absent categorical text attributes
// (ancestry, hair color, eye color).  Scoring treats it as a neutral
// contribution, never as a mismatch.
const UnknownText = "unknown"

// CaseRecord is the canonical comparable form of one case.  Its identifier
// is unique within its side; the token set is a pure function of the
// normalized free text, so re-normalizing a CaseRecord is a no-op.
type CaseRecord struct {
	ID   string `json:"id"`
	Side Side   `json:"side"`

	Sex      Sex          `json:"sex"`
	Age      AgeRange     `json:"age"`
	Height   MeasureRange `json:"height"` // cm
	Weight   MeasureRange `json:"weight"` // kg
	Ancestry string       `json:"ancestry"`
	Hair     string       `json:"hair"`
	Eyes     string       `json:"eyes"`

	Location Location `json:"location"`
	Date     Date     `json:"date"`

	Description  string `json:"description"`
	ClothingText string `json:"clothing_text"`
	FeatureText  string `json:"feature_text"`

	// Tokens is the lowercased, stopword-filtered token set derived from
	// Description, ClothingText and FeatureText, including two-word phrases.
	// Sorted and deduplicated for deterministic iteration.
	Tokens []string `json:"tokens"`

	// Provenance names the source the record was ingested from.
	Provenance string `json:"provenance"`
}

// HasNarrative reports whether the record carries enough free text to be
// considered narratively rich.  Leads where both sides are rich are flagged
// for reviewers.
func (r *CaseRecord) HasNarrative() bool {
	return len(r.Description) >= richNarrativeMinLen ||
		len(r.FeatureText) >= richNarrativeMinLen
}

// richNarrativeMinLen is the minimum free-text length that counts as a
// usable narrative.
const richNarrativeMinLen = 20

// Validate checks the structural invariants of a CaseRecord.
func (r *CaseRecord) Validate() error {
	if r.ID == "" {
		// The identifier is the one field no sentinel can stand in for.
		return errors.New(errors.ErrCodeMissingField, "case record id must not be empty")
	}
	if !r.Side.IsValid() {
		return errors.InvalidParam("case record side must be remains or missing")
	}
	if r.Age.Known && r.Age.Min > r.Age.Max {
		return errors.InvalidParam("age range min exceeds max").WithDetail("id=" + r.ID)
	}
	if r.Height.Known && r.Height.Min > r.Height.Max {
		return errors.InvalidParam("height range min exceeds max").WithDetail("id=" + r.ID)
	}
	if r.Weight.Known && r.Weight.Min > r.Weight.Max {
		return errors.InvalidParam("weight range min exceeds max").WithDetail("id=" + r.ID)
	}
	return nil
}
