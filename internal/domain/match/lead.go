package match

import (
	"time"

	"github.com/filamentproject/filament/pkg/errors"
)

// LeadDisclaimer accompanies every emitted lead list.  Scores are ranking
// signals for human review, never assertions of identity.
const LeadDisclaimer = "Scores are investigative leads generated by automated comparison. " +
	"They are not identifications and require human review and forensic confirmation."

// LeadStatus is the review state of a lead.  The engine only ever produces
// pending leads; every other transition is an external reviewer action.
type LeadStatus string

const (
	StatusPending   LeadStatus = "pending"
	StatusReviewed  LeadStatus = "reviewed"
	StatusConfirmed LeadStatus = "confirmed"
	StatusRejected  LeadStatus = "rejected"
)

// IsValid checks if the status is a known state.
func (s LeadStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo enforces pending → reviewed → {confirmed, rejected}.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusReviewed
	case StatusReviewed:
		return next == StatusConfirmed || next == StatusRejected
	}
	return false
}

// Priority is the review-urgency band derived from the composite score.  It
// exists only at the report surface; ranking uses raw scores.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

const (
	priorityHighMin   = 0.70
	priorityMediumMin = 0.50
)

// PriorityFor bands a composite score.
func PriorityFor(composite float64) Priority {
	switch {
	case composite >= priorityHighMin:
		return PriorityHigh
	case composite >= priorityMediumMin:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Scores holds the component breakdown of one lead.  Graph and Vector are
// nil when the corresponding provider was absent, errored, or timed out for
// the pair; a nil signal was excluded from fusion, not scored as zero.
type Scores struct {
	Structured float64  `json:"structured"`
	Geographic float64  `json:"geographic"`
	Timeframe  float64  `json:"timeframe"`
	Rarity     float64  `json:"rarity"`
	Graph      *float64 `json:"graph,omitempty"`
	Vector     *float64 `json:"vector,omitempty"`
	Composite  float64  `json:"composite"`
}

// Lead is one scored (remains, missing) pair.  At most one lead exists per
// pair key per run, and the engine never mutates a lead after emission.
type Lead struct {
	RunID     string     `json:"run_id"`
	RemainsID string     `json:"remains_id"`
	MissingID string     `json:"missing_id"`
	Scores    Scores     `json:"scores"`
	Status    LeadStatus `json:"status"`

	// SharedTokens are the distinctive tokens found on both sides, ordered by
	// descending rarity weight.
	SharedTokens []string `json:"shared_tokens"`

	// Reasons are reviewer-facing evidence lines explaining the score.
	Reasons []string `json:"reasons"`

	// RichNarrative flags that both sides carry a usable free-text narrative,
	// so a reviewer has material to compare beyond structured fields.
	RichNarrative bool `json:"rich_narrative"`

	CreatedAt time.Time `json:"created_at"`
}

// PairKey returns the unordered pair key used for deduplication.
func (l *Lead) PairKey() string {
	return l.RemainsID + "\x1f" + l.MissingID
}

// Priority returns the review-urgency band of the lead.
func (l *Lead) Priority() Priority { return PriorityFor(l.Scores.Composite) }

// Transition applies a reviewer-driven status change.
func (l *Lead) Transition(next LeadStatus) error {
	if !next.IsValid() {
		return errors.InvalidParam("unknown lead status: " + string(next))
	}
	if !l.Status.CanTransitionTo(next) {
		return errors.InvalidParam(
			"illegal lead status transition: " + string(l.Status) + " -> " + string(next))
	}
	l.Status = next
	return nil
}
