package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadStatus_Transitions(t *testing.T) {
	l := &Lead{RemainsID: "UID-1", MissingID: "MP-1", Status: StatusPending}

	assert.Error(t, l.Transition(StatusConfirmed), "pending cannot skip review")
	assert.NoError(t, l.Transition(StatusReviewed))
	assert.Error(t, l.Transition(StatusPending), "no way back to pending")
	assert.NoError(t, l.Transition(StatusConfirmed))
	assert.Error(t, l.Transition(StatusRejected), "confirmed is terminal")
	assert.Error(t, l.Transition(LeadStatus("archived")))
}

func TestLead_PairKey(t *testing.T) {
	a := &Lead{RemainsID: "UID-1", MissingID: "MP-2"}
	b := &Lead{RemainsID: "UID-1", MissingID: "MP-2"}
	c := &Lead{RemainsID: "UID-12", MissingID: "MP-2"}
	assert.Equal(t, a.PairKey(), b.PairKey())
	assert.NotEqual(t, a.PairKey(), c.PairKey())
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityHigh, PriorityFor(0.70))
	assert.Equal(t, PriorityHigh, PriorityFor(0.95))
	assert.Equal(t, PriorityMedium, PriorityFor(0.69))
	assert.Equal(t, PriorityMedium, PriorityFor(0.50))
	assert.Equal(t, PriorityLow, PriorityFor(0.49))
}

func TestLeadDisclaimer_NotIdentification(t *testing.T) {
	assert.Contains(t, LeadDisclaimer, "not identifications")
}
