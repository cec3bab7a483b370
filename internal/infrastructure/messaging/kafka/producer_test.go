package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/internal/domain/match"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	apperrors "github.com/filamentproject/filament/pkg/errors"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func newTestPublisher(w leadWriter) *LeadPublisher {
	return &LeadPublisher{writer: w, topic: "filament.leads", logger: logging.NewNopLogger()}
}

func sampleLead(remainsID, missingID string, composite float64) match.Lead {
	return match.Lead{
		RunID:     "run-1",
		RemainsID: remainsID,
		MissingID: missingID,
		Scores: match.Scores{
			Structured: 0.8,
			Rarity:     0.6,
			Composite:  composite,
		},
		Status:       match.StatusPending,
		SharedTokens: []string{"toboggan"},
		Reasons:      []string{`shared distinctive token "toboggan"`},
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishLeads(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	leads := []match.Lead{
		sampleLead("UID-1", "MP-1", 0.82),
		sampleLead("UID-1", "MP-2", 0.55),
	}
	require.NoError(t, p.PublishLeads(context.Background(), leads))
	require.Len(t, w.messages, 2)

	assert.Equal(t, []byte("UID-1"), w.messages[0].Key)

	var event LeadEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, "MP-1", event.MissingID)
	assert.Equal(t, string(match.PriorityHigh), event.Priority)
	assert.Equal(t, 0.82, event.Scores.Composite)
	assert.True(t, strings.Contains(event.Disclaimer, "not identifications"))

	require.NoError(t, json.Unmarshal(w.messages[1].Value, &event))
	assert.Equal(t, string(match.PriorityMedium), event.Priority)
}

func TestPublishLeads_Empty(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	require.NoError(t, p.PublishLeads(context.Background(), nil))
	assert.Empty(t, w.messages)
}

func TestPublishLeads_WriteFailure(t *testing.T) {
	p := newTestPublisher(&fakeWriter{err: assert.AnError})

	err := p.PublishLeads(context.Background(), []match.Lead{sampleLead("UID-1", "MP-1", 0.9)})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalService))
	assert.False(t, apperrors.IsRunFatal(err))
}

func TestParseAcks(t *testing.T) {
	acks, err := parseAcks("")
	require.NoError(t, err)
	assert.Equal(t, kafkago.RequireAll, acks)

	acks, err = parseAcks("one")
	require.NoError(t, err)
	assert.Equal(t, kafkago.RequireOne, acks)

	_, err = parseAcks("quorum")
	assert.Error(t, err)
}
