// Package kafka publishes finished leads to the downstream lead topic so
// review tooling can consume them as they are produced.
package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/filamentproject/filament/internal/domain/match"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// Config holds the lead-topic producer parameters.
type Config struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks string        `mapstructure:"required_acks"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// leadWriter abstracts kafka.Writer for testing.
type leadWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LeadEvent is the wire form of one published lead.  The disclaimer rides
// along so no consumer can display a lead without it.
type LeadEvent struct {
	RunID         string       `json:"run_id"`
	RemainsID     string       `json:"remains_id"`
	MissingID     string       `json:"missing_id"`
	Priority      string       `json:"priority"`
	Scores        match.Scores `json:"scores"`
	SharedTokens  []string     `json:"shared_tokens"`
	Reasons       []string     `json:"reasons"`
	RichNarrative bool         `json:"rich_narrative"`
	Disclaimer    string       `json:"disclaimer"`
	CreatedAt     time.Time    `json:"created_at"`
}

// LeadPublisher writes lead events to the configured topic.  Publishing is a
// notification channel, not the system of record: the engine persists leads
// to the database first and treats publish failures as non-fatal.
type LeadPublisher struct {
	writer leadWriter
	topic  string
	logger logging.Logger
	once   sync.Once
}

// NewLeadPublisher builds a publisher over the configured brokers.
func NewLeadPublisher(cfg Config, log logging.Logger) (*LeadPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.InvalidParam("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.InvalidParam("kafka topic is required")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	acks, err := parseAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: acks,
	}
	return &LeadPublisher{
		writer: writer,
		topic:  cfg.Topic,
		logger: log.Named("lead_publisher"),
	}, nil
}

func parseAcks(acks string) (kafka.RequiredAcks, error) {
	switch acks {
	case "", "all":
		return kafka.RequireAll, nil
	case "one":
		return kafka.RequireOne, nil
	case "none":
		return kafka.RequireNone, nil
	default:
		return 0, errors.InvalidParam("required_acks must be all, one or none")
	}
}

// PublishLeads writes one event per lead in a single batch.  Messages are
// keyed by remains id so all leads for one remains case share a partition.
func (p *LeadPublisher) PublishLeads(ctx context.Context, leads []match.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(leads))
	for _, lead := range leads {
		event := LeadEvent{
			RunID:         lead.RunID,
			RemainsID:     lead.RemainsID,
			MissingID:     lead.MissingID,
			Priority:      string(match.PriorityFor(lead.Scores.Composite)),
			Scores:        lead.Scores,
			SharedTokens:  lead.SharedTokens,
			Reasons:       lead.Reasons,
			RichNarrative: lead.RichNarrative,
			Disclaimer:    match.LeadDisclaimer,
			CreatedAt:     lead.CreatedAt,
		}
		value, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode lead event")
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(lead.RemainsID),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to publish leads").
			WithDetail("topic=" + p.topic)
	}
	p.logger.Info("published leads",
		logging.String("topic", p.topic),
		logging.Int("count", len(msgs)),
	)
	return nil
}

// Close flushes and closes the underlying writer.  Safe to call more than
// once.
func (p *LeadPublisher) Close() error {
	var err error
	p.once.Do(func() {
		err = p.writer.Close()
	})
	return err
}
