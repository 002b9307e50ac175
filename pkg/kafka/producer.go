// Package kafka publishes migration events
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the migration event schema version
const SchemaVersion = "1.0"

// MessageWriter is the subset of kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes migration events to a topic
type Producer struct {
	writer MessageWriter
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	var compression kafka.Compression
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "snappy":
		compression = kafka.Snappy
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, cfg.Topic, logger)
}

// NewProducerWithWriter creates a producer over an existing writer
func NewProducerWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MigrationEvent reports progress of a migration pass. Document events carry
// the document fields and pass events carry Summary.
type MigrationEvent struct {
	EventType  string              `json:"event_type"`
	RunID      string              `json:"run_id"`
	Pass       string              `json:"pass"`
	DocumentID string              `json:"document_id,omitempty"`
	Outcome    models.Outcome      `json:"outcome,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Records    int                 `json:"records,omitempty"`
	Summary    *models.PassSummary `json:"summary,omitempty"`
	TraceID    string              `json:"trace_id,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

func (e *MigrationEvent) key() string {
	if e.DocumentID != "" {
		return e.DocumentID
	}
	return e.RunID
}

// Publish writes the events in one batch, keyed by document id or run id
func (p *Producer) Publish(ctx context.Context, events ...*MigrationEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
		}

		messages[i] = kafka.Message{
			Key:   []byte(event.key()),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "pass", Value: []byte(event.Pass)},
				{Key: "schema_version", Value: []byte(SchemaVersion)},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to publish %d events to %s: %w", len(events), p.topic, err)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
		"topic":      p.topic,
	}).Debug("Published migration events")

	return nil
}
