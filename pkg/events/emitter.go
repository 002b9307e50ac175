// Package events emits migration lifecycle events
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Event types
const (
	EventDocumentProcessed = "document.processed"
	EventDocumentSkipped   = "document.skipped"
	EventDocumentFailed    = "document.failed"
	EventPassCompleted     = "pass.completed"
	EventPassAborted       = "pass.aborted"
)

// Publisher publishes migration events
type Publisher interface {
	Publish(ctx context.Context, events ...*kafka.MigrationEvent) error
}

// Emitter turns pass progress into events. Publish failures are logged and
// never fail the pass.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter. A nil publisher disables emission.
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitDocument emits the outcome of a single document
func (e *Emitter) EmitDocument(ctx context.Context, runID, pass string, result models.DocumentResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocument")
	defer span.End()

	eventType := EventDocumentProcessed
	switch result.Outcome {
	case models.OutcomeSkipped:
		eventType = EventDocumentSkipped
	case models.OutcomeFailed:
		eventType = EventDocumentFailed
	}

	e.publish(ctx, &kafka.MigrationEvent{
		EventType:  eventType,
		RunID:      runID,
		Pass:       pass,
		DocumentID: result.ID,
		Outcome:    result.Outcome,
		Reason:     result.Reason,
		Records:    result.Records,
		TraceID:    tracing.GetTraceID(ctx),
	})
}

// EmitPass emits the final summary of a pass
func (e *Emitter) EmitPass(ctx context.Context, summary *models.PassSummary) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPass")
	defer span.End()

	eventType := EventPassCompleted
	if summary.Aborted {
		eventType = EventPassAborted
	}

	e.publish(ctx, &kafka.MigrationEvent{
		EventType: eventType,
		RunID:     summary.RunID,
		Pass:      summary.Pass,
		Summary:   summary,
		TraceID:   tracing.GetTraceID(ctx),
	})
}

func (e *Emitter) publish(ctx context.Context, event *kafka.MigrationEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.EventType,
			"run_id":     event.RunID,
		}).Error("Failed to emit migration event")
	}
}
