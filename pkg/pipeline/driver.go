// Package pipeline runs the migration passes: stream documents, map them to
// records and write the records to the graph, one document at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/mapper"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/source"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrPassInProgress is returned when another pass holds the run lock
var ErrPassInProgress = errors.New("a migration pass is already in progress")

// lockKey is shared by every pass so that at most one runs at a time
const lockKey = "migration"

// Locker guards passes across processes. The returned function releases the lock.
type Locker interface {
	Guard(ctx context.Context, key string) (func(context.Context) error, error)
}

// Options configures the collections a Driver reads
type Options struct {
	ProductsCollection   string
	SizeChartsCollection string
}

// Driver runs migration passes sequentially
type Driver struct {
	source  source.Source
	writer  *graph.Writer
	emitter *events.Emitter
	locker  Locker
	logger  ectologger.Logger
	options Options

	running sync.Mutex
}

// NewDriver creates a new pipeline driver. emitter and locker may be nil.
func NewDriver(src source.Source, writer *graph.Writer, emitter *events.Emitter, locker Locker, logger ectologger.Logger, options Options) *Driver {
	if options.ProductsCollection == "" {
		options.ProductsCollection = models.CollectionProducts
	}
	if options.SizeChartsCollection == "" {
		options.SizeChartsCollection = models.CollectionSizeCharts
	}
	return &Driver{
		source:  src,
		writer:  writer,
		emitter: emitter,
		locker:  locker,
		logger:  logger,
		options: options,
	}
}

// pass tracks one run of a pass from lock acquisition to summary
type pass struct {
	driver  *Driver
	summary *models.PassSummary
	logger  ectologger.Logger
	release func(context.Context) error
}

func (d *Driver) begin(ctx context.Context, name string) (*pass, error) {
	if !d.running.TryLock() {
		return nil, ErrPassInProgress
	}

	var release func(context.Context) error
	if d.locker != nil {
		var err error
		release, err = d.locker.Guard(ctx, lockKey)
		if err != nil {
			d.running.Unlock()
			if errors.Is(err, redis.ErrLockNotAcquired) {
				return nil, ErrPassInProgress
			}
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
	}

	summary := &models.PassSummary{
		Pass:    name,
		RunID:   uuid.New().String(),
		Started: time.Now().UTC(),
	}

	logger := d.logger.WithContext(ctx).WithFields(map[string]any{
		"pass":   name,
		"run_id": summary.RunID,
	})
	logger.Info("Starting migration pass")
	metrics.PassRunning.WithLabelValues(name).Set(1)

	return &pass{
		driver:  d,
		summary: summary,
		logger:  logger,
		release: release,
	}, nil
}

// record counts a document outcome, logs a progress line and emits the event
func (p *pass) record(ctx context.Context, result models.DocumentResult) {
	p.summary.Record(result)
	metrics.DocumentsTotal.WithLabelValues(p.summary.Pass, string(result.Outcome)).Inc()

	log := p.logger.WithFields(map[string]any{
		"document_id": result.ID,
		"records":     result.Records,
		"processed":   p.summary.Processed,
		"skipped":     p.summary.Skipped,
		"failed":      p.summary.Failed,
	})
	switch result.Outcome {
	case models.OutcomeProcessed:
		log.Info("Processed document")
	case models.OutcomeSkipped:
		log.WithField("reason", result.Reason).Warn("Skipped document")
	case models.OutcomeFailed:
		log.WithField("reason", result.Reason).Error("Failed document")
	}

	p.driver.emitter.EmitDocument(ctx, p.summary.RunID, p.summary.Pass, result)
}

// end closes the pass. It always releases the lock, even when err is set.
func (p *pass) end(ctx context.Context, err error) {
	p.summary.Finished = time.Now().UTC()
	p.summary.Aborted = p.summary.Aborted || err != nil

	status := "completed"
	if p.summary.Aborted {
		status = "aborted"
	}

	metrics.PassRunning.WithLabelValues(p.summary.Pass).Set(0)
	metrics.PassesTotal.WithLabelValues(p.summary.Pass, status).Inc()
	metrics.PassDuration.WithLabelValues(p.summary.Pass).Observe(p.summary.Duration().Seconds())

	log := p.logger.WithFields(map[string]any{
		"processed":   p.summary.Processed,
		"skipped":     p.summary.Skipped,
		"failed":      p.summary.Failed,
		"status":      status,
		"duration_ms": p.summary.Duration().Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Error("Migration pass aborted")
	} else {
		log.Info("Migration pass finished")
	}

	p.driver.emitter.EmitPass(ctx, p.summary)

	if p.release != nil {
		// the pass context may already be cancelled
		if relErr := p.release(context.WithoutCancel(ctx)); relErr != nil {
			p.logger.WithError(relErr).Warn("Failed to release run lock")
		}
	}
	p.driver.running.Unlock()
}

// abortsPass reports whether a write error must stop the whole pass
func abortsPass(ctx context.Context, err error) bool {
	return errors.Is(err, graph.ErrUnavailable) || ctx.Err() != nil
}

// RunCombined runs the products pass and then the combined size chart pass.
// The size chart pass does not start if the products pass aborts.
func (d *Driver) RunCombined(ctx context.Context) ([]*models.PassSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Driver.RunCombined")
	defer span.End()

	var summaries []*models.PassSummary

	products, err := d.RunProducts(ctx)
	if products != nil {
		summaries = append(summaries, products)
	}
	if err != nil {
		return summaries, err
	}

	sizeCharts, err := d.RunSizeCharts(ctx, mapper.VariantCombined)
	if sizeCharts != nil {
		summaries = append(summaries, sizeCharts)
	}
	return summaries, err
}
