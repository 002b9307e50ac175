package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// WriterOptions controls how product records are written
type WriterOptions struct {
	// StrictProducts merges ProductMaster on product_id and keeps a single
	// translation per master, so re-running the products pass is idempotent.
	StrictProducts bool
}

// Writer turns catalog records into graph writes
type Writer struct {
	sink    Sink
	logger  ectologger.Logger
	options WriterOptions
}

// NewWriter creates a new writer over the given sink
func NewWriter(sink Sink, logger ectologger.Logger, options WriterOptions) *Writer {
	return &Writer{
		sink:    sink,
		logger:  logger,
		options: options,
	}
}

// CreateProductMaster inserts a ProductMaster node. Without strict mode every
// call creates a new node, even for a product_id already in the graph.
func (w *Writer) CreateProductMaster(ctx context.Context, pm *models.ProductMaster) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Writer.CreateProductMaster")
	defer span.End()

	var op Op = CreateNode{Label: models.LabelProductMaster, Props: pm.Properties()}
	if w.options.StrictProducts {
		op = MergeNode{Label: models.LabelProductMaster, Key: models.KeyProductID, Props: pm.Properties()}
	}

	summary, err := w.run(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to write product master %s: %w", pm.ProductID, err)
	}
	return summary, nil
}

// CreateProductTranslation inserts a ProductTranslation node under every
// ProductMaster with the same product_id
func (w *Writer) CreateProductTranslation(ctx context.Context, pt *models.ProductTranslation) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Writer.CreateProductTranslation")
	defer span.End()

	op := CreateNode{
		Label: models.LabelProductTranslation,
		Props: pt.Properties(),
		Link: &Link{
			From: NodeMatch{
				Label: models.LabelProductMaster,
				Props: map[string]any{models.KeyProductID: pt.ProductID},
			},
			Type:   models.RelHasTranslation,
			Unique: w.options.StrictProducts,
		},
	}

	summary, err := w.run(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to write product translation %s: %w", pt.ProductID, err)
	}

	if summary.Matched == 0 {
		w.unmatched(ctx, models.RelHasTranslation, map[string]any{
			"product_id": pt.ProductID,
		})
	}
	return summary, nil
}

// MergeSizeChart merges a SizeChart node on its size_chart_unique_id
func (w *Writer) MergeSizeChart(ctx context.Context, row *models.SizeChartRow) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Writer.MergeSizeChart")
	defer span.End()

	op := MergeNode{
		Label: models.LabelSizeChart,
		Key:   models.KeySizeChartUniqueID,
		Props: row.Properties(),
	}

	summary, err := w.run(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("failed to merge size chart %s: %w", row.UniqueID, err)
	}
	return summary, nil
}

// MergeSize merges the shared Size node for the label and links it from every
// ProductMaster that references the size chart document
func (w *Writer) MergeSize(ctx context.Context, link *models.SizeLink) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Writer.MergeSize")
	defer span.End()

	sizeProps := map[string]any{models.KeySizeLabel: link.SizeLabel}

	if _, err := w.run(ctx, MergeNode{Label: models.LabelSize, Key: models.KeySizeLabel, Props: sizeProps}); err != nil {
		return nil, fmt.Errorf("failed to merge size %q: %w", link.SizeLabel, err)
	}

	summary, err := w.run(ctx, MergeEdge{
		From: NodeMatch{
			Label: models.LabelProductMaster,
			Props: map[string]any{models.KeySizeChartMasterID: link.DocumentID},
		},
		To:   NodeMatch{Label: models.LabelSize, Props: sizeProps},
		Type: models.RelHasSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to link size %q to products: %w", link.SizeLabel, err)
	}

	if summary.Matched == 0 {
		w.unmatched(ctx, models.RelHasSize, map[string]any{
			"size_chart_master_id": link.DocumentID,
			"size_label":           link.SizeLabel,
		})
	}
	return summary, nil
}

// LinkSizeToSizeChart connects the Size node to the row's SizeChart node
func (w *Writer) LinkSizeToSizeChart(ctx context.Context, link *models.SizeLink) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Writer.LinkSizeToSizeChart")
	defer span.End()

	summary, err := w.run(ctx, MergeEdge{
		From: NodeMatch{
			Label: models.LabelSize,
			Props: map[string]any{models.KeySizeLabel: link.SizeLabel},
		},
		To: NodeMatch{
			Label: models.LabelSizeChart,
			Props: map[string]any{models.KeySizeChartUniqueID: link.SizeChartID},
		},
		Type: models.RelHasSizeChart,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to link size %q to size chart %s: %w", link.SizeLabel, link.SizeChartID, err)
	}

	if summary.Matched == 0 {
		w.unmatched(ctx, models.RelHasSizeChart, map[string]any{
			"size_label":           link.SizeLabel,
			"size_chart_unique_id": link.SizeChartID,
		})
	}
	return summary, nil
}

// MergeTypePriority links a Type to every SizeChart sharing the short type label
// and sets the priority on each relationship. Summary.Matched is the number of
// size charts linked.
func (w *Writer) MergeTypePriority(ctx context.Context, a *models.PriorityAssignment) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Writer.MergeTypePriority")
	defer span.End()

	summary, err := w.run(ctx, MergeEdge{
		From: NodeMatch{
			Label: models.LabelType,
			Props: map[string]any{models.KeyTypeLabelLong: a.TypeLabelLong},
		},
		To: NodeMatch{
			Label: models.LabelSizeChart,
			Props: map[string]any{models.KeyTypeLabelShort: a.TypeLabelShort},
		},
		Type:  models.RelHasSizeChart,
		Props: map[string]any{models.KeyPriority: a.Priority},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set priority for type %q: %w", a.TypeLabelLong, err)
	}

	if summary.Matched == 0 {
		w.unmatched(ctx, models.RelHasSizeChart, map[string]any{
			"type_label_long":  a.TypeLabelLong,
			"type_label_short": a.TypeLabelShort,
		})
	}
	return summary, nil
}

func (w *Writer) run(ctx context.Context, op Op) (*Summary, error) {
	name := OpName(op)

	stmt, err := NewStatement(op)
	if err != nil {
		metrics.GraphWritesTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}

	summary, err := w.sink.Run(ctx, stmt)
	if err != nil {
		metrics.GraphWritesTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}

	metrics.GraphWritesTotal.WithLabelValues(name, "success").Inc()
	return summary, nil
}

func (w *Writer) unmatched(ctx context.Context, relType string, fields map[string]any) {
	metrics.GraphUnmatchedTotal.WithLabelValues(relType).Inc()

	fields["relationship"] = relType
	w.logger.WithContext(ctx).WithFields(fields).Warn("No matching nodes found for relationship")
}
