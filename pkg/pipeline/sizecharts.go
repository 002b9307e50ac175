package pipeline

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/mapper"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RunSizeCharts writes one SizeChart per usable size chart row. The combined
// variant also merges the shared Size node and links it to products and to
// the SizeChart.
//
// A measurement that cannot be read as a number aborts the pass and is
// returned as a *mapper.CoercionError.
func (d *Driver) RunSizeCharts(ctx context.Context, variant mapper.Variant) (*models.PassSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Driver.RunSizeCharts")
	defer span.End()

	name := models.PassSizeCharts
	if variant == mapper.VariantCombined {
		name = models.PassCombined
	}

	p, err := d.begin(ctx, name)
	if err != nil {
		return nil, err
	}

	err = d.source.Stream(ctx, d.options.SizeChartsCollection, func(doc models.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return d.writeSizeChart(ctx, p, doc, variant)
	})
	p.end(ctx, err)

	return p.summary, err
}

func (d *Driver) writeSizeChart(ctx context.Context, p *pass, doc models.Document, variant mapper.Variant) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Driver.writeSizeChart")
	defer span.End()

	result := models.DocumentResult{ID: doc.ID}

	records, err := mapper.MapSizeChart(doc, variant)
	if err != nil {
		if mapper.IsFatal(err) {
			result.Outcome = models.OutcomeFailed
			result.Reason = err.Error()
			p.record(ctx, result)
			return err
		}
		result.Outcome = models.OutcomeSkipped
		result.Reason = err.Error()
		p.record(ctx, result)
		return nil
	}

	for _, skip := range records.Skipped {
		metrics.RowsSkippedTotal.WithLabelValues(p.summary.Pass).Inc()
		p.logger.WithFields(map[string]any{
			"document_id": doc.ID,
			"row":         skip.Index,
			"size_label":  skip.Label,
			"reason":      skip.Reason,
		}).Warn("Skipped size chart row")
	}

	for i, row := range records.Rows {
		if variant == mapper.VariantCombined {
			link := records.Links[i]

			if _, err := d.writer.MergeSize(ctx, link); err != nil {
				return d.failDocument(ctx, p, result, err)
			}
			result.Records++

			if _, err := d.writer.MergeSizeChart(ctx, row); err != nil {
				return d.failDocument(ctx, p, result, err)
			}
			result.Records++

			if _, err := d.writer.LinkSizeToSizeChart(ctx, link); err != nil {
				return d.failDocument(ctx, p, result, err)
			}
			result.Records++
			continue
		}

		if _, err := d.writer.MergeSizeChart(ctx, row); err != nil {
			return d.failDocument(ctx, p, result, err)
		}
		result.Records++
	}

	result.Outcome = models.OutcomeProcessed
	p.record(ctx, result)
	return nil
}
