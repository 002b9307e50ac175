package pipeline

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/mapper"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RunProducts writes a ProductMaster and a linked ProductTranslation for every
// product document carrying a category. A failed write counts the document as
// failed and the pass moves on. The pass aborts only when the graph store is
// unreachable or ctx is done.
func (d *Driver) RunProducts(ctx context.Context) (*models.PassSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Driver.RunProducts")
	defer span.End()

	p, err := d.begin(ctx, models.PassProducts)
	if err != nil {
		return nil, err
	}

	err = d.source.Stream(ctx, d.options.ProductsCollection, func(doc models.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return d.writeProduct(ctx, p, doc)
	})
	p.end(ctx, err)

	return p.summary, err
}

func (d *Driver) writeProduct(ctx context.Context, p *pass, doc models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Driver.writeProduct")
	defer span.End()

	result := models.DocumentResult{ID: doc.ID}

	records, err := mapper.MapProduct(doc)
	if err != nil {
		result.Outcome = models.OutcomeSkipped
		result.Reason = err.Error()
		p.record(ctx, result)
		return nil
	}

	if _, err := d.writer.CreateProductMaster(ctx, records.Master); err != nil {
		return d.failDocument(ctx, p, result, err)
	}
	result.Records++

	if _, err := d.writer.CreateProductTranslation(ctx, records.Translation); err != nil {
		return d.failDocument(ctx, p, result, err)
	}
	result.Records++

	result.Outcome = models.OutcomeProcessed
	p.record(ctx, result)
	return nil
}

// failDocument records a failed write. It returns err only when the pass
// cannot continue.
func (d *Driver) failDocument(ctx context.Context, p *pass, result models.DocumentResult, err error) error {
	result.Outcome = models.OutcomeFailed
	result.Reason = err.Error()
	p.record(ctx, result)

	if abortsPass(ctx, err) {
		return err
	}
	return nil
}
