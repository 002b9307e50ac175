package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string { return &s }

type failingSink struct {
	err error
}

func (s failingSink) Run(context.Context, Statement) (*Summary, error) {
	return nil, s.err
}

func TestWriter_CreateProductMasterDuplicatesOnRerun(t *testing.T) {
	g := NewMemoryGraph()
	w := NewWriter(g, testLogger(), WriterOptions{})
	ctx := context.Background()

	pm := &models.ProductMaster{ProductID: "p1", SKU: "SKU1"}

	_, err := w.CreateProductMaster(ctx, pm)
	require.NoError(t, err)
	_, err = w.CreateProductMaster(ctx, pm)
	require.NoError(t, err)

	nodes := g.Nodes(models.LabelProductMaster)
	require.Len(t, nodes, 2)
	assert.NotEqual(t, nodes[0].ID, nodes[1].ID)
	assert.Equal(t, "p1", nodes[0].Props[models.KeyProductID])
	assert.Equal(t, "p1", nodes[1].Props[models.KeyProductID])
}

func TestWriter_StrictProductsMergesOnRerun(t *testing.T) {
	g := NewMemoryGraph()
	w := NewWriter(g, testLogger(), WriterOptions{StrictProducts: true})
	ctx := context.Background()

	pm := &models.ProductMaster{ProductID: "p1"}
	pt := &models.ProductTranslation{ProductID: "p1", Label: "Tee"}

	for i := 0; i < 2; i++ {
		_, err := w.CreateProductMaster(ctx, pm)
		require.NoError(t, err)
		_, err = w.CreateProductTranslation(ctx, pt)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, g.CountNodes(models.LabelProductMaster))
	assert.Equal(t, 1, g.CountNodes(models.LabelProductTranslation))
	assert.Equal(t, 1, g.CountEdges(models.RelHasTranslation))
}

func TestWriter_ProductScenario(t *testing.T) {
	g := NewMemoryGraph()
	w := NewWriter(g, testLogger(), WriterOptions{})
	ctx := context.Background()

	_, err := w.CreateProductMaster(ctx, &models.ProductMaster{
		ProductID:    "P1",
		SKU:          "SKU1",
		Images:       []string{"http://x/1.jpg"},
		CurrentPrice: int64(50),
	})
	require.NoError(t, err)

	summary, err := w.CreateProductTranslation(ctx, &models.ProductTranslation{ProductID: "P1", Label: "Runner"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Matched)

	masters := g.Nodes(models.LabelProductMaster)
	require.Len(t, masters, 1)
	assert.Equal(t, "P1", masters[0].Props["product_id"])
	assert.Equal(t, "SKU1", masters[0].Props["product_sku"])
	assert.Equal(t, []string{"http://x/1.jpg"}, masters[0].Props["product_images"])

	edges := g.Edges(models.RelHasTranslation)
	require.Len(t, edges, 1)
	assert.Equal(t, masters[0].ID, edges[0].From.ID)
	assert.Equal(t, "Runner", edges[0].To.Props["product_label"])
}

func TestWriter_TranslationWithoutMasterWarns(t *testing.T) {
	g := NewMemoryGraph()
	w := NewWriter(g, testLogger(), WriterOptions{})

	before := testutil.ToFloat64(metrics.GraphUnmatchedTotal.WithLabelValues(models.RelHasTranslation))

	summary, err := w.CreateProductTranslation(context.Background(), &models.ProductTranslation{ProductID: "ghost"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.Matched)
	assert.Equal(t, 0, g.CountNodes(models.LabelProductTranslation))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GraphUnmatchedTotal.WithLabelValues(models.RelHasTranslation)))
}

func TestWriter_SizeMergesAreIdempotent(t *testing.T) {
	g := NewMemoryGraph()
	w := NewWriter(g, testLogger(), WriterOptions{})
	ctx := context.Background()

	g.Seed(models.LabelProductMaster, map[string]any{models.KeyProductID: "p1", models.KeySizeChartMasterID: "SC1"})

	row := &models.SizeChartRow{
		MasterID:      "SC1",
		UniqueID:      "SC1_S",
		SizeLabel:     "S",
		BrandLabel:    strPtr("Acme"),
		TypeLabelLong: strPtr("tops"),
		Measurements:  map[string]float64{"chest_width": 34.5},
	}
	link := &models.SizeLink{DocumentID: "SC1", SizeLabel: "S", SizeChartID: "SC1_S"}

	apply := func() {
		_, err := w.MergeSize(ctx, link)
		require.NoError(t, err)
		_, err = w.MergeSizeChart(ctx, row)
		require.NoError(t, err)
		_, err = w.LinkSizeToSizeChart(ctx, link)
		require.NoError(t, err)
	}

	apply()
	once := g.Nodes(models.LabelSizeChart)
	apply()

	assert.Equal(t, 1, g.CountNodes(models.LabelSize))
	assert.Equal(t, 1, g.CountNodes(models.LabelSizeChart))
	assert.Equal(t, 1, g.CountEdges(models.RelHasSize))
	assert.Equal(t, 1, g.CountEdges(models.RelHasSizeChart))

	twice := g.Nodes(models.LabelSizeChart)
	assert.Equal(t, once[0].Props, twice[0].Props)
	assert.Equal(t, 34.5, twice[0].Props["chest_width"])
	assert.Equal(t, "Acme", twice[0].Props[models.KeyBrandLabel])
}

func TestWriter_MergeSizeWithoutProductsStillCreatesSize(t *testing.T) {
	g := NewMemoryGraph()
	w := NewWriter(g, testLogger(), WriterOptions{})

	before := testutil.ToFloat64(metrics.GraphUnmatchedTotal.WithLabelValues(models.RelHasSize))

	summary, err := w.MergeSize(context.Background(), &models.SizeLink{DocumentID: "SC9", SizeLabel: "XL"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.Matched)
	assert.Equal(t, 1, g.CountNodes(models.LabelSize))
	assert.Equal(t, 0, g.CountEdges(models.RelHasSize))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GraphUnmatchedTotal.WithLabelValues(models.RelHasSize)))
}

func TestWriter_MergeTypePriority(t *testing.T) {
	g := NewMemoryGraph()
	w := NewWriter(g, testLogger(), WriterOptions{})
	ctx := context.Background()

	g.Seed(models.LabelType, map[string]any{models.KeyTypeLabelLong: "tops"})
	g.Seed(models.LabelSizeChart, map[string]any{models.KeySizeChartUniqueID: "a", models.KeyTypeLabelShort: "top"})
	g.Seed(models.LabelSizeChart, map[string]any{models.KeySizeChartUniqueID: "b", models.KeyTypeLabelShort: "top"})

	a := &models.PriorityAssignment{TypeLabelLong: "tops", TypeLabelShort: "top", Priority: 1}

	summary, err := w.MergeTypePriority(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Matched)

	a.Priority = 3
	_, err = w.MergeTypePriority(ctx, a)
	require.NoError(t, err)

	edges := g.Edges(models.RelHasSizeChart)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, 3.0, e.Props[models.KeyPriority])
	}
}

func TestWriter_PropagatesSinkErrors(t *testing.T) {
	sinkErr := errors.New("boom")
	w := NewWriter(failingSink{err: sinkErr}, testLogger(), WriterOptions{})

	_, err := w.CreateProductMaster(context.Background(), &models.ProductMaster{ProductID: "p1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
	assert.Contains(t, err.Error(), "failed to write product master p1")

	_, err = w.MergeSize(context.Background(), &models.SizeLink{SizeLabel: "S"})
	assert.ErrorIs(t, err, sinkErr)
}
