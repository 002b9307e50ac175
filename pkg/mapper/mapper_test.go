package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func sizeChartDoc(id string, body map[string]any) models.Document {
	return models.Document{
		ID: id,
		Data: map[string]any{
			"json": map[string]any{"sizechart": body},
		},
	}
}

func header(measures ...string) []any {
	out := make([]any, len(measures))
	for i, m := range measures {
		out[i] = map[string]any{"measure": m}
	}
	return out
}

func TestMapProduct_MissingCategoryIsSkipped(t *testing.T) {
	records, err := MapProduct(models.Document{
		ID:   "p1",
		Data: map[string]any{"name": "Tee", "sku": "S1"},
	})

	require.Error(t, err)
	assert.True(t, IsSkip(err))
	assert.ErrorIs(t, err, ErrMissingCategory)
	assert.Nil(t, records)
}

func TestMapProduct_NullCategoryStillQualifies(t *testing.T) {
	records, err := MapProduct(models.Document{
		ID:   "p1",
		Data: map[string]any{"popsize_category": nil},
	})

	require.NoError(t, err)
	require.NotNil(t, records.Master)
	assert.Nil(t, records.Master.TypeLabelLong)
}

func TestMapProduct(t *testing.T) {
	records, err := MapProduct(models.Document{
		ID: "P1",
		Data: map[string]any{
			"popsize_category": "shoes",
			"name":             "Runner",
			"images":           []any{map[string]any{"url": "http://x/1.jpg"}},
			"price":            int64(50),
			"sku":              "SKU1",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "P1", records.Master.ProductID)
	assert.Equal(t, "SKU1", records.Master.SKU)
	assert.Equal(t, []string{"http://x/1.jpg"}, records.Master.Images)
	assert.Equal(t, "P1", records.Translation.ProductID)
	assert.Equal(t, "Runner", records.Translation.Label)
}

func TestMapSizeChart_InvalidDocumentsAreSkipped(t *testing.T) {
	tests := []struct {
		name string
		doc  models.Document
		want error
	}{
		{
			name: "no body",
			doc:  models.Document{ID: "sc", Data: map[string]any{}},
			want: ErrInvalidColumnHeader,
		},
		{
			name: "missing column header",
			doc:  sizeChartDoc("sc", map[string]any{"rows": []any{}}),
			want: ErrInvalidColumnHeader,
		},
		{
			name: "column header is not a list",
			doc:  sizeChartDoc("sc", map[string]any{"column_header": "chest", "rows": []any{}}),
			want: ErrInvalidColumnHeader,
		},
		{
			name: "missing rows",
			doc:  sizeChartDoc("sc", map[string]any{"column_header": header("chest")}),
			want: ErrInvalidRows,
		},
		{
			name: "rows is a map",
			doc:  sizeChartDoc("sc", map[string]any{"column_header": header("chest"), "rows": map[string]any{}}),
			want: ErrInvalidRows,
		},
	}

	for _, variant := range []Variant{VariantSizeChartOnly, VariantCombined} {
		for _, tt := range tests {
			t.Run(variant.String()+"/"+tt.name, func(t *testing.T) {
				records, err := MapSizeChart(tt.doc, variant)
				require.Error(t, err)
				assert.True(t, IsSkip(err))
				assert.ErrorIs(t, err, tt.want)
				assert.Nil(t, records)
			})
		}
	}
}

func TestMapSizeChart(t *testing.T) {
	doc := sizeChartDoc("SC1", map[string]any{
		"column_header": header("chest width"),
		"rows": []any{
			map[string]any{"row_header": " S ", "values": []any{34.5}},
		},
	})

	records, err := MapSizeChart(doc, VariantSizeChartOnly)
	require.NoError(t, err)
	require.Len(t, records.Rows, 1)

	row := records.Rows[0]
	assert.Equal(t, "SC1_S", row.UniqueID)
	assert.Equal(t, "S", row.SizeLabel)
	assert.Equal(t, "SC1", row.MasterID)
	assert.Equal(t, map[string]float64{"chest_width": 34.5}, row.Measurements)
	assert.Empty(t, records.Links)

	props := row.Properties()
	assert.Equal(t, 34.5, props["chest_width"])
	assert.NotContains(t, props, models.KeyBrandLabel)
	assert.NotContains(t, props, models.KeyTypeLabelLong)
}

func TestMapSizeChart_ShortValuesBindOnlyProvidedMeasures(t *testing.T) {
	doc := sizeChartDoc("SC2", map[string]any{
		"column_header": header("chest", "waist", "hip"),
		"rows": []any{
			map[string]any{"row_header": "M", "values": []any{40.0, "32"}},
		},
	})

	records, err := MapSizeChart(doc, VariantSizeChartOnly)
	require.NoError(t, err)
	require.Len(t, records.Rows, 1)

	measurements := records.Rows[0].Measurements
	assert.Len(t, measurements, 2)
	assert.Equal(t, 40.0, measurements["chest"])
	assert.Equal(t, 32.0, measurements["waist"])
	assert.NotContains(t, measurements, "hip")
	assert.NotContains(t, records.Rows[0].Properties(), "hip")
}

func TestMapSizeChart_ExtraValuesAreIgnored(t *testing.T) {
	doc := sizeChartDoc("SC3", map[string]any{
		"column_header": header("chest"),
		"rows": []any{
			map[string]any{"row_header": "L", "values": []any{44.0, 99.0}},
		},
	})

	records, err := MapSizeChart(doc, VariantSizeChartOnly)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"chest": 44.0}, records.Rows[0].Measurements)
}

func TestMapSizeChart_DuplicateLabelsShareIdentity(t *testing.T) {
	doc := sizeChartDoc("SC1", map[string]any{
		"column_header": header("chest", "waist"),
		"rows": []any{
			map[string]any{"row_header": "S", "values": []any{1.0, 2.0}},
			map[string]any{"row_header": " S", "values": []any{3.0}},
		},
	})

	records, err := MapSizeChart(doc, VariantSizeChartOnly)
	require.NoError(t, err)
	require.Len(t, records.Rows, 2)

	assert.Equal(t, "SC1_S", records.Rows[0].UniqueID)
	assert.Equal(t, records.Rows[0].UniqueID, records.Rows[1].UniqueID)
	assert.Equal(t, map[string]float64{"chest": 3.0}, records.Rows[1].Measurements)
}

func TestMapSizeChart_EmptyValuesSkipRowOnly(t *testing.T) {
	doc := sizeChartDoc("SC4", map[string]any{
		"column_header": header("chest"),
		"rows": []any{
			map[string]any{"row_header": "XS", "values": []any{}},
			map[string]any{"row_header": "S", "values": []any{34.0}},
			map[string]any{"row_header": "M"},
			map[string]any{"row_header": "L", "values": []any{40.0}},
		},
	})

	records, err := MapSizeChart(doc, VariantCombined)
	require.NoError(t, err)

	labels := make([]string, 0, len(records.Rows))
	for _, row := range records.Rows {
		labels = append(labels, row.SizeLabel)
	}
	assert.Equal(t, []string{"S", "L"}, labels)
	assert.Len(t, records.Links, 2)
	assert.Equal(t, 4, records.Count())

	require.Len(t, records.Skipped, 2)
	assert.Equal(t, RowSkip{Index: 0, Label: "XS", Reason: "no valid values found"}, records.Skipped[0])
	assert.Equal(t, 2, records.Skipped[1].Index)
}

func TestMapSizeChart_EmptyHeaderStillYieldsIdentity(t *testing.T) {
	doc := sizeChartDoc("SC5", map[string]any{
		"column_header": []any{},
		"rows": []any{
			map[string]any{"row_header": "S", "values": []any{34.0}},
		},
	})

	records, err := MapSizeChart(doc, VariantSizeChartOnly)
	require.NoError(t, err)
	require.Len(t, records.Rows, 1)
	assert.Empty(t, records.Rows[0].Measurements)
	assert.Equal(t, "SC5_S", records.Rows[0].Properties()[models.KeySizeChartUniqueID])
}

func TestMapSizeChart_CombinedCopiesLabelsAndLinks(t *testing.T) {
	doc := sizeChartDoc("SC6", map[string]any{
		"column_header": header("chest"),
		"rows": []any{
			map[string]any{"row_header": "S", "values": []any{34.0}},
		},
	})
	doc.Data["brand_label"] = "Acme"

	records, err := MapSizeChart(doc, VariantCombined)
	require.NoError(t, err)
	require.Len(t, records.Rows, 1)
	require.Len(t, records.Links, 1)

	row := records.Rows[0]
	require.NotNil(t, row.BrandLabel)
	require.NotNil(t, row.TypeLabelLong)
	assert.Equal(t, "Acme", *row.BrandLabel)
	assert.Equal(t, "", *row.TypeLabelLong)

	assert.Equal(t, &models.SizeLink{
		DocumentID:  "SC6",
		SizeLabel:   "S",
		SizeChartID: "SC6_S",
	}, records.Links[0])
}

func TestMapSizeChart_NonNumericValueIsFatal(t *testing.T) {
	doc := sizeChartDoc("SC7", map[string]any{
		"column_header": header("chest", "waist"),
		"rows": []any{
			map[string]any{"row_header": "S", "values": []any{34.0, "n/a"}},
		},
	})

	records, err := MapSizeChart(doc, VariantSizeChartOnly)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.False(t, IsSkip(err))
	assert.True(t, IsFatal(err))

	var coercionErr *CoercionError
	require.ErrorAs(t, err, &coercionErr)
	assert.Equal(t, "SC7", coercionErr.DocumentID)
	assert.Equal(t, "S", coercionErr.SizeLabel)
	assert.Equal(t, "waist", coercionErr.Measure)
	assert.Equal(t, "n/a", coercionErr.Value)
}
