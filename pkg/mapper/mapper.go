// Package mapper decides which graph records a source document yields.
package mapper

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Size chart document fields
const (
	FieldSizeChartBody = "json.sizechart"
	FieldColumnHeader  = "column_header"
	FieldRows          = "rows"
	FieldRowHeader     = "row_header"
	FieldValues        = "values"
)

// Variant selects which records a size chart document yields
type Variant int

const (
	// VariantSizeChartOnly yields SizeChart nodes only
	VariantSizeChartOnly Variant = iota
	// VariantCombined also yields Size linkage and copies brand/type labels onto the chart
	VariantCombined
)

func (v Variant) String() string {
	if v == VariantCombined {
		return "combined"
	}
	return "sizechart-only"
}

// ProductRecords is what a qualifying product document yields
type ProductRecords struct {
	Master      *models.ProductMaster
	Translation *models.ProductTranslation
}

// RowSkip records a size chart row that was dropped while its siblings were kept
type RowSkip struct {
	Index  int
	Label  string
	Reason string
}

// SizeChartRecords is what a valid size chart document yields
type SizeChartRecords struct {
	DocumentID string
	Labels     []string
	Rows       []*models.SizeChartRow
	Links      []*models.SizeLink
	Skipped    []RowSkip
}

// Count returns the number of records to write
func (r *SizeChartRecords) Count() int {
	return len(r.Rows) + len(r.Links)
}

// MapProduct maps a product document. Documents without a category marker are skipped.
func MapProduct(doc models.Document) (*ProductRecords, error) {
	if !extractor.Has(doc.Data, extractor.FieldCategory) {
		return nil, ErrMissingCategory
	}

	return &ProductRecords{
		Master:      extractor.ProductMaster(doc),
		Translation: extractor.ProductTranslation(doc),
	}, nil
}

// MapSizeChart maps a size chart document into one SizeChart record per usable row.
// A missing or mistyped column header list or row list skips the whole document.
// A value that cannot be read as a number returns a *CoercionError.
func MapSizeChart(doc models.Document, variant Variant) (*SizeChartRecords, error) {
	body := extractor.Map(doc.Data, FieldSizeChartBody)

	headers, ok := body[FieldColumnHeader].([]any)
	if !ok {
		return nil, ErrInvalidColumnHeader
	}
	rows, ok := body[FieldRows].([]any)
	if !ok {
		return nil, ErrInvalidRows
	}

	records := &SizeChartRecords{
		DocumentID: doc.ID,
		Labels:     extractor.MeasurementLabels(headers),
	}

	for i, raw := range rows {
		row := extractor.AsMap(raw)
		sizeLabel := strings.TrimSpace(extractor.String(row, FieldRowHeader, ""))

		values, ok := row[FieldValues].([]any)
		if !ok || len(values) == 0 {
			records.Skipped = append(records.Skipped, RowSkip{
				Index:  i,
				Label:  sizeLabel,
				Reason: "no valid values found",
			})
			continue
		}

		measurements, err := bindMeasurements(doc.ID, sizeLabel, records.Labels, values)
		if err != nil {
			return nil, err
		}

		sizeChart := &models.SizeChartRow{
			MasterID:     doc.ID,
			UniqueID:     UniqueID(doc.ID, sizeLabel),
			SizeLabel:    sizeLabel,
			Measurements: measurements,
		}

		if variant == VariantCombined {
			brand := extractor.String(doc.Data, models.KeyBrandLabel, "")
			typeLabel := extractor.String(doc.Data, models.KeyTypeLabelLong, "")
			sizeChart.BrandLabel = &brand
			sizeChart.TypeLabelLong = &typeLabel

			records.Links = append(records.Links, &models.SizeLink{
				DocumentID:  doc.ID,
				SizeLabel:   sizeLabel,
				SizeChartID: sizeChart.UniqueID,
			})
		}

		records.Rows = append(records.Rows, sizeChart)
	}

	return records, nil
}

// UniqueID builds the SizeChart merge key for a row
func UniqueID(documentID, sizeLabel string) string {
	return fmt.Sprintf("%s_%s", documentID, sizeLabel)
}

// bindMeasurements pairs the i-th label with the i-th value. Values beyond the
// label count are ignored and labels beyond the value count stay absent.
func bindMeasurements(documentID, sizeLabel string, labels []string, values []any) (map[string]float64, error) {
	measurements := make(map[string]float64, len(labels))
	for i, label := range labels {
		if i >= len(values) {
			break
		}
		value, err := extractor.Float(values[i])
		if err != nil {
			return nil, &CoercionError{
				DocumentID: documentID,
				SizeLabel:  sizeLabel,
				Measure:    label,
				Value:      values[i],
				Err:        err,
			}
		}
		measurements[label] = value
	}
	return measurements, nil
}
