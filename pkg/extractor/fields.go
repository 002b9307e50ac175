package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Source document fields
const (
	FieldCategory        = "popsize_category"
	FieldImages          = "images"
	FieldImageURL        = "url"
	FieldAggregateRating = "aggregateRating"
	FieldPrice           = "price"
	FieldRegularPrice    = "regularPrice"
	FieldDateDownloaded  = "metadata.dateDownloaded"
	FieldSKU             = "sku"
	FieldCurrency        = "currency"
	FieldBrandName       = "brand.name"
	FieldSizeChart       = "sizechart"
	FieldName            = "name"
	FieldCanonicalURL    = "canonicalUrl"
	FieldMaterial        = "material"
	FieldFeatures        = "features"
	FieldDescription     = "description"
	FieldMeasure         = "measure"
)

// DefaultProductLabel is used when a product has no name
const DefaultProductLabel = "Unknown"

// ProductMaster builds the ProductMaster record for a product document
func ProductMaster(doc models.Document) *models.ProductMaster {
	return &models.ProductMaster{
		ProductID:         doc.ID,
		Images:            ImageURLs(doc.Data),
		AggregateRating:   AggregateRating(doc.Data),
		CurrentPrice:      Scalar(doc.Data, FieldPrice),
		OriginalPrice:     Scalar(doc.Data, FieldRegularPrice),
		ReleaseDate:       String(doc.Data, FieldDateDownloaded, ""),
		SKU:               String(doc.Data, FieldSKU, ""),
		CurrencyValue:     String(doc.Data, FieldCurrency, ""),
		TypeLabelLong:     Scalar(doc.Data, FieldCategory),
		BrandLabel:        Scalar(doc.Data, FieldBrandName),
		SizeChartMasterID: Scalar(doc.Data, FieldSizeChart),
	}
}

// ProductTranslation builds the ProductTranslation record for a product document
func ProductTranslation(doc models.Document) *models.ProductTranslation {
	return &models.ProductTranslation{
		ProductID:   doc.ID,
		Label:       String(doc.Data, FieldName, DefaultProductLabel),
		URL:         String(doc.Data, FieldCanonicalURL, ""),
		Material:    String(doc.Data, FieldMaterial, ""),
		Features:    Strings(doc.Data, FieldFeatures),
		Description: String(doc.Data, FieldDescription, ""),
	}
}

// ImageURLs returns the url of every image entry, dropping entries without one
func ImageURLs(data map[string]any) []string {
	images := List(data, FieldImages)
	withURL := ectolinq.Filter(images, func(img any) bool {
		return Extract(img, FieldImageURL) != nil
	})
	return ectolinq.Map(withURL, func(img any) string {
		return toString(Extract(img, FieldImageURL))
	})
}

// AggregateRating serializes the rating block into a single opaque string
// with sorted keys and compact separators. A missing block serializes as an
// empty object.
func AggregateRating(data map[string]any) string {
	value, ok := data[FieldAggregateRating]
	if !ok {
		return "{}"
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// MeasurementLabels turns column headers into attribute names
func MeasurementLabels(headers []any) []string {
	return ectolinq.Map(headers, func(header any) string {
		measure := String(AsMap(header), FieldMeasure, "")
		return strings.ReplaceAll(measure, " ", "_")
	})
}

// Has reports whether the top level key is present, even when its value is null
func Has(data map[string]any, key string) bool {
	_, ok := data[key]
	return ok
}

// String resolves a path to a string, falling back to def when missing or
// null. Numbers and booleans are formatted as text.
func String(data map[string]any, path string, def string) string {
	value := Extract(data, path)
	if value == nil {
		return def
	}
	return toString(value)
}

// Scalar resolves a path to a value that can be stored as a graph attribute.
// Nested maps are serialized to JSON since graph attributes cannot hold them.
func Scalar(data map[string]any, path string) any {
	return normalize(Extract(data, path))
}

// List resolves a path to a list, returning an empty list for anything else
func List(data map[string]any, path string) []any {
	if arr, ok := toArray(Extract(data, path)); ok {
		return arr
	}
	return []any{}
}

// Strings resolves a path to a list of strings.
// A single string is treated as a one element list.
func Strings(data map[string]any, path string) []string {
	value := Extract(data, path)
	if s, ok := value.(string); ok {
		return []string{s}
	}
	arr, ok := toArray(value)
	if !ok {
		return []string{}
	}
	items := ectolinq.Filter(arr, func(item any) bool { return item != nil })
	return ectolinq.Map(items, toString)
}

// Map resolves a path to a nested map, returning an empty map for anything else
func Map(data map[string]any, path string) map[string]any {
	return AsMap(Extract(data, path))
}

// Float coerces a measurement value to float64
func Float(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return val.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("could not convert string to float: %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("could not convert %T to float", v)
	}
}

// AsMap returns v as a map, or an empty map when it is anything else
func AsMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, time.Time:
		return val
	case []any:
		return ectolinq.Map(val, toString)
	default:
		return toString(val)
	}
}
