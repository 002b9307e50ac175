package models

// ProductMaster is the normalized attribute record for a ProductMaster node.
// Nullable attributes are held as `any` so a missing source field is written as null.
type ProductMaster struct {
	ProductID         string
	Images            []string
	AggregateRating   string
	CurrentPrice      any
	OriginalPrice     any
	ReleaseDate       string
	SKU               string
	CurrencyValue     string
	TypeLabelLong     any
	BrandLabel        any
	SizeChartMasterID any
}

// Properties returns the graph attribute set for the node
func (p *ProductMaster) Properties() map[string]any {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return map[string]any{
		KeyProductID:             p.ProductID,
		"product_images":         images,
		"aggregateRating":        p.AggregateRating,
		"product_current_price":  p.CurrentPrice,
		"product_release_date":   p.ReleaseDate,
		"product_sku":            p.SKU,
		"currency_value":         p.CurrencyValue,
		"product_original_price": p.OriginalPrice,
		KeyTypeLabelLong:         p.TypeLabelLong,
		KeyBrandLabel:            p.BrandLabel,
		KeySizeChartMasterID:     p.SizeChartMasterID,
	}
}

// ProductTranslation is the normalized attribute record for a ProductTranslation node.
// ProductID is only used to find the owning ProductMaster and is not written to the node.
type ProductTranslation struct {
	ProductID   string
	Label       string
	URL         string
	Material    string
	Features    []string
	Description string
}

// Properties returns the graph attribute set for the node
func (p *ProductTranslation) Properties() map[string]any {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return map[string]any{
		"product_label":       p.Label,
		"product_url":         p.URL,
		"product_material":    p.Material,
		"product_features":    features,
		"product_description": p.Description,
	}
}

// SizeChartRow is one SizeChart node derived from a single size chart row.
// Measurements holds the dynamic attributes keyed by the column header name.
type SizeChartRow struct {
	MasterID      string
	UniqueID      string
	SizeLabel     string
	BrandLabel    *string
	TypeLabelLong *string
	Measurements  map[string]float64
}

// Properties returns the graph attribute set for the node
func (r *SizeChartRow) Properties() map[string]any {
	props := map[string]any{
		KeySizeChartMasterID: r.MasterID,
		KeySizeChartUniqueID: r.UniqueID,
		KeySizeLabel:         r.SizeLabel,
	}
	if r.BrandLabel != nil {
		props[KeyBrandLabel] = *r.BrandLabel
	}
	if r.TypeLabelLong != nil {
		props[KeyTypeLabelLong] = *r.TypeLabelLong
	}
	for name, value := range r.Measurements {
		props[name] = value
	}
	return props
}

// SizeLink connects a globally shared Size node to a SizeChart row
type SizeLink struct {
	DocumentID  string
	SizeLabel   string
	SizeChartID string
}

// PriorityAssignment is one row of the Type -> SizeChart priority file
type PriorityAssignment struct {
	TypeLabelLong  string  `validate:"required"`
	TypeLabelShort string  `validate:"required"`
	Priority       float64 `validate:"gte=0"`
}
