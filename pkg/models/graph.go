package models

// Node labels
const (
	LabelProductMaster      = "ProductMaster"
	LabelProductTranslation = "ProductTranslation"
	LabelSizeChart          = "SizeChart"
	LabelSize               = "Size"
	LabelType               = "Type"
)

// Relationship types
const (
	RelHasSize        = "HAS_SIZE"
	RelHasTranslation = "HAS_TRANSLATION"
	RelHasSizeChart   = "HAS_SIZECHART"
)

// Identity and link keys
const (
	KeyProductID         = "product_id"
	KeySizeChartUniqueID = "size_chart_unique_id"
	KeySizeChartMasterID = "size_chart_master_id"
	KeySizeLabel         = "size_label"
	KeyTypeLabelLong     = "type_label_long"
	KeyTypeLabelShort    = "type_label_short"
	KeyBrandLabel        = "brand_label"
	KeyPriority          = "priority"
)

// Source collections
const (
	CollectionProducts   = "products"
	CollectionSizeCharts = "sizecharts"
)
