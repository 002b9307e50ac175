package models

// Document is a single record read from the source store
type Document struct {
	ID   string         `json:"id" yaml:"id"`
	Data map[string]any `json:"data" yaml:"data"`
}
