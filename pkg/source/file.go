package source

import (
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/fern/pkg/models"
)

// FileSource reads a fixture file mapping collection names to documents:
//
//	products:
//	  - id: p1
//	    data:
//	      popsize_category: tops
//
// JSON exports parse the same way.
type FileSource struct {
	*StaticSource
}

// NewFileSource loads the fixture at path
func NewFileSource(path string, logger ectologger.Logger) (*FileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file %s: %w", path, err)
	}

	collections, err := ParseFixture(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source file %s: %w", path, err)
	}

	total := 0
	for _, docs := range collections {
		total += len(docs)
	}
	logger.WithFields(map[string]any{
		"path":        path,
		"collections": len(collections),
		"documents":   total,
	}).Info("Loaded source file")

	return &FileSource{StaticSource: NewStaticSource(collections)}, nil
}

// ParseFixture decodes fixture bytes into collections
func ParseFixture(raw []byte) (map[string][]models.Document, error) {
	var parsed map[string][]models.Document
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	for name, docs := range parsed {
		for i := range docs {
			if docs[i].ID == "" {
				return nil, fmt.Errorf("document %d of %s has no id", i, name)
			}
			docs[i].Data = normalizeMap(docs[i].Data)
		}
	}
	return parsed, nil
}
