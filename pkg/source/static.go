package source

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// StaticSource serves documents held in memory
type StaticSource struct {
	collections map[string][]models.Document
}

// NewStaticSource creates a source over the given collections
func NewStaticSource(collections map[string][]models.Document) *StaticSource {
	if collections == nil {
		collections = map[string][]models.Document{}
	}
	return &StaticSource{collections: collections}
}

// Stream calls fn for every document of the collection in order
func (s *StaticSource) Stream(ctx context.Context, collection string, fn func(models.Document) error) error {
	ctx, span := tracing.StartSpan(ctx, "source.StaticSource.Stream")
	defer span.End()

	for _, doc := range s.collections[collection] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return finish(err)
		}
	}
	return nil
}

// Close is a no-op
func (s *StaticSource) Close() error {
	return nil
}
