// Package source enumerates catalog documents from the document store
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/models"
)

// ErrStopStream can be returned from a stream callback to end enumeration
// without an error
var ErrStopStream = errors.New("stop stream")

// Source enumerates the documents of a collection in source order. Stream
// stops at the first callback error and returns it.
type Source interface {
	Stream(ctx context.Context, collection string, fn func(models.Document) error) error
	Close() error
}

// Open creates the source selected by SOURCE_DRIVER
func Open(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (Source, error) {
	if err := cfg.ValidateSource(); err != nil {
		return nil, err
	}

	switch cfg.SourceDriver {
	case config.SourceFirestore:
		return NewFirestoreSource(ctx, FirestoreConfig{
			CredentialsPath: cfg.FirebaseCredentialsPath,
			ProjectID:       cfg.FirebaseProjectID,
		}, logger)
	case config.SourceMongo:
		return NewMongoSource(ctx, MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		}, logger)
	case config.SourceFile:
		return NewFileSource(cfg.SourceFilePath, logger)
	default:
		return nil, fmt.Errorf("unsupported source driver %q", cfg.SourceDriver)
	}
}

func finish(err error) error {
	if errors.Is(err, ErrStopStream) {
		return nil
	}
	return err
}
