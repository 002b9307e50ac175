package source

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/Gobusters/ectologger"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// FirestoreConfig holds Firebase Admin SDK settings
type FirestoreConfig struct {
	CredentialsPath string
	// ProjectID overrides the project from the credentials file
	ProjectID string
}

// FirestoreSource streams documents from Cloud Firestore
type FirestoreSource struct {
	client *firestore.Client
	logger ectologger.Logger
}

// NewFirestoreSource initializes the Firebase app and its Firestore client
func NewFirestoreSource(ctx context.Context, cfg FirestoreConfig, logger ectologger.Logger) (*FirestoreSource, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	var appConfig *firebase.Config
	if cfg.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}

	logger.Info("Connected to Firestore")

	return &FirestoreSource{
		client: client,
		logger: logger,
	}, nil
}

// Stream iterates the collection and calls fn for every document
func (s *FirestoreSource) Stream(ctx context.Context, collection string, fn func(models.Document) error) error {
	ctx, span := tracing.StartSpan(ctx, "source.FirestoreSource.Stream")
	defer span.End()

	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", collection, err)
		}

		doc := models.Document{
			ID:   snap.Ref.ID,
			Data: normalizeMap(snap.Data()),
		}
		if err := fn(doc); err != nil {
			return finish(err)
		}
	}
}

// Close closes the Firestore client
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}
