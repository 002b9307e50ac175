package source

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string
	Database string
}

// MongoSource streams documents from a MongoDB export of the catalog
type MongoSource struct {
	client *mongo.Client
	db     *mongo.Database
	logger ectologger.Logger
}

// NewMongoSource connects to MongoDB and verifies the connection
func NewMongoSource(ctx context.Context, cfg MongoConfig, logger ectologger.Logger) (*MongoSource, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(timeoutCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(timeoutCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Infof("Connected to MongoDB database %s", cfg.Database)

	return &MongoSource{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// Stream finds every document of the collection in natural order
func (s *MongoSource) Stream(ctx context.Context, collection string, fn func(models.Document) error) error {
	ctx, span := tracing.StartSpan(ctx, "source.MongoSource.Stream")
	defer span.End()

	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode %s document: %w", collection, err)
		}

		if err := fn(mongoDocument(raw)); err != nil {
			return finish(err)
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", collection, err)
	}
	return nil
}

// Close disconnects from MongoDB
func (s *MongoSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// mongoDocument splits _id from the body
func mongoDocument(raw bson.M) models.Document {
	var id string
	switch v := raw["_id"].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	case string:
		id = v
	case nil:
	default:
		id = fmt.Sprint(v)
	}
	delete(raw, "_id")

	return models.Document{ID: id, Data: normalizeMap(raw)}
}
