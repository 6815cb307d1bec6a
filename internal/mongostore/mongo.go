// Package mongostore is the durable-store boundary: a thin wrapper around
// the Mongo client plus the three fixed collections the engine and its
// authoring layer share. It owns the client lifecycle and index setup;
// other packages use the driver's query types on the collections it hands
// out.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the engine and the authoring layer.
const (
	CollectionBlocks        = "blocks"
	CollectionFlows         = "flows"
	CollectionExecutionLogs = "execution_logs"
)

// Store wraps a connected Mongo client and database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials Mongo and pings it before returning, matching the
// reference backend's "fail fast on boot, not on first request" startup
// convention.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// Collection returns a named collection handle.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Disconnect closes the underlying client, for graceful shutdown.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the engine's hot read paths rely on.
// Grounded on the reference ChatSyncService.EnsureIndexes: declare once at
// startup via CreateMany rather than lazily.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	flowIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := s.Collection(CollectionFlows).Indexes().CreateMany(ctx, flowIndexes); err != nil {
		return fmt.Errorf("create flow indexes: %w", err)
	}

	logIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "flowId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := s.Collection(CollectionExecutionLogs).Indexes().CreateMany(ctx, logIndexes); err != nil {
		return fmt.Errorf("create execution log indexes: %w", err)
	}

	return nil
}
