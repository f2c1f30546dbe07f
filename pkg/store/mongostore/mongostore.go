// Package mongostore is the canonical document-store implementation of
// pkg/store's persistence contracts (C4, C8, and the supplemented
// protocol/config/sync collections), backed by go.mongodb.org/mongo-driver.
// Collection and aggregation shapes follow original_source's Rust
// inx-chronicle MongoDB collections, translated to the Go driver's bson.D
// pipeline idiom.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	collOutputs         = "outputs"
	collCommitments     = "commitments"
	collBlocks          = "blocks"
	collApplicationState = "application_state"
	collProtocolUpdates = "protocol_updates"
	collNodeConfig      = "node_configurations"
	collSyncRecords     = "sync_records"
)

// Store bundles every collection handle Chronicle's persistence layer needs.
// Each store interface (OutputStore, CommitmentStore, ...) is implemented by
// methods defined across this package's files, all sharing this one struct.
type Store struct {
	db     *mongo.Database
	logger *zap.Logger

	outputs          *mongo.Collection
	commitments      *mongo.Collection
	blocks           *mongo.Collection
	applicationState *mongo.Collection
	protocolUpdates  *mongo.Collection
	nodeConfig       *mongo.Collection
	syncRecords      *mongo.Collection
}

// Connect dials a MongoDB deployment and returns a Store bound to dbName.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	logger.Info("connecting to document store", zap.String("database", dbName))
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	logger.Info("connected to document store")
	return New(client.Database(dbName), logger), nil
}

// New wraps an already-connected database handle, letting callers share one
// *mongo.Client across components (or substitute a mongo-driver mock in
// integration tests).
func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		db:               db,
		logger:           logger,
		outputs:          db.Collection(collOutputs),
		commitments:      db.Collection(collCommitments),
		blocks:           db.Collection(collBlocks),
		applicationState: db.Collection(collApplicationState),
		protocolUpdates:  db.Collection(collProtocolUpdates),
		nodeConfig:       db.Collection(collNodeConfig),
		syncRecords:      db.Collection(collSyncRecords),
	}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// Drop removes every Chronicle-owned collection from the database, for the
// clear-database CLI subcommand. It leaves unrelated collections (if the
// database is shared) untouched.
func (s *Store) Drop(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{
		s.outputs, s.commitments, s.blocks, s.applicationState,
		s.protocolUpdates, s.nodeConfig, s.syncRecords,
	} {
		if err := coll.Drop(ctx); err != nil {
			return fmt.Errorf("mongostore: drop %s: %w", coll.Name(), err)
		}
	}
	return nil
}
