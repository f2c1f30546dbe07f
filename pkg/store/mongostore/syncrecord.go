package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iotaledger/chronicle/pkg/store"
)

type bsonSyncRecord struct {
	MilestoneIndex uint32 `bson:"_id"`
	Logged         bool   `bson:"logged"`
	Synced         bool   `bson:"synced"`
}

// UpsertSyncRecord keeps the legacy "sync_records" collection name alive for
// schema compatibility only; nothing in the sync controller calls this
// (spec.md §9, SPEC_FULL.md §4 "Older sync code paths").
func (s *Store) UpsertSyncRecord(ctx context.Context, r store.SyncRecord) error {
	doc := bsonSyncRecord{MilestoneIndex: r.MilestoneIndex, Logged: r.Logged, Synced: r.Synced}
	_, err := s.syncRecords.ReplaceOne(ctx,
		bson.M{"_id": doc.MilestoneIndex},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: upsert sync record: %w", err)
	}
	return nil
}
