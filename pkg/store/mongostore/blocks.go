package mongostore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/store"
)

type bsonBlock struct {
	ID          string `bson:"_id"`
	SlotIndex   uint32 `bson:"slot_index"`
	Raw         []byte `bson:"raw"`
	PayloadKind string `bson:"payload_kind"`
}

func (s *Store) InsertBlocks(ctx context.Context, batch []store.BlockRecord) error {
	if len(batch) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(batch))
	for _, b := range batch {
		docs = append(docs, bsonBlock{
			ID:          hexOf(b.BlockID[:]),
			SlotIndex:   uint32(b.SlotIndex),
			Raw:         b.Raw,
			PayloadKind: b.PayloadKind,
		})
	}
	_, err := s.blocks.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			for _, we := range bwe.WriteErrors {
				if we.Code != 11000 {
					return fmt.Errorf("mongostore: insert blocks: %w", err)
				}
			}
			return nil
		}
		return fmt.Errorf("mongostore: insert blocks: %w", err)
	}
	return nil
}

func (s *Store) GetBlock(ctx context.Context, id ledger.BlockID) (*store.BlockRecord, error) {
	var b bsonBlock
	err := s.blocks.FindOne(ctx, bson.M{"_id": hexOf(id[:])}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get block: %w", err)
	}
	idBytes, err := hex.DecodeString(b.ID)
	if err != nil {
		return nil, err
	}
	var blockID ledger.BlockID
	copy(blockID[:], idBytes)
	return &store.BlockRecord{
		BlockID:     blockID,
		SlotIndex:   ledger.SlotIndex(b.SlotIndex),
		Raw:         b.Raw,
		PayloadKind: b.PayloadKind,
	}, nil
}
