package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

type bsonProtocolUpdate struct {
	EffectiveSlot uint32                 `bson:"_id"`
	Params        bsonProtocolParameters `bson:"params"`
}

// RecordProtocolUpdate inserts one record per parameter change (spec.md §6),
// keyed by effective slot. The sync controller calls it only when a slot's
// parameters differ from LatestProtocolUpdate.
func (s *Store) RecordProtocolUpdate(ctx context.Context, effectiveSlot ledger.SlotIndex, p ledger.ProtocolParameters) error {
	doc := bsonProtocolUpdate{EffectiveSlot: uint32(effectiveSlot), Params: protocolParamsToBSON(p)}
	_, err := s.protocolUpdates.ReplaceOne(ctx,
		bson.M{"_id": doc.EffectiveSlot},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: record protocol update: %w", err)
	}
	return nil
}

func (s *Store) LatestProtocolUpdate(ctx context.Context) (*ledger.ProtocolParameters, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	var b bsonProtocolUpdate
	err := s.protocolUpdates.FindOne(ctx, bson.M{}, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: latest protocol update: %w", err)
	}
	p := protocolParamsFromBSON(b.Params)
	return &p, nil
}
