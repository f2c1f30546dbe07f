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

const nodeConfigID = "singleton"

type bsonProtocolParametersEntry struct {
	StartEpoch uint64                 `bson:"start_epoch"`
	Params     bsonProtocolParameters `bson:"params"`
}

type bsonNodeConfiguration struct {
	ID      string                        `bson:"_id"`
	Entries []bsonProtocolParametersEntry `bson:"entries"`
}

// SetNodeConfiguration persists the latest node configuration record
// (spec.md §6), overwriting the prior one entirely since the node always
// reports its full current history.
func (s *Store) SetNodeConfiguration(ctx context.Context, cfg ledger.ProtocolParametersHistory) error {
	doc := bsonNodeConfiguration{ID: nodeConfigID}
	for _, e := range cfg.Entries {
		doc.Entries = append(doc.Entries, bsonProtocolParametersEntry{
			StartEpoch: e.StartEpoch,
			Params:     protocolParamsToBSON(e.Params),
		})
	}
	_, err := s.nodeConfig.ReplaceOne(ctx, bson.M{"_id": nodeConfigID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: set node configuration: %w", err)
	}
	return nil
}

func (s *Store) GetNodeConfiguration(ctx context.Context) (*ledger.ProtocolParametersHistory, error) {
	var b bsonNodeConfiguration
	err := s.nodeConfig.FindOne(ctx, bson.M{"_id": nodeConfigID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get node configuration: %w", err)
	}
	h := &ledger.ProtocolParametersHistory{}
	for _, e := range b.Entries {
		h.Entries = append(h.Entries, ledger.ProtocolParametersEntry{
			StartEpoch: e.StartEpoch,
			Params:     protocolParamsFromBSON(e.Params),
		})
	}
	return h, nil
}
