package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/store"
)

// applicationStateID is the single fixed _id for the C8 singleton document,
// the same "one row, always upserted" pattern original_source uses for its
// application_state collection.
const applicationStateID = "singleton"

type bsonProtocolParameters struct {
	Version             uint8  `bson:"version"`
	NetworkName         string `bson:"network_name"`
	Bech32HRP           string `bson:"bech32_hrp"`
	SlotDurationSeconds uint8  `bson:"slot_duration_seconds"`
	SlotsPerEpoch       uint32 `bson:"slots_per_epoch"`
	VByteCost           uint64 `bson:"v_byte_cost"`
	VByteFactorKey      uint64 `bson:"v_byte_factor_key"`
	VByteFactorData     uint64 `bson:"v_byte_factor_data"`
	VByteFactorBlock    uint64 `bson:"v_byte_factor_block"`
}

func protocolParamsToBSON(p ledger.ProtocolParameters) bsonProtocolParameters {
	return bsonProtocolParameters{
		Version:             p.Version,
		NetworkName:         p.NetworkName,
		Bech32HRP:           p.Bech32HRP,
		SlotDurationSeconds: p.SlotDurationSeconds,
		SlotsPerEpoch:       p.SlotsPerEpoch,
		VByteCost:           p.Rent.VByteCost,
		VByteFactorKey:      p.Rent.VByteFactorKey,
		VByteFactorData:     p.Rent.VByteFactorData,
		VByteFactorBlock:    p.Rent.VByteFactorBlock,
	}
}

func protocolParamsFromBSON(b bsonProtocolParameters) ledger.ProtocolParameters {
	return ledger.ProtocolParameters{
		Version:             b.Version,
		NetworkName:         b.NetworkName,
		Bech32HRP:           b.Bech32HRP,
		SlotDurationSeconds: b.SlotDurationSeconds,
		SlotsPerEpoch:       b.SlotsPerEpoch,
		Rent: ledger.RentStructure{
			VByteCost:        b.VByteCost,
			VByteFactorKey:   b.VByteFactorKey,
			VByteFactorData:  b.VByteFactorData,
			VByteFactorBlock: b.VByteFactorBlock,
		},
	}
}

type bsonApplicationState struct {
	ID                 string                   `bson:"_id"`
	StartingSlot       *uint32                  `bson:"starting_slot,omitempty"`
	LastMigrationID    *uint32                  `bson:"last_migration_id,omitempty"`
	LastMigrationApp   *string                  `bson:"last_migration_app,omitempty"`
	LastMigrationDate  *int64                   `bson:"last_migration_date,omitempty"`
	ProtocolParameters *bsonProtocolParameters `bson:"protocol_parameters,omitempty"`
}

func (s *Store) getApplicationState(ctx context.Context) (*bsonApplicationState, error) {
	var b bsonApplicationState
	err := s.applicationState.FindOne(ctx, bson.M{"_id": applicationStateID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &bsonApplicationState{ID: applicationStateID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get application state: %w", err)
	}
	return &b, nil
}

func (s *Store) GetStartingIndex(ctx context.Context) (*ledger.SlotIndex, error) {
	b, err := s.getApplicationState(ctx)
	if err != nil || b.StartingSlot == nil {
		return nil, err
	}
	v := ledger.SlotIndex(*b.StartingSlot)
	return &v, nil
}

func (s *Store) SetStartingIndex(ctx context.Context, slot ledger.SlotIndex) error {
	v := uint32(slot)
	_, err := s.applicationState.UpdateOne(ctx,
		bson.M{"_id": applicationStateID},
		bson.M{"$set": bson.M{"starting_slot": v}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: set starting index: %w", err)
	}
	return nil
}

func (s *Store) GetLastMigration(ctx context.Context) (*store.Migration, error) {
	b, err := s.getApplicationState(ctx)
	if err != nil || b.LastMigrationID == nil {
		return nil, err
	}
	m := &store.Migration{ID: *b.LastMigrationID}
	if b.LastMigrationApp != nil {
		m.AppVersion = *b.LastMigrationApp
	}
	if b.LastMigrationDate != nil {
		m.Date = *b.LastMigrationDate
	}
	return m, nil
}

func (s *Store) SetLastMigration(ctx context.Context, m store.Migration) error {
	_, err := s.applicationState.UpdateOne(ctx,
		bson.M{"_id": applicationStateID},
		bson.M{"$set": bson.M{
			"last_migration_id":   m.ID,
			"last_migration_app":  m.AppVersion,
			"last_migration_date": m.Date,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: set last migration: %w", err)
	}
	return nil
}

func (s *Store) GetProtocolParameters(ctx context.Context) (*ledger.ProtocolParameters, error) {
	b, err := s.getApplicationState(ctx)
	if err != nil || b.ProtocolParameters == nil {
		return nil, err
	}
	p := protocolParamsFromBSON(*b.ProtocolParameters)
	return &p, nil
}

func (s *Store) SetProtocolParameters(ctx context.Context, p ledger.ProtocolParameters) error {
	_, err := s.applicationState.UpdateOne(ctx,
		bson.M{"_id": applicationStateID},
		bson.M{"$set": bson.M{"protocol_parameters": protocolParamsToBSON(p)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: set protocol parameters: %w", err)
	}
	return nil
}
