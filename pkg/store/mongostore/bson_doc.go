package mongostore

import (
	"encoding/hex"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

// bsonOutputDocument mirrors ledger.OutputDocument, keyed by hex output id the
// same way original_source keys its outputs collection by OutputId (spec.md
// §6 "outputs"). Nested detail fields are flattened into dotted bson field
// names so QueryIndexed can address them directly, matching
// original_source's "details.*" match paths.
type bsonOutputDocument struct {
	ID        string `bson:"_id"`
	RawOutput []byte `bson:"raw_output"`
	Metadata  bsonOutputMetadata `bson:"metadata"`
	Details   bsonOutputDetails `bson:"details"`
}

type bsonOutputMetadata struct {
	BlockID              string             `bson:"block_id"`
	SlotBooked           uint32             `bson:"slot_booked"`
	CommitmentIDIncluded string             `bson:"commitment_id_included"`
	SpentMetadata        *bsonSpentMetadata `bson:"spent_metadata,omitempty"`
}

type bsonSpentMetadata struct {
	TransactionIDSpent string `bson:"transaction_id_spent"`
	SlotSpent          uint32 `bson:"slot_spent"`
	CommitmentIDSpent  string `bson:"commitment_id_spent"`
}

type bsonOutputDetails struct {
	Kind            uint8  `bson:"kind"`
	Amount          uint64 `bson:"amount"`
	IsTrivialUnlock bool   `bson:"is_trivial_unlock"`

	IndexedID *string `bson:"indexed_id,omitempty"`
	FoundryID *string `bson:"foundry_id,omitempty"`

	Address                *string `bson:"address,omitempty"`
	GovernorAddress        *string `bson:"governor_address,omitempty"`
	StateControllerAddress *string `bson:"state_controller_address,omitempty"`
	AccountAddress         *string `bson:"account_address,omitempty"`

	StorageDepositReturn *bsonStorageDepositReturn `bson:"storage_deposit_return,omitempty"`
	Timelock             *uint32                   `bson:"timelock,omitempty"`
	Expiration           *bsonExpiration           `bson:"expiration,omitempty"`

	Sender *string `bson:"sender,omitempty"`
	Issuer *string `bson:"issuer,omitempty"`
	Tag    []byte  `bson:"tag,omitempty"`

	BlockIssuerExpiry *uint32         `bson:"block_issuer_expiry,omitempty"`
	Staking           *bsonStaking    `bson:"staking,omitempty"`
	Validator         bool            `bson:"validator"`
	NativeTokenIDs    []string        `bson:"native_token_ids,omitempty"`
}

type bsonStorageDepositReturn struct {
	ReturnAddress string `bson:"return_address"`
	Amount        uint64 `bson:"amount"`
}

type bsonExpiration struct {
	ReturnAddress string `bson:"return_address"`
	Slot          uint32 `bson:"slot"`
}

type bsonStaking struct {
	StakedAmount uint64 `bson:"staked_amount"`
	FixedCost    uint64 `bson:"fixed_cost"`
	StartEpoch   uint64 `bson:"start_epoch"`
	EndEpoch     uint64 `bson:"end_epoch"`
}

func hexOf(b []byte) string { return hex.EncodeToString(b) }

func addrPtr(a *ledger.Address) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

func slotPtr(s *ledger.SlotIndex) *uint32 {
	if s == nil {
		return nil
	}
	v := uint32(*s)
	return &v
}

// toBSON converts a decoded OutputDocument into its persisted bson form.
func toBSON(doc *ledger.OutputDocument) bsonOutputDocument {
	d := doc.Details
	b := bsonOutputDocument{
		ID:        hexOf(doc.ID[:]),
		RawOutput: doc.RawOutput.Bytes(),
		Metadata: bsonOutputMetadata{
			BlockID:              hexOf(doc.Metadata.BlockID[:]),
			SlotBooked:           uint32(doc.Metadata.SlotBooked),
			CommitmentIDIncluded: hexOf(doc.Metadata.CommitmentIDIncluded[:]),
		},
		Details: bsonOutputDetails{
			Kind:            uint8(d.Kind),
			Amount:          d.Amount,
			IsTrivialUnlock: d.IsTrivialUnlock,
			Address:         addrPtr(d.Address),
			GovernorAddress: addrPtr(d.GovernorAddress),
			StateControllerAddress: addrPtr(d.StateControllerAddress),
			AccountAddress:  addrPtr(d.AccountAddress),
			Sender:          addrPtr(d.Sender),
			Issuer:          addrPtr(d.Issuer),
			Tag:             d.Tag,
			Timelock:        slotPtr(d.Timelock),
			BlockIssuerExpiry: slotPtr(d.BlockIssuerExpiry),
			Validator:       d.Validator,
		},
	}
	if doc.Metadata.SpentMetadata != nil {
		sm := doc.Metadata.SpentMetadata
		b.Metadata.SpentMetadata = &bsonSpentMetadata{
			TransactionIDSpent: hexOf(sm.TransactionIDSpent[:]),
			SlotSpent:          uint32(sm.SlotSpent),
			CommitmentIDSpent:  hexOf(sm.CommitmentIDSpent[:]),
		}
	}
	if d.IndexedID != nil {
		s := hexOf(d.IndexedID[:])
		b.Details.IndexedID = &s
	}
	if d.FoundryID != nil {
		s := hexOf(d.FoundryID[:])
		b.Details.FoundryID = &s
	}
	if d.StorageDepositReturn != nil {
		b.Details.StorageDepositReturn = &bsonStorageDepositReturn{
			ReturnAddress: d.StorageDepositReturn.ReturnAddress.String(),
			Amount:        d.StorageDepositReturn.Amount,
		}
	}
	if d.Expiration != nil {
		b.Details.Expiration = &bsonExpiration{
			ReturnAddress: d.Expiration.ReturnAddress.String(),
			Slot:          uint32(d.Expiration.Slot),
		}
	}
	if d.Staking != nil {
		b.Details.Staking = &bsonStaking{
			StakedAmount: d.Staking.StakedAmount,
			FixedCost:    d.Staking.FixedCost,
			StartEpoch:   d.Staking.StartEpoch,
			EndEpoch:     d.Staking.EndEpoch,
		}
	}
	for _, id := range d.NativeTokenIDs {
		b.Details.NativeTokenIDs = append(b.Details.NativeTokenIDs, hexOf(id[:]))
	}
	return b
}

// fromBSON reconstructs the parts of OutputDocument every read path actually
// needs (id, raw bytes, metadata, amount/kind) without attempting to recover
// full Address structs from their string form — callers that need the typed
// Output decode RawOutput through a codec instead (spec.md §9 "Raw + decoded
// duality").
func fromBSON(b bsonOutputDocument) (ledger.OutputDocument, error) {
	id, err := hex.DecodeString(b.ID)
	if err != nil {
		return ledger.OutputDocument{}, err
	}
	blockID, err := hex.DecodeString(b.Metadata.BlockID)
	if err != nil {
		return ledger.OutputDocument{}, err
	}
	commitmentID, err := hex.DecodeString(b.Metadata.CommitmentIDIncluded)
	if err != nil {
		return ledger.OutputDocument{}, err
	}

	var doc ledger.OutputDocument
	copy(doc.ID[:], id)
	doc.RawOutput = ledger.NewRaw[ledger.Output](b.RawOutput)
	copy(doc.Metadata.BlockID[:], blockID)
	doc.Metadata.SlotBooked = ledger.SlotIndex(b.Metadata.SlotBooked)
	copy(doc.Metadata.CommitmentIDIncluded[:], commitmentID)
	doc.Details.Kind = ledger.OutputKind(b.Details.Kind)
	doc.Details.Amount = b.Details.Amount
	doc.Details.IsTrivialUnlock = b.Details.IsTrivialUnlock
	doc.Details.Validator = b.Details.Validator

	if b.Metadata.SpentMetadata != nil {
		txID, err := hex.DecodeString(b.Metadata.SpentMetadata.TransactionIDSpent)
		if err != nil {
			return ledger.OutputDocument{}, err
		}
		cid, err := hex.DecodeString(b.Metadata.SpentMetadata.CommitmentIDSpent)
		if err != nil {
			return ledger.OutputDocument{}, err
		}
		sm := &ledger.SpentMetadata{SlotSpent: ledger.SlotIndex(b.Metadata.SpentMetadata.SlotSpent)}
		copy(sm.TransactionIDSpent[:], txID)
		copy(sm.CommitmentIDSpent[:], cid)
		doc.Metadata.SpentMetadata = sm
	}
	return doc, nil
}
