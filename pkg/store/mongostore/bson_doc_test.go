package mongostore

import (
	"testing"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

func TestOutputDocumentBSONRoundTrip(t *testing.T) {
	var id ledger.OutputID
	id[0] = 1
	owner := ledger.Address{Kind: ledger.AddressEd25519, Data: []byte{0xaa}}
	out := ledger.Output{
		Kind:   ledger.OutputBasic,
		Amount: 100,
		UnlockConditions: ledger.UnlockConditionSet{
			{Kind: ledger.UnlockConditionAddress, Address: owner},
		},
	}
	lo := ledger.LedgerOutput{OutputID: id, SlotBooked: 5, Output: out, RawOutput: ledger.NewRaw[ledger.Output]([]byte{1, 2, 3})}
	doc := ledger.FromLedgerOutput(&lo)

	b := toBSON(&doc)
	if len(b.ID) == 0 {
		t.Fatalf("expected non-empty hex id, got %q", b.ID)
	}
	if b.Details.Amount != 100 {
		t.Fatalf("got amount %d, want 100", b.Details.Amount)
	}
	if b.Details.Address == nil || *b.Details.Address != owner.String() {
		t.Fatalf("address round trip mismatch: %+v", b.Details.Address)
	}

	back, err := fromBSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != doc.ID {
		t.Fatalf("id mismatch: got %v, want %v", back.ID, doc.ID)
	}
	if back.Details.Amount != doc.Details.Amount {
		t.Fatalf("amount mismatch after round trip")
	}
	if back.Metadata.SlotBooked != doc.Metadata.SlotBooked {
		t.Fatalf("slot booked mismatch after round trip")
	}
}

func TestSpentMetadataBSONRoundTrip(t *testing.T) {
	var id ledger.OutputID
	id[0] = 2
	lo := ledger.LedgerOutput{OutputID: id, SlotBooked: 5, Output: ledger.Output{Kind: ledger.OutputBasic, Amount: 10}}
	doc := ledger.FromLedgerOutput(&lo)
	spent := ledger.LedgerSpent{Output: lo, SlotSpent: 9, TransactionIDSpent: ledger.TransactionID{7}}
	doc.ApplySpend(&spent)

	b := toBSON(&doc)
	if b.Metadata.SpentMetadata == nil {
		t.Fatal("expected spent metadata to be set")
	}
	if b.Metadata.SpentMetadata.SlotSpent != 9 {
		t.Fatalf("got slot spent %d, want 9", b.Metadata.SpentMetadata.SlotSpent)
	}

	back, err := fromBSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if back.Metadata.SpentMetadata == nil || back.Metadata.SpentMetadata.SlotSpent != 9 {
		t.Fatalf("spent metadata did not round trip: %+v", back.Metadata.SpentMetadata)
	}
}

func TestProtocolParametersBSONRoundTrip(t *testing.T) {
	p := ledger.ProtocolParameters{
		Version:     3,
		NetworkName: "testnet",
		Bech32HRP:   "tst",
		Rent:        ledger.RentStructure{VByteCost: 100, VByteFactorKey: 10, VByteFactorData: 1, VByteFactorBlock: 1},
	}
	back := protocolParamsFromBSON(protocolParamsToBSON(p))
	if back != p {
		t.Fatalf("got %+v, want %+v", back, p)
	}
}
