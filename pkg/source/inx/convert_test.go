package inx

import (
	"testing"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source"
)

func TestFrameRoundTrip(t *testing.T) {
	f := newFrame().putUint64(42).putString("hello").put([]byte{1, 2, 3})
	parsed, err := parseFrame(f.bytes())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.uint64At(0) != 42 {
		t.Fatalf("got %d, want 42", parsed.uint64At(0))
	}
	if parsed.stringAt(1) != "hello" {
		t.Fatalf("got %q, want hello", parsed.stringAt(1))
	}
	if got := parsed.field(2); len(got) != 3 || got[0] != 1 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
}

func TestSlotRangeRequestRoundTrip(t *testing.T) {
	r := slotRangeRequest{startSlot: 10, endSlot: 20, unbounded: false}
	got := unmarshalSlotRangeRequest(r.marshal())
	if got != r {
		t.Fatalf("got %+v, want %+v", got, r)
	}
}

func TestEncodeDecodeOutput(t *testing.T) {
	var id ledger.OutputID
	id[0] = 7
	lo := ledger.LedgerOutput{
		OutputID:   id,
		SlotBooked: 5,
		RawOutput:  ledger.NewRaw[ledger.Output]([]byte{9, 9, 9}),
	}
	decoded, err := decodeOutput(encodeOutput(lo))
	if err != nil {
		t.Fatal(err)
	}
	if decoded.OutputID != lo.OutputID || decoded.SlotBooked != lo.SlotBooked {
		t.Fatalf("got %+v, want %+v", decoded, lo)
	}
	if string(decoded.RawOutput.Bytes()) != string([]byte{9, 9, 9}) {
		t.Fatalf("raw bytes mismatch: %v", decoded.RawOutput.Bytes())
	}
}

func TestEncodeDecodeLedgerUpdates(t *testing.T) {
	var id1, id2 ledger.OutputID
	id1[0], id2[0] = 1, 2
	created := []ledger.LedgerOutput{{OutputID: id1, SlotBooked: 1}}
	consumed := []ledger.LedgerSpent{{Output: ledger.LedgerOutput{OutputID: id2, SlotBooked: 1}, SlotSpent: 2}}
	store := ledger.NewLedgerUpdateStore(created, consumed)

	decoded, err := decodeLedgerUpdates(encodeLedgerUpdates(store))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Created()) != 1 || len(decoded.Consumed()) != 1 {
		t.Fatalf("got %d created, %d consumed", len(decoded.Created()), len(decoded.Consumed()))
	}
	if decoded.Created()[0].OutputID != id1 {
		t.Fatalf("created id mismatch")
	}
	if decoded.Consumed()[0].Output.OutputID != id2 {
		t.Fatalf("consumed id mismatch")
	}
}

func TestEncodeDecodeBlock(t *testing.T) {
	var id ledger.BlockID
	id[0] = 3
	b := source.BlockWithMetadata{BlockID: id, SlotIndex: 10, PayloadKind: "transaction", Raw: []byte{1, 2}}
	decoded, err := decodeBlock(encodeBlock(b))
	if err != nil {
		t.Fatal(err)
	}
	if decoded.BlockID != b.BlockID || decoded.SlotIndex != b.SlotIndex || decoded.PayloadKind != b.PayloadKind {
		t.Fatalf("got %+v, want %+v", decoded, b)
	}
}
