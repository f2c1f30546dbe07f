package memstore

import (
	"context"
	"testing"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

func addr(b byte) ledger.Address {
	return ledger.Address{Kind: ledger.AddressEd25519, Data: []byte{b}}
}

func outputID(b byte) ledger.OutputID {
	var tx ledger.TransactionID
	tx[0] = b
	return ledger.NewOutputID(tx, 0)
}

func basicOutput(amount uint64, owner ledger.Address, extra ...ledger.UnlockCondition) ledger.Output {
	conds := append(ledger.UnlockConditionSet{{Kind: ledger.UnlockConditionAddress, Address: owner}}, extra...)
	return ledger.Output{Kind: ledger.OutputBasic, Amount: amount, UnlockConditions: conds}
}

func TestGetAddressBalance_Timelock(t *testing.T) {
	// S3: timelocked output unlocks availability at its slot, not before.
	s := New()
	ctx := context.Background()
	A := addr(1)
	slot := ledger.SlotIndex(20)
	out := ledger.LedgerOutput{
		OutputID:   outputID(1),
		SlotBooked: 10,
		Output:     basicOutput(100, A, ledger.UnlockCondition{Kind: ledger.UnlockConditionTimelock, SlotIndex: slot}),
	}
	if err := s.InsertUnspentOutputs(ctx, []ledger.LedgerOutput{out}); err != nil {
		t.Fatal(err)
	}

	bal, err := s.GetAddressBalance(ctx, A, 15)
	if err != nil {
		t.Fatal(err)
	}
	if bal.Total != 100 || bal.Available != 0 {
		t.Fatalf("at slot 15: got total=%d available=%d, want total=100 available=0", bal.Total, bal.Available)
	}

	bal, err = s.GetAddressBalance(ctx, A, 25)
	if err != nil {
		t.Fatal(err)
	}
	if bal.Total != 100 || bal.Available != 100 {
		t.Fatalf("at slot 25: got total=%d available=%d, want total=100 available=100", bal.Total, bal.Available)
	}
}

func TestGetAddressBalance_ExpirationWithReturn(t *testing.T) {
	// S4: before expiration, owner has the funds; after, the return address does.
	s := New()
	ctx := context.Background()
	A, B := addr(1), addr(2)
	out := ledger.LedgerOutput{
		OutputID:   outputID(1),
		SlotBooked: 10,
		Output:     basicOutput(100, A, ledger.UnlockCondition{Kind: ledger.UnlockConditionExpiration, Address: B, SlotIndex: 20}),
	}
	if err := s.InsertUnspentOutputs(ctx, []ledger.LedgerOutput{out}); err != nil {
		t.Fatal(err)
	}

	balA15, _ := s.GetAddressBalance(ctx, A, 15)
	balB15, _ := s.GetAddressBalance(ctx, B, 15)
	if balA15.Total != 100 || balA15.Available != 100 {
		t.Fatalf("A at 15: got %+v, want total=100 available=100", balA15)
	}
	if balB15.Total != 0 {
		t.Fatalf("B at 15: got %+v, want total=0", balB15)
	}

	balA25, _ := s.GetAddressBalance(ctx, A, 25)
	balB25, _ := s.GetAddressBalance(ctx, B, 25)
	if balA25.Total != 0 {
		t.Fatalf("A at 25: got %+v, want total=0", balA25)
	}
	if balB25.Total != 100 || balB25.Available != 100 {
		t.Fatalf("B at 25: got %+v, want total=100 available=100", balB25)
	}
}

func TestGetAddressBalance_StorageDepositReturn(t *testing.T) {
	// S5: only the free portion (amount - SDRUC.amount) counts toward balance.
	s := New()
	ctx := context.Background()
	A, B := addr(1), addr(2)
	out := ledger.LedgerOutput{
		OutputID:   outputID(1),
		SlotBooked: 10,
		Output:     basicOutput(1000, A, ledger.UnlockCondition{Kind: ledger.UnlockConditionStorageDepositReturn, ReturnAddress: B, Amount: 900}),
	}
	if err := s.InsertUnspentOutputs(ctx, []ledger.LedgerOutput{out}); err != nil {
		t.Fatal(err)
	}
	bal, err := s.GetAddressBalance(ctx, A, 50)
	if err != nil {
		t.Fatal(err)
	}
	if bal.Total != 100 || bal.Available != 100 {
		t.Fatalf("got %+v, want total=100 available=100", bal)
	}
}

func TestSpendThenBalance(t *testing.T) {
	s := New()
	ctx := context.Background()
	A := addr(1)
	lo := ledger.LedgerOutput{OutputID: outputID(1), SlotBooked: 10, Output: basicOutput(100, A)}
	if err := s.InsertUnspentOutputs(ctx, []ledger.LedgerOutput{lo}); err != nil {
		t.Fatal(err)
	}

	bal, _ := s.GetAddressBalance(ctx, A, 15)
	if bal.Total != 100 {
		t.Fatalf("expected 100 before spend, got %d", bal.Total)
	}

	spend := ledger.LedgerSpent{Output: lo, SlotSpent: 20, TransactionIDSpent: ledger.TransactionID{1}}
	if err := s.UpdateSpentOutputs(ctx, []ledger.LedgerSpent{spend}); err != nil {
		t.Fatal(err)
	}

	bal, _ = s.GetAddressBalance(ctx, A, 15)
	if bal.Total != 100 {
		t.Fatalf("balance at slot before spend must be unaffected, got %d", bal.Total)
	}
	bal, _ = s.GetAddressBalance(ctx, A, 25)
	if bal.Total != 0 {
		t.Fatalf("balance at slot after spend must be zero, got %d", bal.Total)
	}
}

func TestCommitmentAsBarrier(t *testing.T) {
	// Testable property #3: an output with slot_booked <= S_commit is present
	// iff its slot's commitment exists. Outputs booked after S_commit must
	// not be visible to a query pinned at S_commit, even if already inserted
	// (e.g. by a concurrent batch that outran the commitment write).
	s := New()
	ctx := context.Background()
	A := addr(1)

	booked5 := ledger.LedgerOutput{OutputID: outputID(1), SlotBooked: 5, Output: basicOutput(10, A)}
	booked7 := ledger.LedgerOutput{OutputID: outputID(2), SlotBooked: 7, Output: basicOutput(20, A)}
	if err := s.InsertUnspentOutputs(ctx, []ledger.LedgerOutput{booked5, booked7}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertCommitment(ctx, ledger.Commitment{SlotIndex: 5}); err != nil {
		t.Fatal(err)
	}

	changes, err := s.GetUTXOChanges(ctx, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if changes == nil || len(changes.CreatedIDs) != 1 || changes.CreatedIDs[0] != outputID(1) {
		t.Fatalf("expected only the slot-5 output to be visible at the slot-5 commitment, got %+v", changes)
	}

	// The slot-7 output has no commitment yet: a query for its slot must
	// report nothing rather than a partially-applied view.
	none, err := s.GetUTXOChanges(ctx, 7, 5)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("expected nil changes for an uncommitted slot, got %+v", none)
	}
}

func TestMonotonicCommitmentsHasGap(t *testing.T) {
	// Testable property #4: HasGap reports true for any uncommitted slot
	// strictly between two committed slots, and false once every slot in
	// between is filled in.
	s := New()
	ctx := context.Background()

	if err := s.InsertCommitment(ctx, ledger.Commitment{SlotIndex: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertCommitment(ctx, ledger.Commitment{SlotIndex: 5}); err != nil {
		t.Fatal(err)
	}

	gap, err := s.HasGap(ctx, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !gap {
		t.Fatal("expected a gap between slot 1 and slot 5 with nothing committed in between")
	}

	for _, slot := range []ledger.SlotIndex{2, 3, 4} {
		if err := s.InsertCommitment(ctx, ledger.Commitment{SlotIndex: slot}); err != nil {
			t.Fatal(err)
		}
	}

	gap, err = s.HasGap(ctx, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if gap {
		t.Fatal("expected no gap once every intervening slot has a commitment")
	}
}

func TestGetUTXOChangesMatchesLedgerUpdates(t *testing.T) {
	// Testable property #6: get_utxo_changes must match what ledger_updates
	// produced for the same slot.
	s := New()
	ctx := context.Background()
	A := addr(1)
	created := ledger.LedgerOutput{OutputID: outputID(1), SlotBooked: 5, Output: basicOutput(10, A)}
	if err := s.InsertUnspentOutputs(ctx, []ledger.LedgerOutput{created}); err != nil {
		t.Fatal(err)
	}
	spent := ledger.LedgerSpent{
		Output:    ledger.LedgerOutput{OutputID: outputID(2), SlotBooked: 4, Output: basicOutput(5, A)},
		SlotSpent: 5,
	}
	if err := s.UpdateSpentOutputs(ctx, []ledger.LedgerSpent{spent}); err != nil {
		t.Fatal(err)
	}

	changes, err := s.GetUTXOChanges(ctx, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if changes == nil {
		t.Fatal("expected non-nil changes for slot <= ledgerIndex")
	}
	if len(changes.CreatedIDs) != 1 || changes.CreatedIDs[0] != outputID(1) {
		t.Fatalf("unexpected created ids: %v", changes.CreatedIDs)
	}
	if len(changes.ConsumedIDs) != 1 || changes.ConsumedIDs[0] != outputID(2) {
		t.Fatalf("unexpected consumed ids: %v", changes.ConsumedIDs)
	}

	none, err := s.GetUTXOChanges(ctx, 6, 5)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("expected nil changes when slot > ledgerIndex, got %+v", none)
	}
}
