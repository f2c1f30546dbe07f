package balance

import (
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

func TestProjectorTimelock(t *testing.T) {
	p := NewProjector()
	A := addr(1)
	id := outputID(1)
	out := basicOutput(100, A, ledger.UnlockCondition{Kind: ledger.UnlockConditionTimelock, SlotIndex: 20})
	updates := ledger.NewLedgerUpdateStore([]ledger.LedgerOutput{{OutputID: id, SlotBooked: 10, Output: out}}, nil)

	p.Apply(10, updates)
	if p.Balance(A) != 0 {
		t.Fatalf("expected 0 before timelock elapses, got %d", p.Balance(A))
	}

	p.Apply(20, ledger.NewLedgerUpdateStore(nil, nil))
	if p.Balance(A) != 100 {
		t.Fatalf("expected 100 after timelock elapses, got %d", p.Balance(A))
	}
}

func TestProjectorExpiration(t *testing.T) {
	p := NewProjector()
	A, B := addr(1), addr(2)
	id := outputID(1)
	out := basicOutput(100, A, ledger.UnlockCondition{Kind: ledger.UnlockConditionExpiration, Address: B, SlotIndex: 20})
	updates := ledger.NewLedgerUpdateStore([]ledger.LedgerOutput{{OutputID: id, SlotBooked: 10, Output: out}}, nil)

	p.Apply(10, updates)
	if p.Balance(A) != 100 || p.Balance(B) != 0 {
		t.Fatalf("before expiration: A=%d B=%d, want A=100 B=0", p.Balance(A), p.Balance(B))
	}

	p.Apply(20, ledger.NewLedgerUpdateStore(nil, nil))
	if p.Balance(A) != 0 || p.Balance(B) != 100 {
		t.Fatalf("after expiration: A=%d B=%d, want A=0 B=100", p.Balance(A), p.Balance(B))
	}
}

func TestProjectorConsumeBeforeLockElapses(t *testing.T) {
	p := NewProjector()
	A := addr(1)
	id := outputID(1)
	out := basicOutput(100, A, ledger.UnlockCondition{Kind: ledger.UnlockConditionTimelock, SlotIndex: 20})
	lo := ledger.LedgerOutput{OutputID: id, SlotBooked: 10, Output: out}
	p.Apply(10, ledger.NewLedgerUpdateStore([]ledger.LedgerOutput{lo}, nil))

	spend := ledger.LedgerSpent{Output: lo, SlotSpent: 15}
	p.Apply(15, ledger.NewLedgerUpdateStore(nil, []ledger.LedgerSpent{spend}))

	p.Apply(25, ledger.NewLedgerUpdateStore(nil, nil))
	if p.Balance(A) != 0 {
		t.Fatalf("consumed-while-locked output must never unlock, got %d", p.Balance(A))
	}
}

func TestProjectorSpendThenBalance(t *testing.T) {
	p := NewProjector()
	A := addr(1)
	id := outputID(1)
	lo := ledger.LedgerOutput{OutputID: id, SlotBooked: 10, Output: basicOutput(100, A)}
	p.Apply(10, ledger.NewLedgerUpdateStore([]ledger.LedgerOutput{lo}, nil))
	if p.Balance(A) != 100 {
		t.Fatalf("got %d, want 100", p.Balance(A))
	}

	spend := ledger.LedgerSpent{Output: lo, SlotSpent: 20}
	p.Apply(20, ledger.NewLedgerUpdateStore(nil, []ledger.LedgerSpent{spend}))
	if p.Balance(A) != 0 {
		t.Fatalf("got %d, want 0 after spend", p.Balance(A))
	}
}
