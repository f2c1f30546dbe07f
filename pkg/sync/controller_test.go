package sync

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/iotaledger/chronicle/pkg/analytics"
	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source"
	"github.com/iotaledger/chronicle/pkg/source/fixture"
	"github.com/iotaledger/chronicle/pkg/store/memstore"
)

func testAddr(b byte) ledger.Address {
	return ledger.Address{Kind: ledger.AddressEd25519, Data: []byte{b}}
}

func testOutputID(b byte) ledger.OutputID {
	var tx ledger.TransactionID
	tx[0] = b
	return ledger.NewOutputID(tx, 0)
}

func newController(src source.InputSource, st *memstore.Store) *Controller {
	fanout := analytics.New(zap.NewNop(), analytics.MultiSink{}, analytics.Registered()...)
	return New(zap.NewNop(), src, st, st, st, st, st, st, fanout)
}

func TestRunColdBootstrapThenTail(t *testing.T) {
	unspent := []ledger.UnspentOutput{
		{OutputID: testOutputID(1), SlotBooked: 1, Output: ledger.Output{
			Kind: ledger.OutputBasic, Amount: 50,
			UnlockConditions: ledger.UnlockConditionSet{{Kind: ledger.UnlockConditionAddress, Address: testAddr(1)}},
		}},
	}
	status := source.NodeStatus{IsBootstrapped: true, NetworkName: "testnet", LastAcceptedBlockSlot: 2}
	slot2 := fixture.Slot{
		Index:      2,
		Commitment: ledger.Commitment{SlotIndex: 2},
		Created: []ledger.LedgerOutput{{
			OutputID: testOutputID(2), SlotBooked: 2,
			Output: ledger.Output{Kind: ledger.OutputBasic, Amount: 10,
				UnlockConditions: ledger.UnlockConditionSet{{Kind: ledger.UnlockConditionAddress, Address: testAddr(2)}}},
		}},
	}
	src := fixture.New(status, []fixture.Slot{slot2}, unspent)
	st := memstore.New()
	c := newController(src, st)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != StateTail {
		t.Fatalf("got state %v, want %v", c.State(), StateTail)
	}

	doc, err := st.GetOutput(context.Background(), testOutputID(1))
	if err != nil || doc == nil {
		t.Fatalf("expected bootstrapped output to persist: %v", err)
	}
	commitment, err := st.GetLatestCommitment(context.Background())
	if err != nil || commitment == nil || commitment.SlotIndex != 2 {
		t.Fatalf("expected commitment for slot 2, got %+v, err %v", commitment, err)
	}
}

func TestRunFailsOnNetworkChanged(t *testing.T) {
	st := memstore.New()
	if err := st.SetProtocolParameters(context.Background(), ledger.ProtocolParameters{NetworkName: "mainnet"}); err != nil {
		t.Fatal(err)
	}
	status := source.NodeStatus{NetworkName: "testnet"}
	src := fixture.New(status, nil, nil)
	c := newController(src, st)

	err := c.Run(context.Background())
	var netErr *NetworkChangedError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkChangedError, got %v", err)
	}
	if c.State() != StateFatal {
		t.Fatalf("got state %v, want %v", c.State(), StateFatal)
	}
}

func TestRunFailsOnMilestoneGap(t *testing.T) {
	st := memstore.New()
	if err := st.InsertCommitment(context.Background(), ledger.Commitment{SlotIndex: 5}); err != nil {
		t.Fatal(err)
	}
	status := source.NodeStatus{PruningEpoch: 10, LastAcceptedBlockSlot: 20}
	src := fixture.New(status, nil, nil)
	c := newController(src, st)

	err := c.Run(context.Background())
	var gapErr *SyncMilestoneGapError
	if !errors.As(err, &gapErr) {
		t.Fatalf("expected SyncMilestoneGapError, got %v", err)
	}
}

func TestRunFailsOnMilestoneIndexMismatch(t *testing.T) {
	st := memstore.New()
	if err := st.InsertCommitment(context.Background(), ledger.Commitment{SlotIndex: 10}); err != nil {
		t.Fatal(err)
	}
	status := source.NodeStatus{PruningEpoch: 0, LastAcceptedBlockSlot: 3}
	src := fixture.New(status, nil, nil)
	c := newController(src, st)

	err := c.Run(context.Background())
	var mismatchErr *SyncMilestoneIndexMismatchError
	if !errors.As(err, &mismatchErr) {
		t.Fatalf("expected SyncMilestoneIndexMismatchError, got %v", err)
	}
}
