package analytics

import (
	"testing"

	"go.uber.org/zap"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

type recordingSink struct {
	measurements []Measurement
}

func (r *recordingSink) Emit(m Measurement) error {
	r.measurements = append(r.measurements, m)
	return nil
}

func addr(b byte) ledger.Address {
	return ledger.Address{Kind: ledger.AddressEd25519, Data: []byte{b}}
}

func outputID(b byte) ledger.OutputID {
	var tx ledger.TransactionID
	tx[0] = b
	return ledger.NewOutputID(tx, 0)
}

func basicOutput(amount uint64, owner ledger.Address) ledger.Output {
	return ledger.Output{
		Kind:             ledger.OutputBasic,
		Amount:           amount,
		UnlockConditions: ledger.UnlockConditionSet{{Kind: ledger.UnlockConditionAddress, Address: owner}},
	}
}

func TestAddressActivityCountsDistinctAddresses(t *testing.T) {
	a := NewAddressActivity()
	ctx := Context{Slot: 1}
	created := []ledger.LedgerOutput{
		{OutputID: outputID(1), Output: basicOutput(10, addr(1))},
		{OutputID: outputID(2), Output: basicOutput(20, addr(2))},
	}
	a.HandleTransaction(created, nil, ctx)
	m := a.TakeMeasurement(ctx)
	if m.Count != 2 {
		t.Fatalf("got %d, want 2", m.Count)
	}
}

func TestOutputActivityCountsByKind(t *testing.T) {
	o := NewOutputActivity()
	ctx := Context{Slot: 1}
	created := []ledger.LedgerOutput{
		{OutputID: outputID(1), Output: ledger.Output{Kind: ledger.OutputBasic}},
		{OutputID: outputID(2), Output: ledger.Output{Kind: ledger.OutputNFT}},
	}
	o.HandleTransaction(created, nil, ctx)
	m := o.TakeMeasurement(ctx)
	if m.Buckets["created:basic"] != 1 || m.Buckets["created:nft"] != 1 {
		t.Fatalf("got %+v", m.Buckets)
	}
}

func TestFanoutDisablesPanickingAnalytic(t *testing.T) {
	sink := &recordingSink{}
	f := New(zap.NewNop(), sink, &panickingAnalytic{})
	ctx := Context{Slot: 1}
	updates := ledger.NewLedgerUpdateStore(nil, nil)

	f.HandleSlot(ctx, updates)
	f.HandleSlot(ctx, updates)

	if len(sink.measurements) != 0 {
		t.Fatalf("expected the panicking analytic to never reach the sink, got %d", len(sink.measurements))
	}
}

type panickingAnalytic struct{}

func (p *panickingAnalytic) Name() string { return "panicking" }
func (p *panickingAnalytic) HandleTransaction(_ []ledger.LedgerOutput, _ []ledger.LedgerSpent, _ Context) {
	panic("boom")
}
func (p *panickingAnalytic) TakeMeasurement(_ Context) Measurement { return Measurement{} }

func TestFanoutReinitializesOnProtocolParameterChange(t *testing.T) {
	sink := &recordingSink{}
	tokens := NewUnclaimedTokens()
	f := New(zap.NewNop(), sink, tokens)

	params1 := &ledger.ProtocolParameters{Version: 1}
	created := []ledger.LedgerOutput{{
		OutputID: outputID(1),
		Output: ledger.Output{
			Kind: ledger.OutputBasic, Amount: 5,
			Features: ledger.FeatureSet{{Kind: ledger.FeatureNativeToken, TokenID: ledger.TokenID{1}}},
		},
	}}
	f.HandleSlot(Context{Slot: 1, Parameters: params1}, ledger.NewLedgerUpdateStore(created, nil))
	if tokens.TakeMeasurement(Context{Slot: 1}).Count != 1 {
		t.Fatalf("expected 1 outstanding token output before reinit")
	}

	params2 := &ledger.ProtocolParameters{Version: 2}
	if !f.NeedsReinitialization(params2) {
		t.Fatal("expected a parameter change to require reinitialization")
	}
	f.ReinitializeFromUnspent(nil, Context{Slot: 2, Parameters: params2})
	f.HandleSlot(Context{Slot: 2, Parameters: params2}, ledger.NewLedgerUpdateStore(nil, nil))
	if got := tokens.TakeMeasurement(Context{Slot: 2}).Count; got != 0 {
		t.Fatalf("expected reinit to clear outstanding set, got %d", got)
	}
}
