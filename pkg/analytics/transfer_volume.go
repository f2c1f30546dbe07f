package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// TransferVolume sums the base-token amount moved by a slot's transactions:
// every created output's amount, which by ledger balance equals the consumed
// side minus any amount returned to the same owner (spec.md §4.7 "base-token
// transfer volume").
type TransferVolume struct {
	amount uint64
}

func NewTransferVolume() *TransferVolume { return &TransferVolume{} }

func (t *TransferVolume) Name() string { return "base_token_transfer_volume" }

func (t *TransferVolume) Reset() { t.amount = 0 }

func (t *TransferVolume) HandleTransaction(created []ledger.LedgerOutput, _ []ledger.LedgerSpent, _ Context) {
	for i := range created {
		t.amount += created[i].Output.Amount
	}
}

func (t *TransferVolume) TakeMeasurement(ctx Context) Measurement {
	m := Measurement{Name: t.Name(), Slot: ctx.Slot, Amount: t.amount}
	t.Reset()
	return m
}
