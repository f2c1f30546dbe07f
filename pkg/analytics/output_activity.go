package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// OutputActivity counts created/consumed outputs per kind (spec.md §4.7
// "output activity by kind"), grounded on original_source's
// OutputActivityMeasurement (nft/alias/foundry created_count/
// transferred_count/destroyed_count), generalized to every OutputKind
// rather than just the three id-carrying legacy variants.
type OutputActivity struct {
	createdCount map[ledger.OutputKind]uint64
	consumedCount map[ledger.OutputKind]uint64
}

func NewOutputActivity() *OutputActivity {
	return &OutputActivity{
		createdCount:  make(map[ledger.OutputKind]uint64),
		consumedCount: make(map[ledger.OutputKind]uint64),
	}
}

func (o *OutputActivity) Name() string { return "output_activity" }

func (o *OutputActivity) Reset() {
	o.createdCount = make(map[ledger.OutputKind]uint64)
	o.consumedCount = make(map[ledger.OutputKind]uint64)
}

func (o *OutputActivity) HandleTransaction(created []ledger.LedgerOutput, consumed []ledger.LedgerSpent, _ Context) {
	for i := range created {
		o.createdCount[created[i].Output.Kind]++
	}
	for i := range consumed {
		o.consumedCount[consumed[i].Output.Output.Kind]++
	}
}

func (o *OutputActivity) TakeMeasurement(ctx Context) Measurement {
	buckets := make(map[string]uint64, len(o.createdCount)+len(o.consumedCount))
	for kind, count := range o.createdCount {
		buckets["created:"+kind.String()] = count
	}
	for kind, count := range o.consumedCount {
		buckets["consumed:"+kind.String()] = count
	}
	m := Measurement{Name: o.Name(), Slot: ctx.Slot, Buckets: buckets}
	o.Reset()
	return m
}
