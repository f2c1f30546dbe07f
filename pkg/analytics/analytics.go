// Package analytics implements C7: the per-slot analytics fan-out (spec.md
// §4.7). Each registered Analytics implementation receives every slot's
// created/consumed outputs through handle_transaction, then is asked for a
// Measurement once the slot is otherwise fully processed.
package analytics

import (
	"github.com/iotaledger/chronicle/pkg/ledger"
)

// Context exposes the per-slot facts an Analytics implementation needs
// without coupling it to the sync controller or store (spec.md §4.7: "ctx
// exposes slot index, slot timestamp, protocol parameters").
type Context struct {
	Slot       ledger.SlotIndex
	Timestamp  uint64
	Parameters *ledger.ProtocolParameters
}

// Measurement is one analytic's result for a single slot. Fields are
// sparsely populated: only the ones a given analytic fills in are
// meaningful, following the same tagged-union shape the ledger package uses
// for Output/Feature/UnlockCondition.
type Measurement struct {
	Name string
	Slot ledger.SlotIndex

	// Scalar results (counts, totals).
	Count  uint64
	Amount uint64

	// Keyed results (distribution-shaped analytics).
	Buckets map[string]uint64
}

// Analytics is the trait every registered analytic implements (spec.md
// §4.7). handle_transaction is called once per slot with that slot's full
// created/consumed sets; take_measurement is called once the slot has been
// fully folded in, and must be safe to call even if handle_transaction saw
// no transactions this slot (an empty slot still needs a measurement row for
// continuity of the time series).
type Analytics interface {
	Name() string
	HandleTransaction(created []ledger.LedgerOutput, consumed []ledger.LedgerSpent, ctx Context)
	TakeMeasurement(ctx Context) Measurement
}

// BlockObserver is an optional extension an Analytics implementation can
// satisfy to also see every block accepted in a slot (slot size, block
// activity): most analytics only care about the ledger updates, so this is
// kept separate rather than widening the core trait for everyone.
type BlockObserver interface {
	HandleBlock(block BlockInfo, ctx Context)
}

// BlockInfo is the subset of source.BlockWithMetadata that block-level
// analytics need, kept here to avoid this package importing pkg/source.
//
// AcceptanceState is always "accepted" for blocks delivered through
// InputSource.AcceptedBlocks: the node extension only streams blocks once
// they are final, so Chronicle never observes a candidate/pending state
// (spec.md §4.7's "acceptance state" bucketing is a single-valued dimension
// in this implementation, kept as a field rather than dropped so a future
// InputSource that does expose pending blocks needs no API change here).
type BlockInfo struct {
	PayloadKind     string
	Size            int
	AcceptanceState string
}

// AcceptanceStateAccepted is the only acceptance state InputSource.AcceptedBlocks
// delivers today.
const AcceptanceStateAccepted = "accepted"
