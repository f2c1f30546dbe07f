// Package source defines InputSource, the abstraction that hides whether ledger
// data comes from a live node connection, historical replay out of the document
// store, or a test fixture (spec.md §4.2, C2).
package source

import (
	"context"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

// Range is a half-open bound set over slot indices: [Start, End). Setting
// Unbounded removes the upper bound (tail indefinitely) and End is then
// ignored; a zero End without Unbounded is an empty range. Start is always
// inclusive.
//
// This resolves spec.md §9's open question about SlotRangeRequest.end_slot:
// Chronicle defines end_slot as EXCLUSIVE, matching Go's own slice/range
// convention, and documents the choice here at the InputSource boundary.
type Range struct {
	Start    ledger.SlotIndex
	End      ledger.SlotIndex
	Unbounded bool
}

// Contains reports whether slot falls within the range.
func (r Range) Contains(slot ledger.SlotIndex) bool {
	if slot < r.Start {
		return false
	}
	if r.Unbounded {
		return true
	}
	return slot < r.End
}

// NodeStatus is the node's self-reported state at connection time (spec.md
// §4.5 "Init").
type NodeStatus struct {
	PruningEpoch                  uint64
	LastAcceptedBlockSlot         ledger.SlotIndex
	LatestCommitment              ledger.Commitment
	LatestFinalizedCommitmentID   ledger.SlotCommitmentID
	IsBootstrapped                bool
	NetworkName                   string
}

// NodeConfiguration is the latest node configuration delivered with a slot,
// including the protocol parameters history used to resolve the parameters
// active at that slot's epoch (spec.md §4.3).
type NodeConfiguration struct {
	ProtocolParameters ledger.ProtocolParametersHistory
}

// SlotData is what SlotStream yields per committed slot index: the slot's
// commitment plus the node configuration in effect (spec.md §4.2).
type SlotData struct {
	Commitment  ledger.Commitment
	NodeConfig  NodeConfiguration
}

// BlockWithMetadata pairs an accepted block's raw bytes with its acceptance
// metadata, in white-flag (canonical) order within a slot (spec.md §4.2).
type BlockWithMetadata struct {
	BlockID   ledger.BlockID
	SlotIndex ledger.SlotIndex
	Raw       []byte
	// PayloadKind lets block-activity analytics bucket by payload type without
	// decoding the full block body.
	PayloadKind string
}

// InputSource is the one trait every ledger data origin implements: the live
// node connection (pkg/source/inx), historical replay out of the document store
// (pkg/source/replay), and test fixtures (pkg/source/fixture) (spec.md §4.2).
//
// Ordering guarantees: SlotStream is monotonically increasing by slot index;
// within a slot, AcceptedBlocks order is deterministic; LedgerUpdates has no
// internal order requirement but Created and Consumed must each be complete.
// Cancellation: callers cancel ctx to release any underlying subscription
// promptly; implementations must not leak goroutines past ctx.Done().
type InputSource interface {
	// NodeStatus reads the node's current status, used by the sync controller's
	// Init/BootstrapOrResume steps.
	NodeStatus(ctx context.Context) (NodeStatus, error)

	// SlotStream yields SlotData for each committed slot index in range, in
	// increasing slot order.
	SlotStream(ctx context.Context, r Range) (<-chan SlotStreamItem, error)

	// LedgerUpdates returns the full set of creations/consumptions for a slot.
	// Repeated calls for the same slot index must return identical values.
	LedgerUpdates(ctx context.Context, slot ledger.SlotIndex) (*ledger.LedgerUpdateStore, error)

	// AcceptedBlocks yields the blocks accepted in the slot, in canonical order.
	AcceptedBlocks(ctx context.Context, slot ledger.SlotIndex) (<-chan BlockStreamItem, error)

	// UnspentOutputs yields every unspent output at the node's current pruning
	// boundary. Used only at cold bootstrap.
	UnspentOutputs(ctx context.Context) (<-chan UnspentOutputStreamItem, error)
}

// SlotStreamItem is one element of a SlotStream channel: either a slot's data,
// or a terminal error.
type SlotStreamItem struct {
	Slot ledger.SlotIndex
	Data SlotData
	Err  error
}

// BlockStreamItem is one element of an AcceptedBlocks channel.
type BlockStreamItem struct {
	Block BlockWithMetadata
	Err   error
}

// UnspentOutputStreamItem is one element of an UnspentOutputs channel.
type UnspentOutputStreamItem struct {
	Output ledger.UnspentOutput
	Err    error
}
