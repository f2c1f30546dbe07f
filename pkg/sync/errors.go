package sync

import (
	"fmt"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

// SyncMilestoneGapError is fatal: the node has pruned state Chronicle never
// observed between its resume point and the node's pruning boundary (spec.md
// §4.5 "BootstrapOrResume").
type SyncMilestoneGapError struct {
	Start ledger.SlotIndex
	End   ledger.SlotIndex
}

func (e *SyncMilestoneGapError) Error() string {
	return fmt.Sprintf("sync milestone gap: resume slot %d precedes node pruning boundary %d", e.Start, e.End)
}

// SyncMilestoneIndexMismatchError is fatal: the node's latest accepted slot
// is behind the last slot Chronicle persisted, implying a rollback or a
// different chain than the one Chronicle was tracking.
type SyncMilestoneIndexMismatchError struct {
	Persisted ledger.SlotIndex
	Node      ledger.SlotIndex
}

func (e *SyncMilestoneIndexMismatchError) Error() string {
	return fmt.Sprintf("sync milestone index mismatch: persisted slot %d ahead of node's last accepted slot %d", e.Persisted, e.Node)
}

// NetworkChangedError is fatal: the node's reported network name no longer
// matches the network name already persisted in application state.
type NetworkChangedError struct {
	Persisted string
	Node      string
}

func (e *NetworkChangedError) Error() string {
	return fmt.Sprintf("network changed: persisted network %q, node reports %q", e.Persisted, e.Node)
}
