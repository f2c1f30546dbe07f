// Package store defines the document-store-backed persistence contracts (C4,
// C8, and the supplemented protocol/config/sync collections from spec.md §6).
// The canonical implementation is pkg/store/mongostore; pkg/store/memstore is an
// in-memory implementation used by tests.
package store

import (
	"context"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

// InsertBatchSize is the recommended default batch size for bulk writes
// (spec.md §4.4).
const InsertBatchSize = 1000

// AddressBalance is the result of a balance query at a given ledger index
// (spec.md §4.6, invariant I5).
type AddressBalance struct {
	Total     uint64
	Available uint64
	LedgerIndex ledger.SlotIndex
}

// UTXOChanges is the paired (created, consumed) id set for a slot (spec.md
// §4.4 get_utxo_changes).
type UTXOChanges struct {
	CreatedIDs  []ledger.OutputID
	ConsumedIDs []ledger.OutputID
}

// RichAddress is one row of a get_richest_addresses result.
type RichAddress struct {
	Address ledger.Address
	Balance uint64
}

// TokenDistributionBucket is one row of a get_token_distribution result: the
// count of addresses and total amount held within an order-of-magnitude range
// bucket, mirroring the aggregation shape in original_source's analytics.
type TokenDistributionBucket struct {
	RangeLowerBound uint64
	AddressCount    uint64
	TotalAmount     uint64
}

// OutputStore is C4: persistence, indexing and querying of outputs.
type OutputStore interface {
	// InsertUnspentOutputs inserts many outputs, ignoring duplicates on _id
	// (ordered=false, so one conflict does not stall the batch).
	InsertUnspentOutputs(ctx context.Context, batch []ledger.LedgerOutput) error

	// UpdateSpentOutputs upserts a batch keyed by _id, setting SpentMetadata on
	// each. Implemented as a single bulk command.
	UpdateSpentOutputs(ctx context.Context, batch []ledger.LedgerSpent) error

	// EnsureIndexes creates the full index set idempotently (spec.md §4.4).
	EnsureIndexes(ctx context.Context) error

	GetOutput(ctx context.Context, id ledger.OutputID) (*ledger.OutputDocument, error)
	GetOutputWithMetadata(ctx context.Context, id ledger.OutputID, ledgerIndex ledger.SlotIndex) (*ledger.OutputDocument, error)
	GetOutputMetadata(ctx context.Context, id ledger.OutputID, ledgerIndex ledger.SlotIndex) (*ledger.OutputMetadata, error)

	// GetUnspentOutputStream yields every output booked at or before
	// ledgerIndex and not yet spent as of ledgerIndex.
	GetUnspentOutputStream(ctx context.Context, ledgerIndex ledger.SlotIndex) (<-chan OutputStreamItem, error)

	GetCreatedOutputs(ctx context.Context, slot ledger.SlotIndex) (<-chan OutputStreamItem, error)
	GetConsumedOutputs(ctx context.Context, slot ledger.SlotIndex) (<-chan OutputStreamItem, error)

	// GetUTXOChanges returns nil, nil if slot > ledgerIndex (spec.md §4.4).
	GetUTXOChanges(ctx context.Context, slot ledger.SlotIndex, ledgerIndex ledger.SlotIndex) (*UTXOChanges, error)

	GetAddressBalance(ctx context.Context, addr ledger.Address, ledgerIndex ledger.SlotIndex) (AddressBalance, error)
	GetRichestAddresses(ctx context.Context, ledgerIndex ledger.SlotIndex, topN int) ([]RichAddress, error)
	GetTokenDistribution(ctx context.Context, ledgerIndex ledger.SlotIndex) ([]TokenDistributionBucket, error)

	// Indexer queries (spec.md §4.4.1), one per indexable kind.
	QueryIndexed(ctx context.Context, kind ledger.OutputKind, q IndexedQuery, ledgerIndex ledger.SlotIndex) (<-chan OutputStreamItem, error)
}

// OutputStreamItem is one element of an output stream, paired with an error
// slot so a mid-stream decode/store failure can be surfaced without losing
// already-yielded items.
type OutputStreamItem struct {
	Document ledger.OutputDocument
	Err      error
}

// CommitmentStore is the slot commitment collection (spec.md §6).
type CommitmentStore interface {
	InsertCommitment(ctx context.Context, c ledger.Commitment) error
	GetLatestCommitment(ctx context.Context) (*ledger.Commitment, error)
	GetCommitment(ctx context.Context, slot ledger.SlotIndex) (*ledger.Commitment, error)
	// HasGap reports whether some slot in (from, to) lacks a commitment, used by
	// invariant I3/I4's monotonic-commitments testable property.
	HasGap(ctx context.Context, from, to ledger.SlotIndex) (bool, error)
}

// BlockStore persists accepted blocks keyed by block id (spec.md §6).
type BlockStore interface {
	InsertBlocks(ctx context.Context, batch []BlockRecord) error
	GetBlock(ctx context.Context, id ledger.BlockID) (*BlockRecord, error)
}

// BlockRecord is a persisted accepted block.
type BlockRecord struct {
	BlockID     ledger.BlockID
	SlotIndex   ledger.SlotIndex
	Raw         []byte
	PayloadKind string
}

// ApplicationState is the C8 singleton.
type ApplicationState struct {
	StartingSlot       *ledger.SlotIndex
	LastMigration      *Migration
	ProtocolParameters *ledger.ProtocolParameters
}

// Migration records the last-applied schema migration.
type Migration struct {
	ID         uint32
	AppVersion string
	Date       int64
}

// ApplicationStateStore is C8: the durable resume cursor of last resort.
type ApplicationStateStore interface {
	GetStartingIndex(ctx context.Context) (*ledger.SlotIndex, error)
	SetStartingIndex(ctx context.Context, slot ledger.SlotIndex) error
	GetLastMigration(ctx context.Context) (*Migration, error)
	SetLastMigration(ctx context.Context, m Migration) error
	GetProtocolParameters(ctx context.Context) (*ledger.ProtocolParameters, error)
	SetProtocolParameters(ctx context.Context, p ledger.ProtocolParameters) error
}

// ProtocolUpdateStore is the "one record per parameter change" collection named
// in spec.md §6, supplemented per SPEC_FULL.md §4. The sync controller reads
// LatestProtocolUpdate and records a new entry only when a slot's parameters
// differ from it; C7's reinitialization trigger compares parameters inside the
// analytics fan-out and does not read this store.
type ProtocolUpdateStore interface {
	RecordProtocolUpdate(ctx context.Context, effectiveSlot ledger.SlotIndex, p ledger.ProtocolParameters) error
	LatestProtocolUpdate(ctx context.Context) (*ledger.ProtocolParameters, error)
}

// NodeConfigurationStore persists the latest node configuration record (spec.md
// §6).
type NodeConfigurationStore interface {
	SetNodeConfiguration(ctx context.Context, cfg ledger.ProtocolParametersHistory) error
	GetNodeConfiguration(ctx context.Context) (*ledger.ProtocolParametersHistory, error)
}

// SyncRecord is the historical per-milestone sync bookkeeping record (spec.md
// §6). It exists only as a schema artifact for compatibility with the
// collection name; no executable walker reads or writes it in the current
// design (spec.md §9, SPEC_FULL.md §4 "Older sync code paths").
type SyncRecord struct {
	MilestoneIndex uint32
	Logged         bool
	Synced         bool
}

// SyncRecordStore is kept only so the fixed collection name (spec.md §6) has a
// typed home; it is never driven by the sync controller.
type SyncRecordStore interface {
	UpsertSyncRecord(ctx context.Context, r SyncRecord) error
}
