package ledger

// LedgerOutput is the created-output record yielded by an InputSource's ledger
// update stream (spec.md §3).
type LedgerOutput struct {
	OutputID            OutputID
	BlockID             BlockID
	SlotBooked          SlotIndex
	CommitmentIDIncluded SlotCommitmentID
	Output               Output
	RawOutput            Raw[Output]
}

// LedgerSpent is the consumed-output record yielded alongside creations for the
// same slot. SlotSpent >= SlotBooked always holds (invariant I2).
type LedgerSpent struct {
	Output             LedgerOutput
	SlotSpent          SlotIndex
	CommitmentIDSpent  SlotCommitmentID
	TransactionIDSpent TransactionID
}

// UnspentOutput is the shape yielded by InputSource.UnspentOutputs at cold
// bootstrap: a LedgerOutput with no spend information, since it is by
// definition still unspent at the node's pruning boundary.
type UnspentOutput = LedgerOutput

// LedgerUpdateStore is the immutable, in-memory per-slot record of everything
// created and consumed in that slot (spec.md §3, §4.3). It is built once by the
// slot stream and handed by reference to every downstream consumer of the slot
// (output store writer, balance projector, analytics fan-out) so none of them
// re-fetch from the source.
type LedgerUpdateStore struct {
	created       []LedgerOutput
	consumed      []LedgerSpent
	createdByID   map[OutputID]int
	consumedByID  map[OutputID]int
}

// NewLedgerUpdateStore builds an update store from the full created/consumed
// sets for a slot. It is the only constructor: the store is immutable after this
// point (spec.md §4.2 "Immutable after construction").
func NewLedgerUpdateStore(created []LedgerOutput, consumed []LedgerSpent) *LedgerUpdateStore {
	s := &LedgerUpdateStore{
		created:      created,
		consumed:     consumed,
		createdByID:  make(map[OutputID]int, len(created)),
		consumedByID: make(map[OutputID]int, len(consumed)),
	}
	for i, o := range created {
		s.createdByID[o.OutputID] = i
	}
	for i, c := range consumed {
		s.consumedByID[c.Output.OutputID] = i
	}
	return s
}

// Created returns every output created in the slot.
func (s *LedgerUpdateStore) Created() []LedgerOutput { return s.created }

// Consumed returns every output consumed in the slot.
func (s *LedgerUpdateStore) Consumed() []LedgerSpent { return s.consumed }

// GetCreated looks up a created output by id, a pure lookup with no I/O because
// the store is eagerly materialized (spec.md §4.3 "Rationale").
func (s *LedgerUpdateStore) GetCreated(id OutputID) (LedgerOutput, bool) {
	i, ok := s.createdByID[id]
	if !ok {
		return LedgerOutput{}, false
	}
	return s.created[i], true
}

// GetConsumed looks up a consumed output by id.
func (s *LedgerUpdateStore) GetConsumed(id OutputID) (LedgerSpent, bool) {
	i, ok := s.consumedByID[id]
	if !ok {
		return LedgerSpent{}, false
	}
	return s.consumed[i], true
}

// CreatedIDs returns the ids of every output created in the slot, in creation
// order — used by get_utxo_changes (spec.md §4.4).
func (s *LedgerUpdateStore) CreatedIDs() []OutputID {
	ids := make([]OutputID, len(s.created))
	for i, o := range s.created {
		ids[i] = o.OutputID
	}
	return ids
}

// ConsumedIDs returns the ids of every output consumed in the slot.
func (s *LedgerUpdateStore) ConsumedIDs() []OutputID {
	ids := make([]OutputID, len(s.consumed))
	for i, c := range s.consumed {
		ids[i] = c.Output.OutputID
	}
	return ids
}
