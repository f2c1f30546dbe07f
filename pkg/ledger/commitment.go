package ledger

// Commitment is a slot's checkpoint: its presence means every effect of that
// slot is durable (spec.md §3 "Commitment"). It is inserted exactly once, last
// in its slot's write sequence (invariant I3 relies on this ordering).
type Commitment struct {
	CommitmentID SlotCommitmentID
	SlotIndex    SlotIndex
	SlotTimestamp int64 // unix seconds
	Raw          Raw[RawCommitment]
}

// RawCommitment is a marker type satisfying Decodable[RawCommitment] for slot
// commitment bytes; this core never needs to decode commitment internals beyond
// the id/slot already carried alongside the raw bytes; a real deployment would
// plug in the protocol's actual commitment codec here.
type RawCommitment struct {
	CommitmentID SlotCommitmentID
}
