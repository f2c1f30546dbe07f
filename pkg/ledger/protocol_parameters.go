package ledger

// ProtocolParameters carries the network-wide constants that decoding and rent
// computation are checked against. Only the fields this core needs are modeled;
// the rest of the real protocol parameter set (inflation, committee size, ...) is
// out of scope for indexing.
type ProtocolParameters struct {
	Version             uint8
	NetworkName         string
	Bech32HRP           string
	SlotDurationSeconds uint8
	SlotsPerEpoch       uint32

	// RentStructure weighs packed-byte categories into a storage cost (spec.md
	// §3 "Rent").
	Rent RentStructure
}

// RentStructure is the per-factor weight schedule used to compute an output's
// storage deposit cost from its packed byte layout.
type RentStructure struct {
	VByteCost        uint64
	VByteFactorKey   uint64
	VByteFactorData  uint64
	VByteFactorBlock uint64
}

// EpochForSlot returns the epoch index containing the given slot, derived from
// SlotsPerEpoch. Used to pick the protocol parameters active at a slot (spec.md
// §4.3: "the active parameters at the slot's epoch").
func (p *ProtocolParameters) EpochForSlot(slot SlotIndex) uint64 {
	if p.SlotsPerEpoch == 0 {
		return 0
	}
	return uint64(slot) / uint64(p.SlotsPerEpoch)
}

// ProtocolParametersHistory is a node's full reported parameter history, as
// delivered alongside each slot (spec.md §4.3:
// "node_config.protocol_parameters"). Entries are sorted by StartEpoch ascending.
type ProtocolParametersHistory struct {
	Entries []ProtocolParametersEntry
}

// ProtocolParametersEntry pairs a parameter set with the epoch from which it
// takes effect.
type ProtocolParametersEntry struct {
	StartEpoch uint64
	Params     ProtocolParameters
}

// ActiveAt returns the parameters active at the given slot: the entry with the
// largest StartEpoch not exceeding the slot's epoch.
func (h *ProtocolParametersHistory) ActiveAt(slot SlotIndex) *ProtocolParameters {
	var active *ProtocolParametersEntry
	for i := range h.Entries {
		e := &h.Entries[i]
		slotEpoch := uint64(slot)
		if e.Params.SlotsPerEpoch > 0 {
			slotEpoch = uint64(slot) / uint64(e.Params.SlotsPerEpoch)
		}
		if e.StartEpoch <= slotEpoch {
			active = e
		}
	}
	if active == nil {
		if len(h.Entries) == 0 {
			return nil
		}
		return &h.Entries[0].Params
	}
	return &active.Params
}
