package ledger

// SpentMetadata records that an output has been consumed. Once set on an
// OutputDocument it is never cleared (invariant I2).
type SpentMetadata struct {
	TransactionIDSpent TransactionID
	SlotSpent          SlotIndex
	CommitmentIDSpent  SlotCommitmentID
}

// OutputMetadata is the non-details envelope persisted alongside every output
// (spec.md §3 "OutputDocument").
type OutputMetadata struct {
	BlockID              BlockID
	SlotBooked           SlotIndex
	CommitmentIDIncluded SlotCommitmentID
	SpentMetadata        *SpentMetadata
}

// OutputDetails is the query-serving projection derived once at write time and
// never re-derived on read (spec.md §3). Its fields mirror the indexed query
// shapes in spec.md §4.4.1.
type OutputDetails struct {
	Kind           OutputKind
	Amount         uint64
	IsTrivialUnlock bool

	// IndexedID is the (possibly newly concrete) id for Account/Anchor/NFT/
	// Delegation/Foundry outputs; zero value for Basic outputs.
	IndexedID *IndexedID
	FoundryID *FoundryID

	Address                 *Address
	GovernorAddress         *Address
	StateControllerAddress  *Address

	StorageDepositReturn *StorageDepositReturnDetail
	Timelock             *SlotIndex
	Expiration           *ExpirationDetail

	Sender *Address
	Issuer *Address
	Tag    []byte

	BlockIssuerExpiry *SlotIndex
	Staking           *StakingDetail
	Validator         bool

	// AccountAddress is populated for outputs owned via an Account/Anchor state
	// controller, letting indexer queries join through to the controlling
	// account without re-deriving it.
	AccountAddress *Address

	NativeTokenIDs []TokenID
}

// StorageDepositReturnDetail projects the SDRUC unlock condition.
type StorageDepositReturnDetail struct {
	ReturnAddress Address
	Amount        uint64
}

// ExpirationDetail projects the Expiration unlock condition.
type ExpirationDetail struct {
	ReturnAddress Address
	Slot          SlotIndex
}

// StakingDetail projects the Staking feature.
type StakingDetail struct {
	StakedAmount uint64
	FixedCost    uint64
	StartEpoch   uint64
	EndEpoch     uint64
}

// OutputDocument is the persisted form of both LedgerOutput and LedgerSpent
// (spec.md §3). Documents are never deleted: a spend updates spent_metadata on
// the existing document in place (upsert semantics, spec.md §4.4 "Lifecycles").
type OutputDocument struct {
	ID       OutputID
	RawOutput Raw[Output]
	Output    Output
	Metadata  OutputMetadata
	Details   OutputDetails
}

// FromLedgerOutput projects a freshly created output into its persisted form.
// This is the only place in the write path that pattern-matches on the output
// variant (spec.md §4.1): every other component consumes Details, never Output,
// once the document exists.
func FromLedgerOutput(lo *LedgerOutput) OutputDocument {
	doc := OutputDocument{
		ID:        lo.OutputID,
		RawOutput: lo.RawOutput,
		Output:    lo.Output,
		Metadata: OutputMetadata{
			BlockID:              lo.BlockID,
			SlotBooked:           lo.SlotBooked,
			CommitmentIDIncluded: lo.CommitmentIDIncluded,
		},
	}
	doc.Details = projectDetails(&lo.Output, lo.OutputID)
	return doc
}

// ToLedgerOutput recovers a LedgerOutput from a persisted document, for
// callers that need to replay stored outputs back through code written
// against the LedgerOutput shape (e.g. analytics reinitialization from the
// unspent-output set). Like every other read path in this core, it carries
// forward the raw/decoded duality limitation: if Output was never
// reconstructed from RawOutput at load time (spec.md §9, pkg/source/inx's
// decodeOutput), the returned LedgerOutput's Output field is zero-valued and
// only Details-derived facts are trustworthy.
func (d *OutputDocument) ToLedgerOutput() LedgerOutput {
	return LedgerOutput{
		OutputID:             d.ID,
		BlockID:              d.Metadata.BlockID,
		SlotBooked:           d.Metadata.SlotBooked,
		CommitmentIDIncluded: d.Metadata.CommitmentIDIncluded,
		Output:               d.Output,
		RawOutput:            d.RawOutput,
	}
}

// ApplySpend updates an existing OutputDocument in place with spend metadata
// (the upsert-on-spend path, spec.md §4.4). It never clears or rewrites an
// already-set SpentMetadata (invariant I2, spend idempotence property #2 in
// spec.md §8): applying the same spend twice is a no-op past the first.
func (d *OutputDocument) ApplySpend(s *LedgerSpent) {
	if d.Metadata.SpentMetadata != nil {
		return
	}
	d.Metadata.SpentMetadata = &SpentMetadata{
		TransactionIDSpent: s.TransactionIDSpent,
		SlotSpent:          s.SlotSpent,
		CommitmentIDSpent:  s.CommitmentIDSpent,
	}
}

// projectDetails pattern-matches on the output variant to populate every
// details field a query pattern in spec.md §4.4.1 needs. Implicit ids are
// substituted for concrete ones derived from outputID exactly here (spec.md §9
// "Implicit ids").
func projectDetails(o *Output, outputID OutputID) OutputDetails {
	d := OutputDetails{
		Kind:            o.Kind,
		Amount:          o.Amount,
		IsTrivialUnlock: o.UnlockConditions.IsTrivialUnlock(),
	}

	if addr, ok := o.UnlockConditions.Address(); ok {
		d.Address = &addr
	}
	if gov, ok := o.UnlockConditions.Governor(); ok {
		d.GovernorAddress = &gov
	}
	if sc, ok := o.UnlockConditions.StateController(); ok {
		d.StateControllerAddress = &sc
	}
	if ra, amount, ok := o.UnlockConditions.StorageDepositReturn(); ok {
		d.StorageDepositReturn = &StorageDepositReturnDetail{ReturnAddress: ra, Amount: amount}
	}
	if slot, ok := o.UnlockConditions.Timelock(); ok {
		s := slot
		d.Timelock = &s
	}
	if ra, slot, ok := o.UnlockConditions.Expiration(); ok {
		d.Expiration = &ExpirationDetail{ReturnAddress: ra, Slot: slot}
	}
	if sender, ok := o.Features.Sender(); ok {
		d.Sender = &sender
	}
	if issuer, ok := o.Features.Issuer(); ok {
		d.Issuer = &issuer
	}
	if tag, ok := o.Features.Tag(); ok {
		d.Tag = tag
	}
	if bi, ok := o.Features.BlockIssuer(); ok {
		exp := bi.ExpirySlot
		d.BlockIssuerExpiry = &exp
	}
	if st, ok := o.Features.Staking(); ok {
		d.Staking = &StakingDetail{
			StakedAmount: st.StakedAmount,
			FixedCost:    st.FixedCost,
			StartEpoch:   st.StartEpoch,
			EndEpoch:     st.EndEpoch,
		}
	}
	d.Validator = o.IsValidator()

	switch o.Kind {
	case OutputAccount, OutputAnchor, OutputNFT, OutputDelegation:
		id := o.IndexedID
		if id.IsImplicit() {
			id = DeriveFromOutputID(outputID)
		}
		d.IndexedID = &id
		if sc, ok := o.UnlockConditions.StateController(); ok {
			d.AccountAddress = &sc
		}
	case OutputFoundry:
		fid := o.FoundryID
		d.FoundryID = &fid
	}

	for _, nt := range o.NativeTokens() {
		d.NativeTokenIDs = append(d.NativeTokenIDs, nt.TokenID)
	}

	return d
}
