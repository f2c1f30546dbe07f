package ledger

// OutputKind tags the Output variant. Alias and Treasury are carried only for
// the older (Chrysalis-era) schema that some historical documents still use;
// new outputs are never produced with these kinds (spec.md §3).
type OutputKind uint8

const (
	OutputBasic OutputKind = iota
	OutputAccount
	OutputFoundry
	OutputNFT
	OutputDelegation
	OutputAnchor
	OutputAlias    // legacy
	OutputTreasury // legacy
)

func (k OutputKind) String() string {
	switch k {
	case OutputBasic:
		return "basic"
	case OutputAccount:
		return "account"
	case OutputFoundry:
		return "foundry"
	case OutputNFT:
		return "nft"
	case OutputDelegation:
		return "delegation"
	case OutputAnchor:
		return "anchor"
	case OutputAlias:
		return "alias"
	case OutputTreasury:
		return "treasury"
	default:
		return "unknown"
	}
}

// Output is a tagged union over every on-ledger output variant (spec.md §3).
// Every variant carries Amount, Mana and NativeTokens; the id-carrying variants
// additionally carry an IndexedID that may be implicit until first
// materialization.
type Output struct {
	Kind OutputKind

	Amount uint64
	Mana   uint64

	UnlockConditions  UnlockConditionSet
	Features          FeatureSet
	ImmutableFeatures FeatureSet

	// IndexedID is populated for Account, Anchor, NFT, Delegation outputs. It may
	// be the all-zero implicit id until OutputDocument projection substitutes the
	// concrete id derived from the output's own OutputID.
	IndexedID IndexedID

	// FoundryID is populated only for Foundry outputs (never implicit: it is
	// derivable at construction time from the controlling account + serial +
	// token scheme type).
	FoundryID FoundryID

	// Delegation-specific.
	DelegatedAmount uint64
	ValidatorID     IndexedID // the account id being delegated to
	StartEpoch      uint64
	EndEpoch        uint64 // 0 == not yet ended

	// NumKeyBytes/NumDataBytes are filled in at decode time from the packed
	// form, for rent computation (spec.md §3 "Rent-structure bytes").
	NumKeyBytes  uint64
	NumDataBytes uint64
}

// GovernorAddress returns the governor address for Account/Anchor outputs.
func (o *Output) GovernorAddress() (Address, bool) {
	return o.UnlockConditions.Governor()
}

// StateControllerAddress returns the state controller address for Account/Anchor
// outputs.
func (o *Output) StateControllerAddress() (Address, bool) {
	return o.UnlockConditions.StateController()
}

// OwnerAddress returns the address that ultimately controls spending of this
// output for balance-accounting purposes: the plain Address unlock condition for
// Basic/NFT/Foundry outputs, or the state controller for Account/Anchor outputs.
func (o *Output) OwnerAddress() (Address, bool) {
	switch o.Kind {
	case OutputAccount, OutputAnchor:
		return o.StateControllerAddress()
	default:
		return o.UnlockConditions.Address()
	}
}

// IsValidator reports whether this Account output registers block-issuer keys
// (spec.md's `validator` detail field draws from this).
func (o *Output) IsValidator() bool {
	_, ok := o.Features.BlockIssuer()
	return ok
}
