package ledger

// FeatureKind tags the Feature variant.
type FeatureKind uint8

const (
	FeatureSender FeatureKind = iota
	FeatureIssuer
	FeatureMetadata
	FeatureTag
	FeatureBlockIssuer
	FeatureStaking
	FeatureNativeToken
)

// BlockIssuerKey is an opaque key registered on a BlockIssuer feature.
type BlockIssuerKey []byte

// Feature is a tagged union over the optional metadata/behavioral annotations an
// output can carry (spec.md §3).
type Feature struct {
	Kind FeatureKind

	// Sender / Issuer
	Address Address

	// Metadata / Tag
	Data []byte

	// BlockIssuer
	ExpirySlot SlotIndex
	Keys       []BlockIssuerKey

	// Staking
	StakedAmount uint64
	FixedCost    uint64
	StartEpoch   uint64
	EndEpoch     uint64

	// NativeToken
	TokenID TokenID
	NativeTokenAmount Uint256
}

// TokenID identifies a native token class, scoped to the foundry that minted it.
type TokenID [38]byte

// Uint256 is a 256-bit unsigned integer stored big-endian. Only equality,
// zero-check and saturating-ish accounting (handled in the balance projector) are
// needed by this core; full arithmetic lives at the API layer.
type Uint256 [32]byte

// IsZero reports whether the value is zero.
func (u Uint256) IsZero() bool {
	for _, b := range u {
		if b != 0 {
			return false
		}
	}
	return true
}

// FeatureSet is the ordered set of features on an output (either mutable
// `features` or `immutable_features`; both use this type).
type FeatureSet []Feature

func (s FeatureSet) find(kind FeatureKind) (Feature, bool) {
	for _, f := range s {
		if f.Kind == kind {
			return f, true
		}
	}
	return Feature{}, false
}

// Sender returns the Sender feature's address, if present.
func (s FeatureSet) Sender() (Address, bool) {
	f, ok := s.find(FeatureSender)
	return f.Address, ok
}

// Issuer returns the Issuer feature's address, if present.
func (s FeatureSet) Issuer() (Address, bool) {
	f, ok := s.find(FeatureIssuer)
	return f.Address, ok
}

// Tag returns the Tag feature's data, if present.
func (s FeatureSet) Tag() ([]byte, bool) {
	f, ok := s.find(FeatureTag)
	return f.Data, ok
}

// BlockIssuer returns the BlockIssuer feature, if present.
func (s FeatureSet) BlockIssuer() (Feature, bool) {
	return s.find(FeatureBlockIssuer)
}

// Staking returns the Staking feature, if present.
func (s FeatureSet) Staking() (Feature, bool) {
	return s.find(FeatureStaking)
}

// NativeTokens returns every NativeToken feature entry.
func (s FeatureSet) NativeTokens() []Feature {
	var out []Feature
	for _, f := range s {
		if f.Kind == FeatureNativeToken {
			out = append(out, f)
		}
	}
	return out
}
