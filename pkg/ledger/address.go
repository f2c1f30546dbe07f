package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressKind tags the variant carried by an Address.
type AddressKind uint8

const (
	AddressEd25519 AddressKind = iota
	AddressAccount
	AddressNFT
	AddressAnchor
	AddressImplicitAccountCreation
	AddressMulti
	AddressRestricted
)

// Address is a tagged-union identifier for anything that can own or control an
// output. The underlying bytes are the address's own identifier (a public key
// hash, or the IndexedID of the owning Account/Anchor/NFT).
type Address struct {
	Kind AddressKind
	Data []byte
}

// Equal reports whether two addresses carry the same kind and bytes.
func (a Address) Equal(other Address) bool {
	if a.Kind != other.Kind || len(a.Data) != len(other.Data) {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// String returns a stable textual form used for logs and document keys. It is
// intentionally not a real bech32 encoder (the HRP/checksum scheme is an external
// API concern); it is hex plus a kind tag, unique and order-preserving per kind.
func (a Address) String() string {
	return addressKindPrefix(a.Kind) + hex.EncodeToString(a.Data)
}

func addressKindPrefix(k AddressKind) string {
	switch k {
	case AddressEd25519:
		return "ed25519:"
	case AddressAccount:
		return "account:"
	case AddressNFT:
		return "nft:"
	case AddressAnchor:
		return "anchor:"
	case AddressImplicitAccountCreation:
		return "implicit:"
	case AddressMulti:
		return "multi:"
	case AddressRestricted:
		return "restricted:"
	default:
		return "unknown:"
	}
}

func addressKindFromPrefix(prefix string) (AddressKind, bool) {
	switch prefix {
	case "ed25519":
		return AddressEd25519, true
	case "account":
		return AddressAccount, true
	case "nft":
		return AddressNFT, true
	case "anchor":
		return AddressAnchor, true
	case "implicit":
		return AddressImplicitAccountCreation, true
	case "multi":
		return AddressMulti, true
	case "restricted":
		return AddressRestricted, true
	default:
		return 0, false
	}
}

// ParseAddress reverses Address.String, recovering the typed Address from its
// kind-prefixed hex form. It is the inverse used wherever a string form
// stored or aggregated by the store (e.g. mongostore's $group on
// details.address) needs to become a usable Address again, rather than
// staying an opaque string.
func ParseAddress(s string) (Address, error) {
	prefix, hexPart, ok := strings.Cut(s, ":")
	if !ok {
		return Address{}, fmt.Errorf("ledger: malformed address string %q", s)
	}
	kind, ok := addressKindFromPrefix(prefix)
	if !ok {
		return Address{}, fmt.Errorf("ledger: unknown address kind prefix %q", prefix)
	}
	data, err := hex.DecodeString(hexPart)
	if err != nil {
		return Address{}, fmt.Errorf("ledger: decode address hex %q: %w", s, err)
	}
	return Address{Kind: kind, Data: data}, nil
}
