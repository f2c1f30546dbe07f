// Package ledger holds Chronicle's in-process representation of the IOTA-style
// UTXO ledger: identifiers, outputs, unlock conditions, features, and the raw/decoded
// duality used to persist and project them.
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// BlockIDLength is the fixed byte length of a block identifier.
const BlockIDLength = 36

// TransactionIDLength is the fixed byte length of a transaction identifier.
const TransactionIDLength = 32

// SlotCommitmentIDLength is the fixed byte length of a slot commitment identifier.
// The trailing 4 bytes carry the slot index, little-endian.
const SlotCommitmentIDLength = 36

// OutputIndexLength is the byte length of the output index suffix in an OutputID.
const OutputIndexLength = 2

// BlockID identifies an accepted block.
type BlockID [BlockIDLength]byte

func (id BlockID) String() string { return hex.EncodeToString(id[:]) }

// IsEmpty reports whether id is the all-zero placeholder.
func (id BlockID) IsEmpty() bool { return id == BlockID{} }

// TransactionID identifies the transaction that created a set of outputs.
type TransactionID [TransactionIDLength]byte

func (id TransactionID) String() string { return hex.EncodeToString(id[:]) }

// OutputID identifies a single output: its owning transaction id plus its index
// within that transaction's output list.
type OutputID [TransactionIDLength + OutputIndexLength]byte

// NewOutputID builds an OutputID from a transaction id and output index.
func NewOutputID(txID TransactionID, index uint16) OutputID {
	var id OutputID
	copy(id[:TransactionIDLength], txID[:])
	binary.LittleEndian.PutUint16(id[TransactionIDLength:], index)
	return id
}

// TransactionID returns the transaction id component of the output id.
func (id OutputID) TransactionID() TransactionID {
	var txID TransactionID
	copy(txID[:], id[:TransactionIDLength])
	return txID
}

// Index returns the output index component of the output id.
func (id OutputID) Index() uint16 {
	return binary.LittleEndian.Uint16(id[TransactionIDLength:])
}

func (id OutputID) String() string { return hex.EncodeToString(id[:]) }

// SlotCommitmentID identifies a slot's commitment record. Its tail 4 bytes encode
// the committed slot index, so the slot is always recoverable from the id alone.
type SlotCommitmentID [SlotCommitmentIDLength]byte

// SlotIndex returns the slot index embedded in the commitment id's tail.
func (id SlotCommitmentID) SlotIndex() SlotIndex {
	return SlotIndex(binary.LittleEndian.Uint32(id[SlotCommitmentIDLength-4:]))
}

func (id SlotCommitmentID) String() string { return hex.EncodeToString(id[:]) }

// SlotIndex is a monotonically increasing slot number; slot commitments form a
// gapless chain over it (invariant I3).
type SlotIndex uint32

// IdentifierKind distinguishes the id-carrying output variants that may hold an
// implicit (all-zero) id until their first materialization.
type IdentifierKind uint8

const (
	IdentifierKindAccount IdentifierKind = iota
	IdentifierKindAnchor
	IdentifierKindNFT
	IdentifierKindFoundry
	IdentifierKindDelegation
)

// IndexedID is the 32-byte identifier family shared by Account/Anchor/NFT/
// Delegation outputs, and the 37-byte FoundryID (account id + serial + token
// scheme type) modeled as a fixed 32-byte value for the non-foundry cases plus a
// dedicated FoundryID type below.
type IndexedID [32]byte

// IsImplicit reports whether id is the all-zero placeholder meaning "derive from
// the containing output id on first materialization" (spec.md §3).
func (id IndexedID) IsImplicit() bool { return id == IndexedID{} }

func (id IndexedID) String() string { return hex.EncodeToString(id[:]) }

// DeriveFromOutputID deterministically and idempotently derives a concrete
// IndexedID from the output id that first carried it implicitly. Once derived,
// the value is stable: a later spend-and-recreate of the same entity keeps the
// id forever (spec.md §3 "Identifiers").
func DeriveFromOutputID(outputID OutputID) IndexedID {
	var id IndexedID
	copy(id[:], outputID[:])
	return id
}

// FoundryIDLength is the fixed byte length of a FoundryID (account id + serial
// number + token scheme type).
const FoundryIDLength = 32 + 4 + 1

// FoundryID identifies a foundry output; unlike the other indexed ids it is never
// implicit because it is derivable purely from its controlling account and serial
// number at construction time.
type FoundryID [FoundryIDLength]byte

func (id FoundryID) String() string { return hex.EncodeToString(id[:]) }

// NewFoundryID builds a FoundryID from its controlling account, serial number and
// token scheme type byte.
func NewFoundryID(account IndexedID, serial uint32, tokenSchemeType byte) FoundryID {
	var id FoundryID
	copy(id[:32], account[:])
	binary.BigEndian.PutUint32(id[32:36], serial)
	id[36] = tokenSchemeType
	return id
}

// ParseHexID is a small helper used by query/CLI surfaces to parse a hex string
// into a byte slice of the expected length. It is not used on any hot ingestion
// path.
func ParseHexID(s string, n int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex id %q: %w", s, err)
	}
	if len(b) != n {
		return nil, fmt.Errorf("invalid id length for %q: got %d want %d", s, len(b), n)
	}
	return b, nil
}
