package store

import "github.com/iotaledger/chronicle/pkg/ledger"

// IndexedQuery enumerates the filter predicates for an indexed output query
// (spec.md §4.4.1). All set fields are combined with conjunction; every filter
// composes by appending one match document to a top-level $and in the Mongo
// implementation, never by interleaving, so the compound index the planner
// picks stays predictable.
type IndexedQuery struct {
	Address *ledger.Address

	Issuer *ledger.Address
	Sender *ledger.Address

	Tag []byte

	NativeTokens *NativeTokenFilter

	Governor *ledger.Address

	StorageDepositReturn *StorageDepositReturnFilter

	Timelock *SlotBoundsFilter

	Expiration *ExpirationFilter

	Created *SlotBoundsFilter

	// PageSize/Cursor support keyset pagination; the API layer (out of scope)
	// owns cursor encoding, but the store needs the bound to LIMIT efficiently.
	PageSize int
	Cursor   *ledger.OutputID
}

// NativeTokenFilter filters by native-token presence. Min and Max are not
// applied by either store: output details record native-token ids only, not
// their amounts.
type NativeTokenFilter struct {
	Has bool
	Min *ledger.Uint256
	Max *ledger.Uint256
}

// StorageDepositReturnFilter filters by SDRUC presence/return address.
type StorageDepositReturnFilter struct {
	Has           bool
	ReturnAddress *ledger.Address
}

// SlotBoundsFilter filters a slot-valued field by exclusive bounds: values
// strictly less than Before and strictly greater than After; both ends optional.
type SlotBoundsFilter struct {
	Before *ledger.SlotIndex
	After  *ledger.SlotIndex
}

// ExpirationFilter filters by expiration presence, slot bounds and return
// address.
type ExpirationFilter struct {
	Has           bool
	Before        *ledger.SlotIndex
	After         *ledger.SlotIndex
	ReturnAddress *ledger.Address
}
