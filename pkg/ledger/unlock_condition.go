package ledger

// UnlockConditionKind tags the UnlockCondition variant.
type UnlockConditionKind uint8

const (
	UnlockConditionAddress UnlockConditionKind = iota
	UnlockConditionStorageDepositReturn
	UnlockConditionTimelock
	UnlockConditionExpiration
	UnlockConditionStateControllerAddress
	UnlockConditionGovernorAddress
	UnlockConditionImmutableAccountAddress
)

// UnlockCondition is a tagged union over the predicates that restrict who/when an
// output can be spent (spec.md §3, GLOSSARY). Only the fields relevant to a given
// Kind are populated; the rest are zero.
type UnlockCondition struct {
	Kind UnlockConditionKind

	// Address / StateControllerAddress / GovernorAddress / ImmutableAccountAddress
	Address Address

	// StorageDepositReturn
	ReturnAddress Address
	Amount        uint64

	// Timelock / Expiration
	SlotIndex SlotIndex
}

// UnlockConditionSet is the ordered set of unlock conditions on an output. The
// protocol guarantees at most one of each kind per output.
type UnlockConditionSet []UnlockCondition

func (s UnlockConditionSet) find(kind UnlockConditionKind) (UnlockCondition, bool) {
	for _, c := range s {
		if c.Kind == kind {
			return c, true
		}
	}
	return UnlockCondition{}, false
}

// Address returns the Address unlock condition's address, if present.
func (s UnlockConditionSet) Address() (Address, bool) {
	c, ok := s.find(UnlockConditionAddress)
	return c.Address, ok
}

// Governor returns the GovernorAddress unlock condition's address, if present.
func (s UnlockConditionSet) Governor() (Address, bool) {
	c, ok := s.find(UnlockConditionGovernorAddress)
	return c.Address, ok
}

// StateController returns the StateControllerAddress unlock condition's address,
// if present.
func (s UnlockConditionSet) StateController() (Address, bool) {
	c, ok := s.find(UnlockConditionStateControllerAddress)
	return c.Address, ok
}

// StorageDepositReturn returns the StorageDepositReturn unlock condition, if
// present.
func (s UnlockConditionSet) StorageDepositReturn() (returnAddress Address, amount uint64, ok bool) {
	c, ok := s.find(UnlockConditionStorageDepositReturn)
	return c.ReturnAddress, c.Amount, ok
}

// Timelock returns the Timelock unlock condition's slot, if present.
func (s UnlockConditionSet) Timelock() (SlotIndex, bool) {
	c, ok := s.find(UnlockConditionTimelock)
	return c.SlotIndex, ok
}

// Expiration returns the Expiration unlock condition's slot and return address,
// if present.
func (s UnlockConditionSet) Expiration() (returnAddress Address, slot SlotIndex, ok bool) {
	c, ok := s.find(UnlockConditionExpiration)
	return c.Address, c.SlotIndex, ok
}

// IsTrivialUnlock reports whether the output can be unlocked by a bare signature
// from its Address unlock condition alone, with no timelock/expiration/SDRUC
// complicating the spend — used to populate OutputDocument.details.is_trivial_unlock.
func (s UnlockConditionSet) IsTrivialUnlock() bool {
	if len(s) != 1 {
		return false
	}
	return s[0].Kind == UnlockConditionAddress
}
