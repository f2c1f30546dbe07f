package ledger

import "fmt"

// InvalidRawBytesError is the single decode-error kind surfaced for every packed
// record (spec.md §4.1, §7). Ingestion call sites log and drop the offending
// message; query call sites propagate it.
type InvalidRawBytesError struct {
	Kind   string
	Reason string
}

func (e *InvalidRawBytesError) Error() string {
	return fmt.Sprintf("invalid raw bytes for %s: %s", e.Kind, e.Reason)
}

// MissingFieldError is returned when a required protocol field is absent from an
// otherwise well-formed record.
type MissingFieldError struct {
	Kind  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q on %s", e.Field, e.Kind)
}
