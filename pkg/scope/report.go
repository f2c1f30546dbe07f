package scope

import "github.com/google/uuid"

// Report is a typed failure bubbled up from a Scope's task to an optional
// Supervisor (spec.md §4.9 "failures bubble as typed reports to an optional
// supervisor").
type Report struct {
	ScopeID   uuid.UUID
	ScopeName string
	TaskName  string
	Err       error
}

// Supervisor receives Reports from scopes it was handed to at construction.
// The sync controller's root scope is supervised by a SupervisorFunc that
// logs each report. Child scopes inherit their parent's supervisor, so nested
// per-batch scopes report to the same one, and their errors also propagate
// through Wait.
type Supervisor interface {
	Report(r Report)
}

// SupervisorFunc adapts a plain function to Supervisor.
type SupervisorFunc func(Report)

func (f SupervisorFunc) Report(r Report) { f(r) }
