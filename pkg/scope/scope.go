// Package scope implements C9: the structured-concurrency runtime every
// batch-insertion step in pkg/sync is built on (spec.md §4.9). A Scope pairs
// a cancellation boundary with a join set: no task spawned under a Scope can
// outlive it, and a failure or panic in any task bubbles a typed Report to an
// optional Supervisor and then aborts every sibling.
package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scope is one node of the structured-concurrency tree: a parent link, a
// child set, an abort handle (ctx cancellation), and an address registry of
// typed long-lived handles (Registry).
type Scope struct {
	id       uuid.UUID
	name     string
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	group    *errgroup.Group
	groupCtx context.Context

	supervisor Supervisor
	registry   *Registry

	mu       sync.Mutex
	children []*Scope
	parent   *Scope
}

// New builds a root Scope bound to ctx: canceling ctx (or calling Abort)
// tears the whole scope down.
func New(ctx context.Context, logger *zap.Logger, name string, supervisor Supervisor) *Scope {
	scopeCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(scopeCtx)
	return &Scope{
		id:         uuid.New(),
		name:       name,
		logger:     logger,
		ctx:        scopeCtx,
		cancel:     cancel,
		group:      group,
		groupCtx:   groupCtx,
		supervisor: supervisor,
		registry:   NewRegistry(),
	}
}

// Child builds a nested Scope whose lifetime is bounded by its parent: if
// the parent is aborted or its ctx is canceled, the child's ctx is canceled
// too (context.WithCancel's own propagation), and the parent tracks the
// child so Abort can be driven top-down for diagnostics.
func (s *Scope) Child(name string) *Scope {
	child := New(s.ctx, s.logger, name, s.supervisor)
	child.parent = s

	s.mu.Lock()
	s.children = append(s.children, child)
	s.mu.Unlock()
	return child
}

// Registry returns this scope's address registry of typed handles.
func (s *Scope) Registry() *Registry { return s.registry }

// Context returns the scope-bound context tasks should use for
// cancellation-aware I/O.
func (s *Scope) Context() context.Context { return s.groupCtx }

// Spawn runs fn as a task bound to the scope (spec.md §4.9 "spawn_actor"): a
// panic is recovered, reported to the supervisor, and turned into an
// aborting error so every sibling task observes ctx.Done() on their next
// suspension point.
func (s *Scope) Spawn(name string, fn func(ctx context.Context) error) {
	s.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %q panicked: %v", name, r)
				s.report(name, err)
			}
		}()
		if err := fn(s.groupCtx); err != nil {
			s.report(name, err)
			return err
		}
		return nil
	})
}

// Abort cancels the scope's context, which fires every child scope's
// cancellation and every in-flight task's ctx.Done().
func (s *Scope) Abort() {
	s.cancel()
}

// Wait blocks until every task spawned directly under this scope has
// returned, then returns the first error encountered (if any). It does not
// wait on child scopes created via Child; callers that fan out into child
// scopes must Wait on each explicitly, mirroring how a nested errgroup
// requires its own Wait.
func (s *Scope) Wait() error {
	err := s.group.Wait()
	s.cancel()
	return err
}

func (s *Scope) report(task string, err error) {
	s.logger.Error("scope task failed", zap.String("scope", s.name), zap.String("task", task), zap.Error(err))
	if s.supervisor != nil {
		s.supervisor.Report(Report{ScopeID: s.id, ScopeName: s.name, TaskName: task, Err: err})
	}
	s.Abort()
}
