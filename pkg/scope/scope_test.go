package scope

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestSpawnJoinsAllTasks(t *testing.T) {
	s := New(context.Background(), zap.NewNop(), "root", nil)
	var n int
	for i := 0; i < 5; i++ {
		s.Spawn("incr", func(ctx context.Context) error {
			n++
			return nil
		})
	}
	if err := s.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Fatalf("got %d, want 5", n)
	}
}

func TestSpawnFailurePropagatesAndAbortsSiblings(t *testing.T) {
	var reports []Report
	supervisor := SupervisorFunc(func(r Report) { reports = append(reports, r) })
	s := New(context.Background(), zap.NewNop(), "root", supervisor)

	boom := errors.New("boom")
	s.Spawn("failing", func(ctx context.Context) error { return boom })
	s.Spawn("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := s.Wait()
	if err == nil {
		t.Fatal("expected an error from Wait")
	}
	if len(reports) == 0 {
		t.Fatal("expected at least one report to the supervisor")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("answer", 42)
	v, ok := Lookup[int](r, "answer")
	if !ok || v != 42 {
		t.Fatalf("got %v, %v, want 42, true", v, ok)
	}
	if _, ok := Lookup[string](r, "answer"); ok {
		t.Fatal("expected type mismatch to fail lookup")
	}
	if _, ok := Lookup[int](r, "missing"); ok {
		t.Fatal("expected missing name to fail lookup")
	}
}

func TestChildScopeCanceledByParentAbort(t *testing.T) {
	parent := New(context.Background(), zap.NewNop(), "parent", nil)
	child := parent.Child("child")

	parent.Abort()

	select {
	case <-child.Context().Done():
	default:
		t.Fatal("expected child scope context to be canceled when parent aborts")
	}
}
