package observability

import (
	"context"
	"testing"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	s := NoopSolverHooks{}
	s.OnSolveStart(ctx, 2, 3)
	s.OnSolveComplete(ctx, "optimal", nil)
	s.OnNodeExplored(ctx, 1, "optimal")
	s.OnIncumbent(ctx, 36.0)
	s.OnCutAdded(ctx, 0, 2.0)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "solve")
	c.OnCacheMiss(ctx, "render")
	c.OnCacheSet(ctx, "solve", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Solver().(NoopSolverHooks); !ok {
		t.Error("Solver() should return NoopSolverHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customSolver := &testSolverHooks{}
	SetSolverHooks(customSolver)
	if Solver() != customSolver {
		t.Error("SetSolverHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Solver().(NoopSolverHooks); !ok {
		t.Error("Reset() should restore NoopSolverHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSolverHooks{}
	SetSolverHooks(custom)

	SetSolverHooks(nil)

	if Solver() != custom {
		t.Error("SetSolverHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testSolverHooks struct{ NoopSolverHooks }
type testCacheHooks struct{ NoopCacheHooks }
