package execctx

import (
	"errors"
	"testing"
	"time"

	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
	"github.com/SergeiGolos/wod-wiki-sub004/wkerr"
)

func TestNowIsFrozenAcrossClockAdvance(t *testing.T) {
	mc := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := New(mc, 0)

	frozen := ctx.Now()
	mc.Advance(5 * time.Second)

	if ctx.Now() != frozen {
		t.Errorf("Now() = %v after clock advance, want frozen %v", ctx.Now(), frozen)
	}
}

func TestDrainProcessesQueueFIFO(t *testing.T) {
	mc := clock.NewManual(time.Now())
	ctx := New(mc, 0)

	var order []string
	ctx.Enqueue([]types.Action{
		{Kind: types.ActionKind("a")},
		{Kind: types.ActionKind("b")},
	})

	err := ctx.Drain(func(c *Context, action types.Action) ([]types.Action, error) {
		order = append(order, string(action.Kind))
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("processing order = %v, want [a b]", order)
	}
	if ctx.Pending() != 0 {
		t.Errorf("Pending() = %d after drain, want 0", ctx.Pending())
	}
}

func TestDrainEnqueuesCascadedActions(t *testing.T) {
	mc := clock.NewManual(time.Now())
	ctx := New(mc, 0)

	ctx.Enqueue([]types.Action{{Kind: types.ActionKind("root")}})

	var seen []string
	err := ctx.Drain(func(c *Context, action types.Action) ([]types.Action, error) {
		seen = append(seen, string(action.Kind))
		if action.Kind == types.ActionKind("root") {
			return []types.Action{{Kind: types.ActionKind("child")}}, nil
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(seen) != 2 || seen[1] != "child" {
		t.Errorf("seen = %v, want [root child] (cascaded action enqueued onto same context)", seen)
	}
}

func TestDrainSurfacesRunawayActions(t *testing.T) {
	mc := clock.NewManual(time.Now())
	ctx := New(mc, 3)

	ctx.Enqueue([]types.Action{{Kind: types.ActionKind("loop")}})

	err := ctx.Drain(func(c *Context, action types.Action) ([]types.Action, error) {
		return []types.Action{{Kind: types.ActionKind("loop")}}, nil
	})
	if err == nil {
		t.Fatal("expected a runaway-actions error")
	}
	var werr *wkerr.Error
	if !errors.As(err, &werr) || werr.Kind != wkerr.RunawayActions {
		t.Errorf("err = %v, want wkerr.RunawayActions", err)
	}
}

func TestDrainPropagatesStepError(t *testing.T) {
	mc := clock.NewManual(time.Now())
	ctx := New(mc, 0)
	ctx.Enqueue([]types.Action{{Kind: types.ActionKind("bad")}})

	boom := errors.New("boom")
	err := ctx.Drain(func(c *Context, action types.Action) ([]types.Action, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Drain err = %v, want %v", err, boom)
	}
}

func TestDrainRecoversStepPanic(t *testing.T) {
	mc := clock.NewManual(time.Now())
	ctx := New(mc, 0)
	ctx.Enqueue([]types.Action{{Kind: types.ActionKind("panicky")}})

	err := ctx.Drain(func(c *Context, action types.Action) ([]types.Action, error) {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("expected Drain to recover the step panic and return an error")
	}
}

func TestDrainIsReentrancyGuarded(t *testing.T) {
	mc := clock.NewManual(time.Now())
	ctx := New(mc, 0)
	ctx.Enqueue([]types.Action{{Kind: types.ActionKind("outer")}})

	var reentrantErr error
	var reentrantCalled bool
	err := ctx.Drain(func(c *Context, action types.Action) ([]types.Action, error) {
		reentrantCalled = true
		reentrantErr = c.Drain(func(*Context, types.Action) ([]types.Action, error) {
			t.Fatal("nested drain step should never run while outer drain is active")
			return nil, nil
		})
		return nil, nil
	})
	if err != nil {
		t.Fatalf("outer Drain: %v", err)
	}
	if !reentrantCalled {
		t.Fatal("expected outer step to run")
	}
	if reentrantErr != nil {
		t.Errorf("reentrant Drain() = %v, want nil (no-op)", reentrantErr)
	}
}

func TestNestedContextHasIndependentQueueAndClock(t *testing.T) {
	mc := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	parent := New(mc, 0)
	mc.Advance(time.Second)
	child := parent.Nested()

	if child.Parent() != parent {
		t.Error("Nested().Parent() should return the opening context")
	}
	if child.Now() == parent.Now() {
		t.Error("nested context should capture its own frozen instant")
	}

	parent.Enqueue([]types.Action{{Kind: types.ActionKind("parent-only")}})
	if child.Pending() != 0 {
		t.Errorf("child Pending() = %d, want 0 (independent queue)", child.Pending())
	}
}
