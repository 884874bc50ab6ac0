package stack

import (
	"testing"
	"time"

	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	blockpkg "github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/eventbus"
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/tracker"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

type fakeQueue struct {
	actions []types.Action
}

func (q *fakeQueue) Enqueue(actions []types.Action) { q.actions = append(q.actions, actions...) }

func newHarness(t *testing.T, maxDepth int) (*Stack, *blockpkg.Context, *eventbus.Bus, *tracker.Tracker) {
	t.Helper()
	mc := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	mem := memory.New(mc.Now)
	trk := tracker.New(mem, mc)
	bus := eventbus.New()
	s := New(maxDepth, trk, bus)
	ctx := blockpkg.NewContext("blk:1", mc, mem, trk, nil)
	return s, ctx, bus, trk
}

func newLeaf(key types.BlockKey, ctx *blockpkg.Context, bus *eventbus.Bus, behaviors ...behavior.Behavior) *blockpkg.RuntimeBlock {
	return blockpkg.New(key, nil, "effort", "leaf", nil, ctx, behaviors, bus)
}

func TestPushPopLifecycle(t *testing.T) {
	s, ctx, bus, _ := newHarness(t, 10)

	var pop behavior.PopOnNextBehavior
	b1 := newLeaf("blk:1", ctx, bus, pop)

	q := &fakeQueue{}
	if err := s.Push(b1, q); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if s.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1", s.Depth())
	}
	if s.Current().Key() != "blk:1" {
		t.Fatalf("Current = %s, want blk:1", s.Current().Key())
	}

	s.Pop(q)
	if s.Depth() != 0 {
		t.Fatalf("Depth after Pop = %d, want 0", s.Depth())
	}
	if !b1.Disposed() {
		t.Error("expected block to be disposed after Pop")
	}
	if bus.HasOwner("blk:1") {
		t.Error("expected Pop->Dispose to deregister the block's bus handler")
	}
}

func TestPushDuplicateKeyRejected(t *testing.T) {
	s, ctx, bus, _ := newHarness(t, 10)
	b1 := newLeaf("blk:1", ctx, bus)
	b2 := newLeaf("blk:1", ctx, bus)

	q := &fakeQueue{}
	if err := s.Push(b1, q); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if err := s.Push(b2, q); err == nil {
		t.Fatal("expected duplicate key Push to fail")
	}
	if s.Depth() != 1 {
		t.Errorf("Depth after failed duplicate push = %d, want 1 (state unchanged)", s.Depth())
	}
}

func TestPushExceedsMaxDepth(t *testing.T) {
	s, ctx, bus, _ := newHarness(t, 1)
	b1 := newLeaf("blk:1", ctx, bus)
	b2 := newLeaf("blk:2", ctx, bus)

	q := &fakeQueue{}
	if err := s.Push(b1, q); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if err := s.Push(b2, q); err == nil {
		t.Fatal("expected Push beyond maxDepth to fail with StackOverflow")
	}
}

func TestPopEmptyIsNoop(t *testing.T) {
	s, _, _, _ := newHarness(t, 10)
	q := &fakeQueue{}
	if actions := s.Pop(q); actions != nil {
		t.Errorf("Pop on empty stack = %+v, want nil", actions)
	}
}

func TestPopAdvancesParent(t *testing.T) {
	s, ctx, bus, _ := newHarness(t, 10)

	var childAdvanced int
	parentBehavior := &onNextCounter{count: &childAdvanced}
	parent := newLeaf("blk:parent", ctx, bus, parentBehavior)
	child := newLeaf("blk:child", ctx, bus)

	q := &fakeQueue{}
	s.Push(parent, q)
	s.Push(child, q)
	s.Pop(q) // pops child, should invoke parent.Next()

	if childAdvanced != 1 {
		t.Errorf("parent.Next() invoked %d times after child pop, want 1", childAdvanced)
	}
}

type onNextCounter struct {
	behavior.NoopHooks
	count *int
}

func (c *onNextCounter) OnNext(ctx behavior.Context, b behavior.Block) []types.Action {
	*c.count++
	return nil
}
