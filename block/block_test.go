package block

import (
	"testing"
	"time"

	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/eventbus"
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/tracker"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

func newTestBlock(t *testing.T, key types.BlockKey, behaviors []behavior.Behavior) (*RuntimeBlock, *memory.Memory, *eventbus.Bus) {
	t.Helper()
	mc := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	mem := memory.New(mc.Now)
	trk := tracker.New(mem, mc)
	bus := eventbus.New()
	ctx := NewContext(key, mc, mem, trk, nil)
	trk.StartSpan(tracker.BlockDescriptor{Key: key, Label: "test", Type: "effort"}, nil)
	rb := New(key, []types.StatementID{1}, "effort", "Test Block", nil, ctx, behaviors, bus)
	return rb, mem, bus
}

func TestRuntimeBlockMountNextUnmountDispose(t *testing.T) {
	var pop behavior.PopOnNextBehavior
	rb, mem, bus := newTestBlock(t, "blk:1", []behavior.Behavior{pop})

	if actions := rb.Mount(); len(actions) != 0 {
		t.Errorf("Mount actions = %+v, want none", actions)
	}

	actions := rb.OnEvent(types.Event{Name: types.EventNext})
	if len(actions) != 1 {
		t.Fatalf("OnEvent(next) actions = %d, want 1 (pop)", len(actions))
	}

	rb.Unmount()
	rb.context.mem.Allocate(types.MemoryTypeSpan, rb.key, "marker", types.VisibilityPublic)
	if len(mem.Search(memory.Criteria{OwnerID: rb.key})) == 0 {
		t.Fatal("expected at least one memory reference owned by the block before dispose")
	}

	rb.Dispose()
	if !rb.Disposed() {
		t.Error("Disposed() should report true after Dispose")
	}
	if got := mem.Search(memory.Criteria{OwnerID: rb.key}); len(got) != 0 {
		t.Errorf("expected Dispose to release all owned memory, found %d refs", len(got))
	}
	if bus.HasOwner(rb.key) {
		t.Error("expected Dispose to deregister all owned handlers")
	}

	// Dispose must be idempotent.
	rb.Dispose()
}

func TestRuntimeBlockFragmentHelpers(t *testing.T) {
	mc := clock.NewManual(time.Now())
	mem := memory.New(mc.Now)
	trk := tracker.New(mem, mc)
	bus := eventbus.New()
	ctx := NewContext("blk:1", mc, mem, trk, nil)

	fragments := [][]types.Fragment{
		{{Kind: types.FragmentRep, Value: types.AmountValue{Amount: 21}}},
		{{Kind: types.FragmentEffort, Image: "Pullups"}},
	}
	rb := New("blk:1", nil, "effort", "21 Pullups", fragments, ctx, nil, bus)

	if !rb.HasFragment(types.FragmentRep) {
		t.Error("expected HasFragment(Rep) to be true")
	}
	if rb.HasFragment(types.FragmentTimer) {
		t.Error("expected HasFragment(Timer) to be false")
	}
	if f, ok := rb.FindFragment(types.FragmentEffort, nil); !ok || f.Image != "Pullups" {
		t.Errorf("FindFragment(Effort) = %+v, %v, want Pullups fragment", f, ok)
	}
	if got := rb.FilterFragments(types.FragmentRep); len(got) != 1 {
		t.Errorf("FilterFragments(Rep) = %d, want 1", len(got))
	}
}
