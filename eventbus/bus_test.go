package eventbus

import (
	"testing"

	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

func TestRegisterAndDispatchInvokesHandler(t *testing.T) {
	b := New()
	var got types.Event
	b.Register(types.EventNext, func(event types.Event, _ any) []types.Action {
		got = event
		return []types.Action{{Kind: types.ActionPop}}
	}, types.BlockKey("block:1"), 0)

	actions := b.Dispatch(types.Event{Name: types.EventNext}, nil)

	if got.Name != types.EventNext {
		t.Errorf("handler did not observe dispatched event, got %+v", got)
	}
	if len(actions) != 1 || actions[0].Kind != types.ActionPop {
		t.Errorf("actions = %+v, want one Pop action", actions)
	}
}

func TestDispatchOrdersByPriorityThenRegistrationOrder(t *testing.T) {
	b := New()
	var order []string
	record := func(name string) Handler {
		return func(event types.Event, _ any) []types.Action {
			order = append(order, name)
			return nil
		}
	}

	b.Register(types.EventNext, record("low"), types.BlockKey("block:1"), 0)
	b.Register(types.EventNext, record("high"), types.BlockKey("block:2"), 10)
	b.Register(types.EventNext, record("second-low"), types.BlockKey("block:3"), 0)

	b.Dispatch(types.Event{Name: types.EventNext}, nil)

	want := []string{"high", "low", "second-low"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestWildcardHandlerMatchesEveryEvent(t *testing.T) {
	b := New()
	calls := 0
	b.Register(types.WildcardEvent, func(types.Event, any) []types.Action {
		calls++
		return nil
	}, types.BlockKey("block:1"), 0)

	b.Dispatch(types.Event{Name: types.EventNext}, nil)
	b.Dispatch(types.Event{Name: types.EventTimerComplete}, nil)

	if calls != 2 {
		t.Errorf("wildcard handler called %d times, want 2", calls)
	}
}

func TestUnregisterByIDRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	calls := 0
	keepID := b.Register(types.EventNext, func(types.Event, any) []types.Action {
		calls++
		return nil
	}, types.BlockKey("block:1"), 0)
	dropID := b.Register(types.EventNext, func(types.Event, any) []types.Action {
		calls += 100
		return nil
	}, types.BlockKey("block:2"), 0)

	b.UnregisterByID(dropID)
	b.Dispatch(types.Event{Name: types.EventNext}, nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (only the kept handler fired)", calls)
	}
	_ = keepID
}

func TestUnregisterByOwnerRemovesAllThatOwnersHandlers(t *testing.T) {
	b := New()
	owner := types.BlockKey("block:1")
	b.Register(types.EventNext, func(types.Event, any) []types.Action { return nil }, owner, 0)
	b.Register(types.EventTimerComplete, func(types.Event, any) []types.Action { return nil }, owner, 0)

	if !b.HasOwner(owner) {
		t.Fatal("expected HasOwner to be true before unregistering")
	}

	b.UnregisterByOwner(owner)

	if b.HasOwner(owner) {
		t.Error("HasOwner should be false after UnregisterByOwner")
	}
}

func TestCountReflectsRegistrationsAndRemovals(t *testing.T) {
	b := New()
	if got := b.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0 for a fresh bus", got)
	}

	id1 := b.Register(types.EventNext, func(types.Event, any) []types.Action { return nil }, types.BlockKey("block:1"), 0)
	b.Register(types.EventTimerComplete, func(types.Event, any) []types.Action { return nil }, types.BlockKey("block:2"), 0)

	if got := b.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	b.UnregisterByID(id1)
	if got := b.Count(); got != 1 {
		t.Errorf("Count() after UnregisterByID = %d, want 1", got)
	}
}

func TestHandlerPanicIsIsolatedAndOtherHandlersStillRun(t *testing.T) {
	b := New()
	ran := false
	b.Register(types.EventNext, func(types.Event, any) []types.Action {
		panic("boom")
	}, types.BlockKey("block:1"), 10)
	b.Register(types.EventNext, func(types.Event, any) []types.Action {
		ran = true
		return nil
	}, types.BlockKey("block:2"), 0)

	actions := b.Dispatch(types.Event{Name: types.EventNext}, nil)

	if !ran {
		t.Error("second handler should still run after the first panics")
	}

	foundError := false
	for _, a := range actions {
		if a.Kind == types.ActionError {
			foundError = true
		}
	}
	if !foundError {
		t.Error("expected an ActionError action from the recovered panic")
	}
}
