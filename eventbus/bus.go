// Package eventbus implements the priority-ordered, owner-scoped event
// dispatch registry described in spec §4.3. Handlers live in the bus,
// not in memory storage, so routing stays decoupled from stack position
// (a parent timer keeps receiving timer:complete while children run).
//
// Grounded on the teacher's policy.Policy droppable/owner-scoped
// bookkeeping (policy/policy.go) and the pack's channel-based pub/sub in
// other_examples' events.Bus, adapted here to synchronous,
// action-returning handlers instead of buffered channels, per spec
// §4.3's dispatch(event) -> Action[] contract.
package eventbus

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/SergeiGolos/wod-wiki-sub004/types"
	"github.com/SergeiGolos/wod-wiki-sub004/wkerr"
)

// HandlerID uniquely identifies a registered handler for unregisterById.
type HandlerID string

// Handler produces actions in response to an event. A Handler that
// panics is isolated by dispatch: the panic is recovered, an
// ActionError is appended to the dispatch result, and remaining
// handlers still run.
type Handler func(event types.Event, runtime any) []types.Action

// Listener is a lightweight callback that observes events without
// producing actions (the `on` registration in §4.3).
type Listener func(event types.Event)

type registration struct {
	id       HandlerID
	name     string
	ownerID  types.BlockKey
	priority int
	seq      int64
	handler  Handler
	listener Listener
}

// Bus is the runtime's priority-ordered, owner-scoped handler registry.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]*registration // eventName -> registrations, including WildcardEvent bucket
	idSeq    atomic.Int64
	seq      atomic.Int64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]*registration)}
}

// Register adds a handler for eventName, owned by ownerID, at the given
// priority. Higher priority runs first; ties break by registration
// order. eventName may be types.WildcardEvent to match every event.
func (b *Bus) Register(eventName string, handler Handler, ownerID types.BlockKey, priority int) HandlerID {
	id := HandlerID(fmt.Sprintf("h:%d", b.idSeq.Add(1)))
	reg := &registration{
		id:       id,
		name:     eventName,
		ownerID:  ownerID,
		priority: priority,
		seq:      b.seq.Add(1),
		handler:  handler,
	}

	b.mu.Lock()
	b.handlers[eventName] = append(b.handlers[eventName], reg)
	b.mu.Unlock()

	return id
}

// On registers a lightweight listener that does not produce actions.
func (b *Bus) On(eventName string, callback Listener, ownerID types.BlockKey) HandlerID {
	id := HandlerID(fmt.Sprintf("h:%d", b.idSeq.Add(1)))
	reg := &registration{
		id:       id,
		name:     eventName,
		ownerID:  ownerID,
		priority: 0,
		seq:      b.seq.Add(1),
		listener: callback,
	}

	b.mu.Lock()
	b.handlers[eventName] = append(b.handlers[eventName], reg)
	b.mu.Unlock()

	return id
}

// UnregisterByID removes a single handler/listener. Idempotent.
func (b *Bus) UnregisterByID(id HandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, regs := range b.handlers {
		for i, r := range regs {
			if r.id == id {
				b.handlers[name] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

// UnregisterByOwner removes every handler/listener owned by ownerID.
// Idempotent. Used by RuntimeBlock.dispose().
func (b *Bus) UnregisterByOwner(ownerID types.BlockKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, regs := range b.handlers {
		kept := regs[:0:0]
		for _, r := range regs {
			if r.ownerID != ownerID {
				kept = append(kept, r)
			}
		}
		b.handlers[name] = kept
	}
}

// HasOwner reports whether any handler remains registered for ownerID;
// used by the §8 testable property that dispose() leaves no handlers
// behind.
func (b *Bus) HasOwner(ownerID types.BlockKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, regs := range b.handlers {
		for _, r := range regs {
			if r.ownerID == ownerID {
				return true
			}
		}
	}
	return false
}

// Count reports the total number of handlers/listeners currently
// registered across every event name, for runtime introspection (the
// CLI's stats view).
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, regs := range b.handlers {
		n += len(regs)
	}
	return n
}

// orderedRegistrations returns eventName's direct registrations plus
// wildcard registrations, sorted by priority desc then registration
// order asc. Snapshotting under lock means handlers added/removed
// during this dispatch take effect only on the next dispatch.
func (b *Bus) orderedRegistrations(eventName string) []*registration {
	b.mu.Lock()
	direct := append([]*registration(nil), b.handlers[eventName]...)
	var wild []*registration
	if eventName != types.WildcardEvent {
		wild = append([]*registration(nil), b.handlers[types.WildcardEvent]...)
	}
	b.mu.Unlock()

	all := append(direct, wild...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].priority != all[j].priority {
			return all[i].priority > all[j].priority
		}
		return all[i].seq < all[j].seq
	})
	return all
}

// Dispatch invokes every registered handler/listener for event, in
// priority order, and collects their returned actions into a single
// slice. A handler that panics is isolated: the panic is recovered, an
// ActionError action is appended, and dispatch continues.
func (b *Bus) Dispatch(event types.Event, runtime any) []types.Action {
	var actions []types.Action
	for _, reg := range b.orderedRegistrations(event.Name) {
		actions = append(actions, invoke(reg, event, runtime)...)
	}
	return actions
}

func invoke(reg *registration, event types.Event, runtime any) (out []types.Action) {
	defer func() {
		if r := recover(); r != nil {
			out = []types.Action{{
				Kind: types.ActionError,
				Payload: &wkerr.Error{
					Kind:     wkerr.HandlerException,
					BlockKey: reg.ownerID,
					Op:       "eventbus.dispatch",
					Err:      fmt.Errorf("handler panic: %v", r),
				},
			}}
		}
	}()

	if reg.listener != nil {
		reg.listener(event)
		return nil
	}
	if reg.handler != nil {
		return reg.handler(event, runtime)
	}
	return nil
}
