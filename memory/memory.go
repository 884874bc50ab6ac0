// Package memory implements the typed, owner-scoped, visibility-scoped
// key/value store described in spec §4.2: allocate, get/set, search,
// release, and reactive subscriptions. Grounded on the teacher's
// runtime/artifacts.go accumulator-map-under-mutex shape and
// policy/policy.go's statsRecorder locking discipline.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SergeiGolos/wod-wiki-sub004/types"
	"github.com/SergeiGolos/wod-wiki-sub004/wkerr"
)

// Criteria selects references by any subset of type/ownerId/id/visibility.
// A zero-value field means "don't filter on this field".
type Criteria struct {
	Type       types.MemoryType
	OwnerID    types.BlockKey
	ID         types.RefID
	Visibility types.Visibility
}

func (c Criteria) matches(ref types.MemoryReference) bool {
	if c.Type != "" && c.Type != ref.Type {
		return false
	}
	if c.OwnerID != "" && c.OwnerID != ref.OwnerID {
		return false
	}
	if c.ID != "" && c.ID != ref.ID {
		return false
	}
	if c.Visibility != "" && c.Visibility != ref.Visibility {
		return false
	}
	return true
}

// SubscribeOptions tune a subscription per §4.2.
type SubscribeOptions struct {
	// Immediate invokes the callback once with the current value at
	// subscribe time, before any subsequent write notifications.
	Immediate bool
	// Throttle is the minimum duration between notifications; writes
	// arriving faster than this coalesce, last-write-wins.
	Throttle time.Duration
}

// Notification is delivered to a subscriber callback on each write or
// on final release. Final is true exactly once, on release, with
// NewValue nil.
type Notification struct {
	Ref      types.MemoryReference
	OldValue any
	NewValue any
	Final    bool
}

// Unsubscribe removes a subscription. Safe to call more than once and
// safe to call from within the subscriber's own callback.
type Unsubscribe func()

type subscriber struct {
	id       int64
	callback func(Notification)
	options  SubscribeOptions
	lastSent time.Time
	pending  *Notification // last coalesced notification awaiting throttle release
	removed  bool
}

type entry struct {
	mu   sync.Mutex
	ref  types.MemoryReference
	value any
	subs []*subscriber
}

// Memory is the runtime's single mutable shared-state service. All
// mutation happens through typed references; each reference belongs to
// exactly one owner (§5).
type Memory struct {
	mu      sync.Mutex
	entries map[types.RefID]*entry
	order   []types.RefID
	parent  map[types.BlockKey]types.BlockKey

	refSeq atomic.Int64
	subSeq atomic.Int64

	// now supplies "now" for throttle bookkeeping. It is the function
	// passed to New rather than a clock.Clock, to avoid coupling this
	// leaf package to the clock package.
	now func() time.Time
}

// New creates an empty Memory service. nowFn supplies the current time
// for throttle bookkeeping (typically clock.System.Now or a frozen
// execution-context timestamp); if nil, time.Now is used.
func New(nowFn func() time.Time) *Memory {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Memory{
		entries: make(map[types.RefID]*entry),
		parent:  make(map[types.BlockKey]types.BlockKey),
		now:     nowFn,
	}
}

// SetParent records that child's owner is a descendant of parent, for
// Inherited-visibility discovery via SearchFrom.
func (m *Memory) SetParent(child, parent types.BlockKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parent[child] = parent
}

// Allocate creates a new reference of the given type, owned by ownerID,
// with an optional initial value.
func (m *Memory) Allocate(typ types.MemoryType, ownerID types.BlockKey, value any, vis types.Visibility) types.MemoryReference {
	id := types.RefID(fmt.Sprintf("ref:%d", m.refSeq.Add(1)))
	ref := types.MemoryReference{ID: id, OwnerID: ownerID, Type: typ, Visibility: vis}

	m.mu.Lock()
	m.entries[id] = &entry{ref: ref, value: value}
	m.order = append(m.order, id)
	m.mu.Unlock()

	return ref
}

func (m *Memory) lookup(ref types.MemoryReference) (*entry, error) {
	m.mu.Lock()
	e, ok := m.entries[ref.ID]
	m.mu.Unlock()
	if !ok {
		return nil, wkerr.New(wkerr.MemoryNotFound, "memory.lookup", ref.OwnerID, fmt.Errorf("reference %s not found", ref.ID))
	}
	return e, nil
}

// Get returns the current value of ref.
func (m *Memory) Get(ref types.MemoryReference) (any, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, nil
}

// Set atomically writes newValue to ref, then notifies every subscriber
// (in registration order) with (oldValue, newValue) before returning.
// Subscribers that panic are isolated: the panic is recovered and
// subsequent subscribers still run.
func (m *Memory) Set(ref types.MemoryReference, newValue any) error {
	e, err := m.lookup(ref)
	if err != nil {
		return err
	}

	e.mu.Lock()
	oldValue := e.value
	e.value = newValue
	subsSnapshot := make([]*subscriber, len(e.subs))
	copy(subsSnapshot, e.subs)
	e.mu.Unlock()

	notifyAll(subsSnapshot, m.now(), Notification{Ref: ref, OldValue: oldValue, NewValue: newValue})
	return nil
}

// Search returns references matching criteria, in insertion order. This
// is the unrestricted variant used by process-level/owner-trusted
// callers; see SearchFrom for visibility-aware discovery.
func (m *Memory) Search(criteria Criteria) []types.MemoryReference {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.MemoryReference
	for _, id := range m.order {
		e, ok := m.entries[id]
		if !ok {
			continue
		}
		if criteria.matches(e.ref) {
			out = append(out, e.ref)
		}
	}
	return out
}

// SearchFrom returns references matching criteria that are discoverable
// by requester: the requester's own references regardless of
// visibility, plus Public references from any owner, plus Inherited
// references owned by an ancestor of requester.
func (m *Memory) SearchFrom(requester types.BlockKey, criteria Criteria) []types.MemoryReference {
	ancestors := m.ancestorSet(requester)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.MemoryReference
	for _, id := range m.order {
		e, ok := m.entries[id]
		if !ok {
			continue
		}
		if !criteria.matches(e.ref) {
			continue
		}
		ref := e.ref
		switch {
		case ref.OwnerID == requester:
			out = append(out, ref)
		case ref.Visibility == types.VisibilityPublic:
			out = append(out, ref)
		case ref.Visibility == types.VisibilityInherited && ancestors[ref.OwnerID]:
			out = append(out, ref)
		}
	}
	return out
}

func (m *Memory) ancestorSet(owner types.BlockKey) map[types.BlockKey]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := make(map[types.BlockKey]bool)
	cur := owner
	for {
		p, ok := m.parent[cur]
		if !ok {
			break
		}
		if set[p] {
			break // defend against a cyclic parent table
		}
		set[p] = true
		cur = p
	}
	return set
}

// Release removes a single reference. Every subscriber receives one
// final notification with NewValue=nil.
func (m *Memory) Release(ref types.MemoryReference) {
	m.mu.Lock()
	e, ok := m.entries[ref.ID]
	if ok {
		delete(m.entries, ref.ID)
		m.removeFromOrderLocked(ref.ID)
	}
	delete(m.parent, ref.OwnerID)
	m.mu.Unlock()

	if !ok {
		return
	}
	e.mu.Lock()
	oldValue := e.value
	subsSnapshot := make([]*subscriber, len(e.subs))
	copy(subsSnapshot, e.subs)
	e.subs = nil
	e.mu.Unlock()

	notifyAll(subsSnapshot, m.now(), Notification{Ref: ref, OldValue: oldValue, NewValue: nil, Final: true})
}

// ReleaseByOwner removes every reference owned by ownerID. Used by
// RuntimeBlock.dispose() to release all memory a block owns.
func (m *Memory) ReleaseByOwner(ownerID types.BlockKey) {
	m.mu.Lock()
	var toRelease []types.MemoryReference
	for _, id := range m.order {
		e, ok := m.entries[id]
		if ok && e.ref.OwnerID == ownerID {
			toRelease = append(toRelease, e.ref)
		}
	}
	m.mu.Unlock()

	for _, ref := range toRelease {
		m.Release(ref)
	}
}

func (m *Memory) removeFromOrderLocked(id types.RefID) {
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// Subscribe registers callback to be invoked on every write (and, if
// Immediate is set, once immediately with the current value) to ref.
// Returns an Unsubscribe handle; calling it from within callback is
// safe and takes effect after the current dispatch.
func (m *Memory) Subscribe(ref types.MemoryReference, callback func(Notification), opts SubscribeOptions) (Unsubscribe, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{id: m.subSeq.Add(1), callback: callback, options: opts}

	e.mu.Lock()
	e.subs = append(e.subs, sub)
	current := e.value
	e.mu.Unlock()

	if opts.Immediate {
		callback(Notification{Ref: ref, NewValue: current})
	}

	return func() {
		e.mu.Lock()
		sub.removed = true
		for i, s := range e.subs {
			if s == sub {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				break
			}
		}
		e.mu.Unlock()
	}, nil
}

// notifyAll invokes subscribers in registration order, applying
// per-subscriber throttling and isolating panics.
func notifyAll(subs []*subscriber, now time.Time, n Notification) {
	for _, sub := range subs {
		deliver := true
		if sub.options.Throttle > 0 && !sub.lastSent.IsZero() {
			if now.Sub(sub.lastSent) < sub.options.Throttle {
				deliver = false
			}
		}
		if n.Final {
			deliver = true // final notification is never throttled away
		}
		if !deliver {
			continue
		}
		sub.lastSent = now
		invokeSafely(sub, n)
	}
}

func invokeSafely(sub *subscriber, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			// Subscriber errors are isolated: logged by the caller's
			// logger at a higher layer (this leaf package has no
			// logger dependency); the write itself already completed.
			_ = r
		}
	}()
	if sub.removed {
		return
	}
	sub.callback(n)
}

// SortedEntries is a convenience used by CLI stats rendering: returns a
// deterministic, ref-id-sorted snapshot of every live reference.
func (m *Memory) SortedEntries() []types.MemoryReference {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.MemoryReference, 0, len(m.order))
	for _, id := range m.order {
		if e, ok := m.entries[id]; ok {
			out = append(out, e.ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
