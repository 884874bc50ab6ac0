// Package block implements RuntimeBlock, the container described in
// spec §4.7: a {key, sourceIds, blockType, label, fragments, context,
// behaviors} aggregate whose lifecycle (mount/next/unmount/onEvent/
// dispose) delegates to its composed behaviors in insertion order.
// Grounded on the teacher's runtime/process.go lifecycle-owner pattern
// (construct, run, dispose) and policy/policy.go's owner-scoped
// deregistration on teardown.
package block

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/eventbus"
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/tracker"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Compiler is the minimal jit.Compiler surface BlockContext needs to
// let behaviors (LoopCoordinator, RestBlockBehavior) compile children.
type Compiler interface {
	Compile(statements []*types.Statement) (*RuntimeBlock, error)
}

// Context is the concrete implementation of behavior.Context, scoped
// to a single owning block.
type Context struct {
	owner    types.BlockKey
	clock    clock.Clock
	mem      *memory.Memory
	tracker  *tracker.Tracker
	compiler Compiler
}

// NewContext constructs a block-scoped Context.
func NewContext(owner types.BlockKey, clk clock.Clock, mem *memory.Memory, trk *tracker.Tracker, compiler Compiler) *Context {
	return &Context{owner: owner, clock: clk, mem: mem, tracker: trk, compiler: compiler}
}

func (c *Context) Now() types.Timestamp  { return c.clock.Now() }
func (c *Context) Owner() types.BlockKey { return c.owner }

func (c *Context) Allocate(typ types.MemoryType, value any, vis types.Visibility) types.MemoryReference {
	return c.mem.Allocate(typ, c.owner, value, vis)
}
func (c *Context) Get(ref types.MemoryReference) (any, error)    { return c.mem.Get(ref) }
func (c *Context) Set(ref types.MemoryReference, value any) error { return c.mem.Set(ref, value) }
func (c *Context) Search(criteria memory.Criteria) []types.MemoryReference {
	return c.mem.SearchFrom(c.owner, criteria)
}
func (c *Context) Subscribe(ref types.MemoryReference, cb func(memory.Notification), opts memory.SubscribeOptions) (memory.Unsubscribe, error) {
	return c.mem.Subscribe(ref, cb, opts)
}

func (c *Context) StartSegment(label string) error { return c.tracker.StartSegment(c.owner, label) }
func (c *Context) EndSegment(label string) error   { return c.tracker.EndSegment(c.owner, label) }
func (c *Context) RecordMetric(value types.RecordedMetricValue) error {
	return c.tracker.RecordMetric(c.owner, value)
}
func (c *Context) RecordRound(roundIdx int) error { return c.tracker.RecordRound(c.owner, roundIdx) }
func (c *Context) ActiveSpan() (types.ExecutionSpan, bool) { return c.tracker.GetActiveSpan(c.owner) }
func (c *Context) AddDebugTag(key string, value any) error {
	return c.tracker.AddDebugTag(c.owner, key, value)
}

func (c *Context) Compile(statements []*types.Statement) (behavior.Block, error) {
	if c.compiler == nil {
		return nil, nil
	}
	b, err := c.compiler.Compile(statements)
	if err != nil {
		return nil, err
	}
	return b, nil
}

var _ behavior.Context = (*Context)(nil)

// RuntimeBlock is the runtime's unit of execution: identity, immutable
// compiled fragments, a scoped Context, and an ordered list of
// behaviors that jointly implement its lifecycle.
type RuntimeBlock struct {
	key        types.BlockKey
	sourceIDs  []types.StatementID
	blockType  string
	label      string
	fragments  [][]types.Fragment
	context    *Context
	behaviors  []behavior.Behavior
	bus        *eventbus.Bus

	disposed bool
}

// New constructs a RuntimeBlock. Construction never touches the stack
// or opens spans (per §4.7): mount() is a separate, later call.
func New(key types.BlockKey, sourceIDs []types.StatementID, blockType, label string, fragments [][]types.Fragment, ctx *Context, behaviors []behavior.Behavior, bus *eventbus.Bus) *RuntimeBlock {
	return &RuntimeBlock{
		key:       key,
		sourceIDs: sourceIDs,
		blockType: blockType,
		label:     label,
		fragments: fragments,
		context:   ctx,
		behaviors: behaviors,
		bus:       bus,
	}
}

func (b *RuntimeBlock) Key() types.BlockKey           { return b.key }
func (b *RuntimeBlock) BlockType() string              { return b.blockType }
func (b *RuntimeBlock) Label() string                  { return b.label }
func (b *RuntimeBlock) Fragments() [][]types.Fragment  { return b.fragments }
func (b *RuntimeBlock) SourceIDs() []types.StatementID { return b.sourceIDs }
func (b *RuntimeBlock) Context() *Context              { return b.context }
func (b *RuntimeBlock) Behaviors() []behavior.Behavior { return b.behaviors }

// FindFragment returns the first fragment of kind across all fragment
// groups satisfying predicate (or any fragment of kind if predicate is nil).
func (b *RuntimeBlock) FindFragment(kind types.FragmentKind, predicate func(types.Fragment) bool) (types.Fragment, bool) {
	for _, group := range b.fragments {
		for _, f := range group {
			if f.Kind != kind {
				continue
			}
			if predicate == nil || predicate(f) {
				return f, true
			}
		}
	}
	return types.Fragment{}, false
}

// FilterFragments returns every fragment of kind across all groups.
func (b *RuntimeBlock) FilterFragments(kind types.FragmentKind) []types.Fragment {
	var out []types.Fragment
	for _, group := range b.fragments {
		for _, f := range group {
			if f.Kind == kind {
				out = append(out, f)
			}
		}
	}
	return out
}

// HasFragment reports whether any fragment of kind is present.
func (b *RuntimeBlock) HasFragment(kind types.FragmentKind) bool {
	_, ok := b.FindFragment(kind, nil)
	return ok
}

// Mount invokes onMount on every behavior in insertion order and
// concatenates their actions.
func (b *RuntimeBlock) Mount() []types.Action {
	var actions []types.Action
	for _, beh := range b.behaviors {
		actions = append(actions, beh.OnMount(b.context, b)...)
	}
	return actions
}

// Next invokes onNext on every behavior in insertion order.
func (b *RuntimeBlock) Next() []types.Action {
	var actions []types.Action
	for _, beh := range b.behaviors {
		actions = append(actions, beh.OnNext(b.context, b)...)
	}
	return actions
}

// Unmount invokes onUnmount on every behavior in insertion order.
func (b *RuntimeBlock) Unmount() []types.Action {
	var actions []types.Action
	for _, beh := range b.behaviors {
		actions = append(actions, beh.OnUnmount(b.context, b)...)
	}
	return actions
}

// OnEvent routes event to each behavior's onEvent hook in order,
// concatenating their actions. This is the single handler the stack
// registers with the event bus for this block (bound to the wildcard
// event name), giving every behavior a chance to react to every event
// regardless of the block's stack position (§4.3).
func (b *RuntimeBlock) OnEvent(event types.Event) []types.Action {
	var actions []types.Action
	for _, beh := range b.behaviors {
		actions = append(actions, beh.OnEvent(b.context, b, event)...)
	}
	return actions
}

// Dispose is idempotent, calls onDispose on every behavior, releases
// every memory reference this block owns, and deregisters every event
// handler it owns. It must never panic outward: behavior onDispose
// panics are recovered and swallowed (dispose is cleanup, not a place
// to propagate new failures).
func (b *RuntimeBlock) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true

	for _, beh := range b.behaviors {
		func() {
			defer func() { recover() }()
			beh.OnDispose(b.context, b)
		}()
	}

	b.context.mem.ReleaseByOwner(b.key)
	if b.bus != nil {
		b.bus.UnregisterByOwner(b.key)
	}
}

// Disposed reports whether Dispose has already run.
func (b *RuntimeBlock) Disposed() bool { return b.disposed }

var _ behavior.Block = (*RuntimeBlock)(nil)
