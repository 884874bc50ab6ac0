// Package stack implements the LIFO runtime stack with lifecycle
// orchestration described in spec §4.10: push validates depth and
// uniqueness, opens a tracked span, mounts the block, and queues its
// actions; pop unmounts, closes the span, removes the block, disposes
// it, and advances the parent. Grounded on the teacher's
// runtime/process.go push/pop-style lifecycle sequencing and
// policy.Policy's owner-scoped teardown discipline.
package stack

import (
	"strconv"

	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/eventbus"
	"github.com/SergeiGolos/wod-wiki-sub004/tracker"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
	"github.com/SergeiGolos/wod-wiki-sub004/wkerr"
)

// Enqueuer receives actions produced by a lifecycle hook, queuing them
// on the active execution context (execctx.Context implements this).
type Enqueuer interface {
	Enqueue(actions []types.Action)
}

// Stack is the runtime's LIFO block stack.
type Stack struct {
	blocks   []*block.RuntimeBlock
	maxDepth int
	tracker  *tracker.Tracker
	bus      *eventbus.Bus
}

// New constructs an empty Stack with the given maximum depth.
func New(maxDepth int, trk *tracker.Tracker, bus *eventbus.Bus) *Stack {
	return &Stack{maxDepth: maxDepth, tracker: trk, bus: bus}
}

// Push validates depth and key uniqueness, opens a tracked span parented
// to the current top's active span (if any), appends the block,
// dispatches stack:push, mounts it, and queues the resulting actions on
// q.
func (s *Stack) Push(b *block.RuntimeBlock, q Enqueuer) error {
	if len(s.blocks) >= s.maxDepth {
		return wkerr.New(wkerr.StackOverflow, "stack.Push", b.Key(), errDepthExceeded(s.maxDepth))
	}
	for _, existing := range s.blocks {
		if existing.Key() == b.Key() {
			return wkerr.New(wkerr.StackOverflow, "stack.Push", b.Key(), errDuplicateKey(b.Key()))
		}
	}

	var parentSpanID *types.SpanID
	if top := s.Current(); top != nil {
		if span, ok := s.tracker.GetActiveSpan(top.Key()); ok {
			id := span.SpanID
			parentSpanID = &id
		}
	}
	s.tracker.StartSpan(tracker.BlockDescriptor{Key: b.Key(), Label: b.Label(), Type: b.BlockType()}, parentSpanID)

	s.blocks = append(s.blocks, b)
	if s.bus != nil {
		s.bus.Register(types.WildcardEvent, func(event types.Event, _ any) []types.Action {
			return b.OnEvent(event)
		}, b.Key(), 0)
		s.bus.Dispatch(types.Event{Name: types.EventStackPush, Data: map[string]any{"blockKey": string(b.Key())}}, nil)
	}

	actions := b.Mount()
	if q != nil {
		q.Enqueue(actions)
	}
	return nil
}

// Pop unmounts, closes the span, removes, dispatches stack:pop,
// disposes, and advances the new top via Next(). A no-op on an empty
// stack.
func (s *Stack) Pop(q Enqueuer) []types.Action {
	if len(s.blocks) == 0 {
		return nil
	}

	top := s.blocks[len(s.blocks)-1]
	actions := top.Unmount()
	s.tracker.EndSpan(top.Key())

	s.blocks = s.blocks[:len(s.blocks)-1]
	if s.bus != nil {
		s.bus.Dispatch(types.Event{Name: types.EventStackPop, Data: map[string]any{"blockKey": string(top.Key())}}, nil)
	}

	top.Dispose()

	if q != nil {
		q.Enqueue(actions)
	}

	if parent := s.Current(); parent != nil {
		parentActions := parent.Next()
		if q != nil {
			q.Enqueue(parentActions)
		}
		actions = append(actions, parentActions...)
	}

	return actions
}

// Current returns the top of stack, or nil if empty.
func (s *Stack) Current() *block.RuntimeBlock {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// Blocks returns the stack top-first.
func (s *Stack) Blocks() []*block.RuntimeBlock {
	out := make([]*block.RuntimeBlock, len(s.blocks))
	for i, b := range s.blocks {
		out[len(s.blocks)-1-i] = b
	}
	return out
}

// BlocksBottomFirst returns the stack bottom-first (insertion order).
func (s *Stack) BlocksBottomFirst() []*block.RuntimeBlock {
	out := make([]*block.RuntimeBlock, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Keys returns the block keys, top-first.
func (s *Stack) Keys() []types.BlockKey {
	blocks := s.Blocks()
	keys := make([]types.BlockKey, len(blocks))
	for i, b := range blocks {
		keys[i] = b.Key()
	}
	return keys
}

// Depth returns the current stack depth.
func (s *Stack) Depth() int { return len(s.blocks) }

// Clear disposes all remaining blocks top-down, without advancing
// parents (used by disposeAll at process teardown).
func (s *Stack) Clear() {
	for len(s.blocks) > 0 {
		top := s.blocks[len(s.blocks)-1]
		s.blocks = s.blocks[:len(s.blocks)-1]
		top.Dispose()
	}
}

func errDepthExceeded(max int) error {
	return &depthExceededError{max: max}
}

type depthExceededError struct{ max int }

func (e *depthExceededError) Error() string {
	return "stack depth would exceed maximum of " + strconv.Itoa(e.max)
}

func errDuplicateKey(key types.BlockKey) error {
	return &duplicateKeyError{key: key}
}

type duplicateKeyError struct{ key types.BlockKey }

func (e *duplicateKeyError) Error() string {
	return "duplicate block key " + string(e.key) + " already on stack"
}

