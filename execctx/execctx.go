// Package execctx implements the Execution Context described in spec
// §4.11: a per-event scope that freezes the clock at arrival and owns
// the FIFO action queue for the cascade of actions that event produces,
// draining it synchronously under a bounded iteration budget. Grounded
// on the teacher's runtime/executor.go single-flight work-queue
// draining and clock.Snapshot's frozen-instant contract.
package execctx

import (
	"fmt"

	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
	"github.com/SergeiGolos/wod-wiki-sub004/wkerr"
)

// DefaultMaxIterations is the per-context queue iteration budget (§4.11:
// "e.g., 100") before a cascade is treated as a runaway.
const DefaultMaxIterations = 100

// StepFunc interprets a single queued action, performing its effect
// (pushing/popping the stack, dispatching an event through the bus, or
// just surfacing a data-only action to a downstream sink) and returning
// any further actions that effect produced — a push that mounts a block
// enqueues that block's Mount() actions onto the same context, per
// §4.11's "actions produced at any level of the cascade enqueue to the
// same context's queue".
type StepFunc func(ctx *Context, action types.Action) ([]types.Action, error)

// Context is a single event's frozen-time, FIFO action queue scope.
// Nested contexts (opened deliberately by a handler) get their own
// frozen instant and queue; they do not share state with their parent.
type Context struct {
	clock         clock.Clock
	snapshot      *clock.Snapshot
	maxIterations int
	parent        *Context

	queue    []types.Action
	draining bool
}

// New opens a Context, capturing clk's current instant as the frozen
// "now" every operation within this context will observe.
func New(clk clock.Clock, maxIterations int) *Context {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Context{
		clock:         clk,
		snapshot:      clock.NewSnapshot(clk),
		maxIterations: maxIterations,
	}
}

// Now returns the frozen instant captured at context creation. Every
// observation within this context — mount/next/unmount/dispose hooks,
// actions, tracker spans — sees this same value.
func (c *Context) Now() types.Timestamp { return c.snapshot.Now() }

// Parent returns the enclosing context, or nil for a top-level context.
func (c *Context) Parent() *Context { return c.parent }

// Pending reports the number of actions still queued.
func (c *Context) Pending() int { return len(c.queue) }

// Enqueue appends actions to this context's FIFO queue. Safe to call
// from within a StepFunc mid-drain: the loop observes newly appended
// entries on its next iteration.
func (c *Context) Enqueue(actions []types.Action) {
	c.queue = append(c.queue, actions...)
}

// Nested opens a child context sharing this context's clock but with its
// own frozen instant and empty queue, per §4.11's "contexts may nest
// when a handler deliberately opens a new context".
func (c *Context) Nested() *Context {
	child := New(c.clock, c.maxIterations)
	child.parent = c
	return child
}

// Drain processes the queue FIFO, invoking step for each action and
// re-enqueuing whatever actions it returns, until the queue empties or
// the iteration budget is exceeded (surfaced as a wkerr.RunawayActions
// error; the stack is left consistent since the overrun is detected
// between, not during, a step). Cleanup (clearing the draining flag) is
// guaranteed on every exit path, including a step panicking.
//
// A Drain call re-entered while already draining (a step's own logic
// indirectly triggering another Drain on the same context) is a no-op:
// it returns nil immediately, trusting the in-progress loop to pick up
// whatever was enqueued. This is the re-entrancy guard from §5 that
// prevents a recursive drain from executing the same action twice.
func (c *Context) Drain(step StepFunc) (err error) {
	if c.draining {
		return nil
	}
	c.draining = true
	defer func() {
		c.draining = false
		if r := recover(); r != nil {
			err = wkerr.New(wkerr.HandlerException, "execctx.Drain", "", fmt.Errorf("action step panic: %v", r))
		}
	}()

	iterations := 0
	for len(c.queue) > 0 {
		iterations++
		if iterations > c.maxIterations {
			return wkerr.New(wkerr.RunawayActions, "execctx.Drain", "", fmt.Errorf("exceeded %d queued actions in one context", c.maxIterations))
		}

		action := c.queue[0]
		c.queue = c.queue[1:]

		produced, stepErr := step(c, action)
		if stepErr != nil {
			return stepErr
		}
		c.queue = append(c.queue, produced...)
	}
	return nil
}

var _ types.ActionContext = (*Context)(nil)
