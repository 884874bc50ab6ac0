// Package script implements the Script Runtime described in spec §4.12:
// the aggregate owning the clock, memory, event bus, stack, JIT
// compiler, tracker, and execution-context scope, exposing handle/
// queueActions/isComplete/disposeAll as the single entrypoint external
// drivers (the CLI, a clock ticker, a UI action) call into. Grounded on
// the teacher's runtime.Executor (single aggregate wiring process
// config, browser, and ingestion) and cmd/quarry-runtime/main.go's
// top-level wiring of those collaborators into one run.
package script

import (
	"fmt"
	"sync/atomic"

	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/eventbus"
	"github.com/SergeiGolos/wod-wiki-sub004/execctx"
	"github.com/SergeiGolos/wod-wiki-sub004/jit"
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/stack"
	"github.com/SergeiGolos/wod-wiki-sub004/strategy"
	"github.com/SergeiGolos/wod-wiki-sub004/tracker"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
	"github.com/SergeiGolos/wod-wiki-sub004/wkerr"
)

// DefaultMaxDepth is the stack's default maximum depth (§4.10's "depth
// <= 100" performance target gives the practical ceiling).
const DefaultMaxDepth = 100

// Runtime aggregates every collaborator a running script needs and
// drives the handle/drain cycle in §4.11-§4.12.
type Runtime struct {
	Clock   clock.Clock
	Memory  *memory.Memory
	Bus     *eventbus.Bus
	Tracker *tracker.Tracker
	Stack   *stack.Stack
	Compiler *jit.Compiler

	// Sink, if set, receives every data-only action (EmitMetric,
	// PlaySound, SetRoundsDisplay, UpdateTimerDisplay, Error, ...) that
	// reaches the end of a step without itself producing further
	// actions — the hand-off point to UI/analytics/audio adapters (§6).
	Sink func(types.Action)

	script *types.Script
	active *execctx.Context

	eventsDispatched atomic.Int64
	actionsDrained   atomic.Int64
}

// Stats snapshots the runtime's counters for CLI/introspection use (the
// `wodrt stats` command): how deep the stack currently is, how many
// events have been dispatched and actions drained over the runtime's
// lifetime, how many handlers are registered, and how many memory
// references are still live.
type Stats struct {
	StackDepth          int
	ActiveBlocks        int
	EventsDispatched    int64
	HandlersRegistered  int
	MemoryRefsLive      int
	ActionsDrainedTotal int64
}

// Stats returns a point-in-time snapshot of the runtime's counters.
func (r *Runtime) Stats() Stats {
	return Stats{
		StackDepth:          r.Stack.Depth(),
		ActiveBlocks:        r.Stack.Depth(),
		EventsDispatched:    r.eventsDispatched.Load(),
		HandlersRegistered:  r.Bus.Count(),
		MemoryRefsLive:      len(r.Memory.SortedEntries()),
		ActionsDrainedTotal: r.actionsDrained.Load(),
	}
}

// New constructs a Runtime for script, wiring memory, the event bus,
// the tracker, the strategy runtime, the JIT compiler (with its default
// strategies in precedence order), and an empty stack bounded at
// maxDepth. Pass maxDepth <= 0 for DefaultMaxDepth.
func New(scr *types.Script, clk clock.Clock, maxDepth int) *Runtime {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	mem := memory.New(clk.Now)
	bus := eventbus.New()
	trk := tracker.New(mem, clk)
	stk := stack.New(maxDepth, trk, bus)

	rt := &Runtime{
		Clock:   clk,
		Memory:  mem,
		Bus:     bus,
		Tracker: trk,
		Stack:   stk,
		script:  scr,
	}

	strategyRT := &strategy.Runtime{
		Clock:   clk,
		Memory:  mem,
		Bus:     bus,
		Tracker: trk,
		Resolve: func(id types.StatementID) *types.Statement { return scr.Statements[id] },
		NextBlockKey: func(sourceID types.StatementID) types.BlockKey {
			return types.NewBlockKey(sourceID, 1)
		},
	}
	compiler := jit.New(strategyRT)
	for _, s := range jit.DefaultStrategies() {
		compiler.RegisterStrategy(s)
	}
	rt.Compiler = compiler

	return rt
}

// Start compiles the script's root statement and pushes it, draining
// every action the mount produces (a timer start, an immediate first
// child push for a rounds/group block, ...). Refuses
// to run a script carrying blocking parse errors per §6/§7.
func (r *Runtime) Start() error {
	if r.script.HasBlockingErrors() {
		return wkerr.New(wkerr.CompileError, "script.Start", "", fmt.Errorf("script has blocking parse errors"))
	}
	root, ok := r.script.Root()
	if !ok {
		return wkerr.New(wkerr.CompileError, "script.Start", "", fmt.Errorf("script has no unambiguous root statement"))
	}

	rootBlock, err := r.Compiler.Compile([]*types.Statement{root})
	if err != nil {
		return err
	}

	return r.queueActions([]types.Action{{Kind: types.ActionPush, Payload: behavior.PushPayload{Block: rootBlock}}})
}

// Handle opens an execution context, dispatches event through the bus,
// queues the resulting actions, and drains the context to completion
// per §4.11/§4.12. The returned error is the one that stopped the drain:
// a runaway cascade, a stack overflow, a malformed action payload, or a
// panic inside a step (a HandlerException, which wkerr.IsFatal reports
// as not fatal).
func (r *Runtime) Handle(event types.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = r.Clock.Now()
	}

	ctx := execctx.New(r.Clock, execctx.DefaultMaxIterations)
	prev := r.active
	r.active = ctx
	defer func() { r.active = prev }()

	r.eventsDispatched.Add(1)
	ctx.Enqueue(r.Bus.Dispatch(event, r))
	return ctx.Drain(r.step)
}

// queueActions enqueues actions onto the active execution context, or
// opens and drains a synthetic one if none is active (§4.12). Used by
// Start for the initial push, before any event has opened a context.
func (r *Runtime) queueActions(actions []types.Action) error {
	if r.active != nil {
		r.active.Enqueue(actions)
		return nil
	}

	ctx := execctx.New(r.Clock, execctx.DefaultMaxIterations)
	r.active = ctx
	defer func() { r.active = nil }()

	ctx.Enqueue(actions)
	return ctx.Drain(r.step)
}

// IsComplete reports whether the stack has fully unwound and no
// execution context is currently draining.
func (r *Runtime) IsComplete() bool {
	return r.Stack.Depth() == 0 && r.active == nil
}

// DisposeAll pops and disposes every remaining block top-down and
// releases process-level memory references, per §5's "per process"
// resource lifecycle.
func (r *Runtime) DisposeAll() {
	r.Stack.Clear()
	r.Memory.ReleaseByOwner(types.ProcessOwner)
}

// step interprets one queued action: Push and Pop drive the stack
// (returning the mount/unmount cascade's actions for further draining);
// EmitEvent re-dispatches through the bus (its handlers' actions also
// feed back into the same drain); every other kind is a data-only
// envelope handed to Sink, producing nothing further.
func (r *Runtime) step(ctx *execctx.Context, action types.Action) ([]types.Action, error) {
	r.actionsDrained.Add(1)
	switch action.Kind {
	case types.ActionPush:
		payload, ok := action.Payload.(behavior.PushPayload)
		if !ok {
			return nil, fmt.Errorf("script: malformed push payload %T", action.Payload)
		}
		rb, ok := payload.Block.(*block.RuntimeBlock)
		if !ok {
			return nil, fmt.Errorf("script: push payload block is not a *block.RuntimeBlock (%T)", payload.Block)
		}
		mounted := &collector{}
		if err := r.Stack.Push(rb, mounted); err != nil {
			return nil, err
		}
		return mounted.actions, nil

	case types.ActionPop:
		return r.Stack.Pop(nil), nil

	case types.ActionEmitEvent:
		event, ok := action.Payload.(types.Event)
		if !ok {
			return nil, fmt.Errorf("script: malformed emitEvent payload %T", action.Payload)
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = ctx.Now()
		}
		r.eventsDispatched.Add(1)
		return r.Bus.Dispatch(event, r), nil

	default:
		if r.Sink != nil {
			r.Sink(action)
		}
		return nil, nil
	}
}

// collector is a throwaway stack.Enqueuer capturing one Push call's
// mount actions for the caller to fold back into the drain loop.
type collector struct {
	actions []types.Action
}

func (c *collector) Enqueue(actions []types.Action) { c.actions = append(c.actions, actions...) }
