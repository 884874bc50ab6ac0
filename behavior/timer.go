package behavior

import (
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// TimerBehavior drives a single timer's memory state and emits
// timer:started/timer:tick/timer:complete. Elapsed time is always
// recomputed as the sum of recorded spans, never accumulated from
// ticks, so it cannot drift regardless of how sparsely clock:tick
// events arrive.
type TimerBehavior struct {
	NoopHooks

	Direction  types.TimerDirection
	DurationMs *int64
	Label      string
	Role       types.TimerRole
	AutoStart  bool

	ref           types.MemoryReference
	completedOnce bool
	paused        bool
}

// NewTimerBehavior constructs a TimerBehavior with AutoStart=true, per
// the default in spec §4.6's configuration table.
func NewTimerBehavior(direction types.TimerDirection, durationMs *int64, label string, role types.TimerRole) *TimerBehavior {
	return &TimerBehavior{Direction: direction, DurationMs: durationMs, Label: label, Role: role, AutoStart: true}
}

func (b *TimerBehavior) OnMount(ctx Context, block Block) []types.Action {
	state := types.TimerState{
		Spans:      []types.TimeSpan{{Start: ctx.Now()}},
		Direction:  b.Direction,
		DurationMs: b.DurationMs,
		Label:      b.Label,
		Role:       b.Role,
	}
	b.ref = ctx.Allocate(types.MemoryTypeTimer, state, types.VisibilityPublic)
	b.paused = !b.AutoStart
	if b.paused {
		b.closeOpenSpan(ctx)
	}

	return []types.Action{emitEventAction(types.Event{
		Name:      types.EventTimerStarted,
		Timestamp: ctx.Now(),
		Data:      map[string]any{"label": b.Label, "role": string(b.Role)},
		Target:    blockKeyPtr(block.Key()),
	})}
}

func (b *TimerBehavior) OnUnmount(ctx Context, block Block) []types.Action {
	b.closeOpenSpan(ctx)
	return nil
}

func (b *TimerBehavior) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	if event.Name != types.EventClockTick || b.paused {
		return nil
	}

	state, ok := b.load(ctx)
	if !ok {
		return nil
	}

	now := ctx.Now()
	elapsedMs := state.Elapsed(now).Milliseconds()
	remainingMs := state.RemainingMs(now)

	actions := []types.Action{emitEventAction(types.Event{
		Name:      types.EventTimerTick,
		Timestamp: now,
		Data: map[string]any{
			"tick": types.TimerTickData{ElapsedMs: elapsedMs, RemainingMs: remainingMs},
		},
		Target: blockKeyPtr(block.Key()),
	})}

	if b.Direction == types.DirectionDown && state.Complete(now) && !b.completedOnce {
		b.completedOnce = true
		actions = append(actions, emitEventAction(types.Event{
			Name:      types.EventTimerComplete,
			Timestamp: now,
			Target:    blockKeyPtr(block.Key()),
		}))
	}

	return actions
}

// Done reports whether a countdown timer has reached its configured
// duration as of ctx.Now(). Count-up timers (DurationMs nil) are never
// done by this measure. Used by CompletionBehavior condition closures.
func (b *TimerBehavior) Done(ctx Context) bool {
	state, ok := b.load(ctx)
	if !ok {
		return false
	}
	return state.Complete(ctx.Now())
}

// Pause closes the current open span, if any, and stops emitting ticks.
func (b *TimerBehavior) Pause(ctx Context) {
	if b.paused {
		return
	}
	b.closeOpenSpan(ctx)
	b.paused = true
}

// Resume appends a new open span and resumes tick emission.
func (b *TimerBehavior) Resume(ctx Context) {
	if !b.paused {
		return
	}
	state, ok := b.load(ctx)
	if !ok {
		return
	}
	state.Spans = append(state.Spans, types.TimeSpan{Start: ctx.Now()})
	ctx.Set(b.ref, state)
	b.paused = false
}

// Reset clears all spans back to a single open span starting now, and
// clears the completion latch.
func (b *TimerBehavior) Reset(ctx Context) {
	state, ok := b.load(ctx)
	if !ok {
		return
	}
	state.Spans = []types.TimeSpan{{Start: ctx.Now()}}
	ctx.Set(b.ref, state)
	b.completedOnce = false
	b.paused = !b.AutoStart
}

// Restart is Reset followed by ensuring the timer is running; used by
// LoopCoordinator's Interval mode at the start of each round.
func (b *TimerBehavior) Restart(ctx Context) {
	b.Reset(ctx)
	b.paused = false
}

func (b *TimerBehavior) closeOpenSpan(ctx Context) {
	state, ok := b.load(ctx)
	if !ok || len(state.Spans) == 0 {
		return
	}
	last := len(state.Spans) - 1
	if state.Spans[last].Open() {
		state.Spans[last].Stop = ctx.Now()
		ctx.Set(b.ref, state)
	}
}

func (b *TimerBehavior) load(ctx Context) (types.TimerState, bool) {
	val, err := ctx.Get(b.ref)
	if err != nil {
		return types.TimerState{}, false
	}
	state, ok := val.(types.TimerState)
	return state, ok
}

func blockKeyPtr(k types.BlockKey) *types.BlockKey { return &k }
