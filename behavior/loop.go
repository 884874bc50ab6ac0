package behavior

import (
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// LoopType is the closed set of loop-advancement strategies driven by LoopCoordinator.
type LoopType string

// Loop type constants per §4.6.
const (
	LoopFixed     LoopType = "Fixed"
	LoopRepScheme LoopType = "RepScheme"
	LoopTimeBound LoopType = "TimeBound"
	LoopInterval  LoopType = "Interval"
)

// OnRoundStart is invoked at the start of each round, after the round
// index is known but before the child group is compiled/pushed.
type OnRoundStart func(ctx Context, block Block, roundIdx int) []types.Action

// LoopCoordinator drives child compilation for Fixed/RepScheme/
// TimeBound/Interval loops. It never pushes more than one child group
// at a time: advancement happens on OnNext, which is invoked when the
// current child group's stack subtree pops back to this block (stack
// calls parent.next() after a pop, per §4.10).
type LoopCoordinator struct {
	NoopHooks

	Type         LoopType
	TotalRounds  int // ignored (treated as unbounded) when Type == LoopTimeBound
	ChildGroups  [][]*types.Statement
	RepScheme    []int
	IntervalMs   *int64
	OnRoundStart OnRoundStart

	// Timer is the block's own TimerBehavior, needed by Interval mode to
	// restart the timer at each round boundary (per the accepted Open
	// Question: EMOM timer reset is automatic at interval boundary, not
	// user-triggered).
	Timer *TimerBehavior

	roundIdx      int // 0-based
	timerComplete bool
	done          bool
}

// NewLoopCoordinator constructs a LoopCoordinator.
func NewLoopCoordinator(loopType LoopType, totalRounds int, childGroups [][]*types.Statement) *LoopCoordinator {
	return &LoopCoordinator{Type: loopType, TotalRounds: totalRounds, ChildGroups: childGroups}
}

func (c *LoopCoordinator) OnMount(ctx Context, block Block) []types.Action {
	return c.advance(ctx, block)
}

func (c *LoopCoordinator) OnNext(ctx Context, block Block) []types.Action {
	return c.advance(ctx, block)
}

func (c *LoopCoordinator) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	if event.Name == types.EventTimerComplete {
		c.timerComplete = true
		if c.Type == LoopTimeBound {
			// Accepted Open Question: AMRAP timer expiry allows the
			// current child to finish; completion is observed lazily on
			// the next advance (i.e. after the running child pops), not
			// forced here.
			return nil
		}
		if c.Type == LoopInterval {
			return c.advance(ctx, block)
		}
	}
	return nil
}

// IsDone reports whether the coordinator has emitted rounds:complete.
// Used by a sibling CompletionBehavior's condition closure.
func (c *LoopCoordinator) IsDone() bool { return c.done }

func (c *LoopCoordinator) isFinalRound() bool {
	switch c.Type {
	case LoopFixed, LoopRepScheme:
		return c.roundIdx >= c.TotalRounds
	case LoopTimeBound:
		return c.timerComplete
	case LoopInterval:
		return c.roundIdx >= c.TotalRounds
	default:
		return true
	}
}

func (c *LoopCoordinator) advance(ctx Context, block Block) []types.Action {
	if c.done {
		return nil
	}
	if c.isFinalRound() {
		c.done = true
		return []types.Action{emitEventAction(types.Event{
			Name:      types.EventRoundsComplete,
			Timestamp: ctx.Now(),
			Target:    blockKeyPtr(block.Key()),
		})}
	}

	groupIdx := c.roundIdx
	if len(c.ChildGroups) > 0 {
		groupIdx = c.roundIdx % len(c.ChildGroups)
	}
	if groupIdx >= len(c.ChildGroups) {
		c.done = true
		return nil
	}
	group := c.ChildGroups[groupIdx]

	var actions []types.Action

	if c.Type == LoopInterval && c.Timer != nil && c.roundIdx > 0 {
		c.Timer.Restart(ctx)
	}

	if c.Type == LoopRepScheme && len(c.RepScheme) > 0 {
		reps := c.RepScheme[c.roundIdx%len(c.RepScheme)]
		ctx.Allocate(types.MemoryTypeMetricReps, reps, types.VisibilityInherited)
	}

	if c.OnRoundStart != nil {
		actions = append(actions, c.OnRoundStart(ctx, block, c.roundIdx)...)
	}

	child, err := ctx.Compile(group)
	if err != nil {
		return actions
	}

	actions = append(actions,
		pushAction(child),
		emitEventAction(types.Event{
			Name:      types.EventRoundsChanged,
			Timestamp: ctx.Now(),
			Data: map[string]any{
				"rounds": types.RoundsChangedData{Current: c.roundIdx + 1, Total: c.TotalRounds},
			},
			Target: blockKeyPtr(block.Key()),
		}),
	)

	ctx.StartSegment("round")
	c.roundIdx++

	return actions
}
