package strategy

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// TimeBoundRounds matches an AMRAP-shaped statement group: a countdown
// timer whose children repeat until the timer completes.
type TimeBoundRounds struct{}

func (TimeBoundRounds) Name() string { return "TimeBoundRounds" }

func (TimeBoundRounds) Match(statements []*types.Statement, rt *Runtime) bool {
	if !anyHasFragment(statements, types.FragmentTimer) {
		return false
	}
	return anyHasFragment(statements, types.FragmentRounds) ||
		anyHasHint(statements, "time_bound") ||
		anyHasAction(statements, "AMRAP")
}

func (TimeBoundRounds) Compile(statements []*types.Statement, rt *Runtime) (*block.RuntimeBlock, error) {
	key := rt.NextBlockKey(statements[0].ID)
	ctx := newContext(rt, key)
	groups := rt.childGroups(statements)

	duration := timerDurationMs(statements)
	timer := behavior.NewTimerBehavior(types.DirectionDown, duration, blockLabel(statements), types.TimerRolePrimary)
	loop := behavior.NewLoopCoordinator(behavior.LoopTimeBound, 0, groups)
	loop.Timer = timer

	completion := behavior.NewCompletionBehavior(func(c behavior.Context, b behavior.Block) bool {
		return loop.IsDone()
	}, []string{types.EventTimerComplete, types.EventRoundsComplete})

	behaviors := []behavior.Behavior{
		behavior.NewHistoryBehavior(blockLabel(statements), nil),
		timer,
		loop,
		behavior.NewSoundBehavior(nil),
		completion,
	}

	return block.New(key, sourceIDs(statements), "time_bound_rounds", blockLabel(statements), fragmentGroups(statements), ctx, behaviors, rt.Bus), nil
}
