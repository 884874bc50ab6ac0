package strategy

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Interval matches an EMOM-shaped statement group: a countdown timer
// that repeats a fixed number of rounds, restarting automatically at
// each round boundary.
type Interval struct{}

func (Interval) Name() string { return "Interval" }

func (Interval) Match(statements []*types.Statement, rt *Runtime) bool {
	if !anyHasFragment(statements, types.FragmentTimer) {
		return false
	}
	return anyHasHint(statements, "repeating_interval") || anyHasAction(statements, "EMOM")
}

func (Interval) Compile(statements []*types.Statement, rt *Runtime) (*block.RuntimeBlock, error) {
	key := rt.NextBlockKey(statements[0].ID)
	ctx := newContext(rt, key)
	groups := rt.childGroups(statements)

	totalRounds, _ := roundsCount(statements)
	duration := timerDurationMs(statements)

	timer := behavior.NewTimerBehavior(types.DirectionDown, duration, blockLabel(statements), types.TimerRolePrimary)
	loop := behavior.NewLoopCoordinator(behavior.LoopInterval, totalRounds, groups)
	loop.Timer = timer

	completion := behavior.NewCompletionBehavior(func(c behavior.Context, b behavior.Block) bool {
		return loop.IsDone()
	}, []string{types.EventRoundsComplete})

	behaviors := []behavior.Behavior{
		behavior.NewHistoryBehavior(blockLabel(statements), nil),
		timer,
		loop,
		behavior.NewSoundBehavior(nil),
		completion,
	}

	return block.New(key, sourceIDs(statements), "interval", blockLabel(statements), fragmentGroups(statements), ctx, behaviors, rt.Bus), nil
}
