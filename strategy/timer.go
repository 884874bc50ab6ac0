package strategy

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Timer matches a plain directional timer (count-up or countdown),
// with or without children. Precedence is below TimeBoundRounds and
// Interval, so AMRAP/EMOM shapes are claimed first.
type Timer struct{}

func (Timer) Name() string { return "Timer" }

func (Timer) Match(statements []*types.Statement, rt *Runtime) bool {
	return anyHasFragment(statements, types.FragmentTimer) || anyHasHint(statements, "timer")
}

func (Timer) Compile(statements []*types.Statement, rt *Runtime) (*block.RuntimeBlock, error) {
	key := rt.NextBlockKey(statements[0].ID)
	ctx := newContext(rt, key)
	groups := rt.childGroups(statements)

	direction := timerDirection(statements, types.DirectionUp)
	duration := timerDurationMs(statements)
	timer := behavior.NewTimerBehavior(direction, duration, blockLabel(statements), types.TimerRolePrimary)

	var loop *behavior.LoopCoordinator
	var behaviors []behavior.Behavior
	behaviors = append(behaviors, behavior.NewHistoryBehavior(blockLabel(statements), nil), timer)

	if len(groups) > 0 {
		loop = behavior.NewLoopCoordinator(behavior.LoopFixed, 1, groups)
		behaviors = append(behaviors, loop)
	}

	completion := behavior.NewCompletionBehavior(func(c behavior.Context, b behavior.Block) bool {
		if loop != nil {
			return loop.IsDone()
		}
		return timer.Done(c)
	}, []string{types.EventTimerComplete, types.EventRoundsComplete})
	behaviors = append(behaviors, completion)

	return block.New(key, sourceIDs(statements), "timer", blockLabel(statements), fragmentGroups(statements), ctx, behaviors, rt.Bus), nil
}
