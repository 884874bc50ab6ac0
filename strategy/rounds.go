package strategy

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Rounds matches a fixed or rep-scheme round count with no timer
// (e.g. "5 rounds for time"). Precedence is below every timer-bearing
// strategy.
type Rounds struct{}

func (Rounds) Name() string { return "Rounds" }

func (Rounds) Match(statements []*types.Statement, rt *Runtime) bool {
	if anyHasFragment(statements, types.FragmentTimer) {
		return false
	}
	return anyHasFragment(statements, types.FragmentRounds) || anyHasHint(statements, "fixed_rounds")
}

func (Rounds) Compile(statements []*types.Statement, rt *Runtime) (*block.RuntimeBlock, error) {
	key := rt.NextBlockKey(statements[0].ID)
	ctx := newContext(rt, key)
	groups := rt.childGroups(statements)

	count, repScheme := roundsCount(statements)
	loopType := behavior.LoopFixed
	if len(repScheme) > 0 {
		loopType = behavior.LoopRepScheme
	}
	loop := behavior.NewLoopCoordinator(loopType, count, groups)
	loop.RepScheme = repScheme

	completion := behavior.NewCompletionBehavior(func(c behavior.Context, b behavior.Block) bool {
		return loop.IsDone()
	}, []string{types.EventRoundsComplete})

	behaviors := []behavior.Behavior{
		behavior.NewHistoryBehavior(blockLabel(statements), nil),
		loop,
		completion,
	}

	return block.New(key, sourceIDs(statements), "rounds", blockLabel(statements), fragmentGroups(statements), ctx, behaviors, rt.Bus), nil
}
