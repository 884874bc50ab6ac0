package strategy

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Group is the catch-all for a statement with children and no other
// strategy's defining fragment: a single pass over its child groups in
// order.
type Group struct{}

func (Group) Name() string { return "Group" }

func (Group) Match(statements []*types.Statement, rt *Runtime) bool {
	if anyHasHint(statements, "group") {
		return true
	}
	for _, s := range statements {
		if len(s.ChildGroups) > 0 {
			return true
		}
	}
	return false
}

func (Group) Compile(statements []*types.Statement, rt *Runtime) (*block.RuntimeBlock, error) {
	key := rt.NextBlockKey(statements[0].ID)
	ctx := newContext(rt, key)
	groups := rt.childGroups(statements)

	loop := behavior.NewLoopCoordinator(behavior.LoopFixed, 1, groups)
	completion := behavior.NewCompletionBehavior(func(c behavior.Context, b behavior.Block) bool {
		return loop.IsDone()
	}, []string{types.EventRoundsComplete})

	behaviors := []behavior.Behavior{
		behavior.NewHistoryBehavior(blockLabel(statements), nil),
		loop,
		completion,
	}

	return block.New(key, sourceIDs(statements), "group", blockLabel(statements), fragmentGroups(statements), ctx, behaviors, rt.Bus), nil
}
