package strategy

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Effort is the default leaf strategy: an exercise statement with no
// timer, rounds, or children. It always matches, so it must be
// registered last.
type Effort struct{}

func (Effort) Name() string { return "Effort" }

func (Effort) Match(statements []*types.Statement, rt *Runtime) bool { return true }

func (Effort) Compile(statements []*types.Statement, rt *Runtime) (*block.RuntimeBlock, error) {
	key := rt.NextBlockKey(statements[0].ID)
	ctx := newContext(rt, key)

	nextEvt := &behavior.NextEventBehavior{}
	secondaryTimer := behavior.NewTimerBehavior(types.DirectionUp, nil, blockLabel(statements), types.TimerRoleSecondary)

	// Arrival of either trigger event is itself the completion signal for
	// a leaf effort block; there is no further state to check.
	completion := behavior.NewCompletionBehavior(func(c behavior.Context, b behavior.Block) bool {
		return true
	}, []string{types.EventRepsUpdated, types.EventNext})

	behaviors := []behavior.Behavior{
		behavior.NewHistoryBehavior(blockLabel(statements), nil),
		behavior.NewActionLayerBehavior(nil),
		nextEvt,
		secondaryTimer,
		completion,
	}

	return block.New(key, sourceIDs(statements), "effort", blockLabel(statements), fragmentGroups(statements), ctx, behaviors, rt.Bus), nil
}
