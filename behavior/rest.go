package behavior

import (
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// RestBuilder compiles a Rest block sized to remainingMs. It is supplied
// by whoever constructs RestBlockBehavior, since building the synthetic
// rest statement/fragment is a compile-time concern outside this
// package's scope; none of the strategies in package strategy compose
// RestBlockBehavior.
type RestBuilder func(remainingMs int64) (Block, error)

// RestBlockBehavior inspects the parent block's active timer; if it has
// remaining time, it compiles and pushes a Rest block sized to that
// remaining interval. If the parent has no active timer, or no time
// remains, it is a no-op. The pushed block is whatever Build returns;
// this behavior does not set its block type.
type RestBlockBehavior struct {
	NoopHooks

	ParentKey types.BlockKey
	Build     RestBuilder

	pushed bool
}

// NewRestBlockBehavior constructs a RestBlockBehavior.
func NewRestBlockBehavior(parentKey types.BlockKey, build RestBuilder) *RestBlockBehavior {
	return &RestBlockBehavior{ParentKey: parentKey, Build: build}
}

func (r *RestBlockBehavior) OnMount(ctx Context, block Block) []types.Action {
	if r.pushed {
		return nil
	}
	remaining := r.parentRemainingMs(ctx)
	if remaining == nil || *remaining <= 0 {
		return nil
	}
	if r.Build == nil {
		return nil
	}
	rest, err := r.Build(*remaining)
	if err != nil || rest == nil {
		return nil
	}
	r.pushed = true
	return []types.Action{pushAction(rest)}
}

func (r *RestBlockBehavior) parentRemainingMs(ctx Context) *int64 {
	refs := ctx.Search(memory.Criteria{Type: types.MemoryTypeTimer, OwnerID: r.ParentKey})
	if len(refs) == 0 {
		return nil
	}
	val, err := ctx.Get(refs[0])
	if err != nil {
		return nil
	}
	state, ok := val.(types.TimerState)
	if !ok {
		return nil
	}
	return state.RemainingMs(ctx.Now())
}
