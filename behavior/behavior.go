// Package behavior implements the composable lifecycle units described
// in spec §4.6: stateful objects, each implementing any subset of
// onMount/onNext/onUnmount/onDispose/onEvent, composed onto a
// RuntimeBlock. Grounded on the teacher's policy.Policy
// (droppable/scoped hook composition) and runtime/artifacts.go's
// accumulator-field-per-instance state model.
package behavior

import (
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Block is the minimal read-only view of the owning RuntimeBlock a
// behavior needs: identity, fragments, and type tag. block.RuntimeBlock
// implements this structurally.
type Block interface {
	Key() types.BlockKey
	BlockType() string
	Label() string
	Fragments() [][]types.Fragment
	SourceIDs() []types.StatementID
}

// Context is the scoped surface a behavior's hooks operate against:
// memory/event-bus access restricted to the owning block, the frozen
// execution-context clock, and tracker operations on the block's
// current span. block.Context implements this.
type Context interface {
	Now() types.Timestamp
	Owner() types.BlockKey

	Allocate(typ types.MemoryType, value any, vis types.Visibility) types.MemoryReference
	Get(ref types.MemoryReference) (any, error)
	Set(ref types.MemoryReference, value any) error
	Search(criteria memory.Criteria) []types.MemoryReference
	Subscribe(ref types.MemoryReference, cb func(memory.Notification), opts memory.SubscribeOptions) (memory.Unsubscribe, error)

	StartSegment(label string) error
	EndSegment(label string) error
	RecordMetric(value types.RecordedMetricValue) error
	RecordRound(roundIdx int) error
	ActiveSpan() (types.ExecutionSpan, bool)
	AddDebugTag(key string, value any) error

	// Compile runs statements through the JIT compiler and returns the
	// resulting block, used by LoopCoordinator and RestBlockBehavior to
	// produce children.
	Compile(statements []*types.Statement) (Block, error)
}

// Behavior implements any subset of the five lifecycle hooks. Embed
// NoopHooks to get zero-value implementations of hooks you don't need.
type Behavior interface {
	OnMount(ctx Context, block Block) []types.Action
	OnNext(ctx Context, block Block) []types.Action
	OnUnmount(ctx Context, block Block) []types.Action
	OnDispose(ctx Context, block Block)
	OnEvent(ctx Context, block Block, event types.Event) []types.Action
}

// NoopHooks gives every Behavior hook a zero-value implementation;
// concrete behaviors embed it and override only the hooks they need,
// matching the "implements any subset" contract in spec §4.6.
type NoopHooks struct{}

func (NoopHooks) OnMount(Context, Block) []types.Action                 { return nil }
func (NoopHooks) OnNext(Context, Block) []types.Action                  { return nil }
func (NoopHooks) OnUnmount(Context, Block) []types.Action               { return nil }
func (NoopHooks) OnDispose(Context, Block)                              {}
func (NoopHooks) OnEvent(Context, Block, types.Event) []types.Action    { return nil }

// PushPayload is the data envelope for an ActionPush action: the block
// to mount. The stack/execctx drain loop type-asserts Payload to this
// to perform the actual push; behaviors never touch the stack directly.
type PushPayload struct {
	Block Block
}

// PopPayload is the data envelope for an ActionPop action.
type PopPayload struct {
	BlockKey types.BlockKey
	Reason   string
}

func pushAction(block Block) types.Action {
	return types.Action{Kind: types.ActionPush, Payload: PushPayload{Block: block}}
}

func popAction(blockKey types.BlockKey, reason string) types.Action {
	return types.Action{Kind: types.ActionPop, Payload: PopPayload{BlockKey: blockKey, Reason: reason}}
}

func emitEventAction(event types.Event) types.Action {
	return types.Action{Kind: types.ActionEmitEvent, Payload: event}
}
