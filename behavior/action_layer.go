package behavior

import "github.com/SergeiGolos/wod-wiki-sub004/types"

// ActionDescriptor binds an event name to an optional UI label and
// source statement, for the Action Layer's mount-time registration.
type ActionDescriptor struct {
	EventName         string
	Label             string
	SourceStatementID *types.StatementID
}

// ActionLayerBehavior surfaces a block's Action fragments as
// UI-addressable event descriptors; when a matching event arrives it
// advances the block via `next`. A default `next`-named descriptor is
// always present even if none was configured, so a bare leaf block is
// still advanceable.
type ActionLayerBehavior struct {
	NoopHooks

	Descriptors []ActionDescriptor

	names map[string]bool
}

// NewActionLayerBehavior constructs an ActionLayerBehavior, injecting a
// default `next` descriptor if absent.
func NewActionLayerBehavior(descriptors []ActionDescriptor) *ActionLayerBehavior {
	hasNext := false
	for _, d := range descriptors {
		if d.EventName == types.EventNext {
			hasNext = true
			break
		}
	}
	if !hasNext {
		descriptors = append(descriptors, ActionDescriptor{EventName: types.EventNext, Label: "Next"})
	}
	return &ActionLayerBehavior{Descriptors: descriptors}
}

func (a *ActionLayerBehavior) OnMount(ctx Context, block Block) []types.Action {
	a.names = make(map[string]bool, len(a.Descriptors))
	for _, d := range a.Descriptors {
		a.names[d.EventName] = true
	}
	return nil
}

func (a *ActionLayerBehavior) OnUnmount(ctx Context, block Block) []types.Action {
	a.names = nil
	return nil
}

func (a *ActionLayerBehavior) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	if a.names == nil || !a.names[event.Name] {
		return nil
	}
	return []types.Action{emitEventAction(types.Event{
		Name:      types.EventNext,
		Timestamp: ctx.Now(),
		Target:    blockKeyPtr(block.Key()),
	})}
}
