package behavior

import "github.com/SergeiGolos/wod-wiki-sub004/types"

// Condition evaluates whether a block should complete.
type Condition func(ctx Context, block Block) bool

// CompletionBehavior pops the owning block exactly once, when condition
// becomes true (optionally gated to a set of triggering event names).
type CompletionBehavior struct {
	NoopHooks

	Condition     Condition
	TriggerEvents map[string]bool // nil means only "next" triggers a check
	CheckOnPush   bool
	CheckOnNext   bool

	triggered bool
}

// NewCompletionBehavior constructs a CompletionBehavior with
// CheckOnPush=false, CheckOnNext=true, matching spec §4.6's defaults.
func NewCompletionBehavior(condition Condition, triggerEvents []string) *CompletionBehavior {
	var set map[string]bool
	if len(triggerEvents) > 0 {
		set = make(map[string]bool, len(triggerEvents))
		for _, e := range triggerEvents {
			set[e] = true
		}
	}
	return &CompletionBehavior{Condition: condition, TriggerEvents: set, CheckOnNext: true}
}

func (c *CompletionBehavior) check(ctx Context, block Block) []types.Action {
	if c.triggered || c.Condition == nil {
		return nil
	}
	if !c.Condition(ctx, block) {
		return nil
	}
	c.triggered = true
	return []types.Action{
		emitEventAction(types.Event{Name: types.EventBlockComplete, Timestamp: ctx.Now(), Target: blockKeyPtr(block.Key())}),
		popAction(block.Key(), "completion"),
	}
}

func (c *CompletionBehavior) OnMount(ctx Context, block Block) []types.Action {
	if c.CheckOnPush {
		return c.check(ctx, block)
	}
	return nil
}

func (c *CompletionBehavior) OnNext(ctx Context, block Block) []types.Action {
	if c.CheckOnNext {
		return c.check(ctx, block)
	}
	return nil
}

func (c *CompletionBehavior) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	if c.TriggerEvents != nil && !c.TriggerEvents[event.Name] {
		return nil
	}
	if c.TriggerEvents == nil && event.Name != types.EventNext {
		// Without an explicit trigger list, only react to the events
		// this behavior is documented to react to (block:complete's own
		// causes), never to every event in the system.
		return nil
	}
	return c.check(ctx, block)
}

// NextEventBehavior sets a forceComplete latch when `next` arrives,
// read by a CompletionBehavior condition composed alongside it in leaf
// blocks (e.g. EffortBlock).
type NextEventBehavior struct {
	NoopHooks

	forceComplete bool
}

// ForceComplete reports whether a `next` event has been observed.
func (n *NextEventBehavior) ForceComplete() bool { return n.forceComplete }

func (n *NextEventBehavior) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	if event.Name == types.EventNext {
		n.forceComplete = true
	}
	return nil
}

// PopOnNextBehavior unconditionally pops its block on `next`.
type PopOnNextBehavior struct{ NoopHooks }

func (PopOnNextBehavior) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	if event.Name == types.EventNext {
		return []types.Action{popAction(block.Key(), "next")}
	}
	return nil
}

// IdleBehavior pops on `next` or on a single configured event name.
type IdleBehavior struct {
	NoopHooks

	TriggerEvent string // additional event name besides "next"; empty to ignore
}

func (i IdleBehavior) OnEvent(ctx Context, block Block, event types.Event) []types.Action {
	if event.Name == types.EventNext || (i.TriggerEvent != "" && event.Name == i.TriggerEvent) {
		return []types.Action{popAction(block.Key(), "idle")}
	}
	return nil
}
