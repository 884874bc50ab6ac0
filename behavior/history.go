package behavior

import "github.com/SergeiGolos/wod-wiki-sub004/types"

// HistoryBehavior, on mount, records the parent span id of its block's
// active span and attaches DebugMetadata to that span as debug tags.
// It does not open or close spans itself and has no unmount hook: the
// stack opens a block's span on push and closes it on pop (§4.10).
type HistoryBehavior struct {
	NoopHooks

	Label         string
	DebugMetadata map[string]any

	parentSpanID *types.SpanID
}

// NewHistoryBehavior constructs a HistoryBehavior.
func NewHistoryBehavior(label string, debugMetadata map[string]any) *HistoryBehavior {
	return &HistoryBehavior{Label: label, DebugMetadata: debugMetadata}
}

// ParentSpanID returns the parent span id captured at mount, if any.
func (h *HistoryBehavior) ParentSpanID() *types.SpanID { return h.parentSpanID }

func (h *HistoryBehavior) OnMount(ctx Context, block Block) []types.Action {
	if span, ok := ctx.ActiveSpan(); ok {
		h.parentSpanID = span.ParentSpanID
	}
	for k, v := range h.DebugMetadata {
		ctx.AddDebugTag(k, v)
	}
	return nil
}
