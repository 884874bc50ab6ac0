package behavior

// ParentContextBehavior stores a reference to the owning block's parent
// for context-sensitive execution (e.g. RestBlockBehavior inspecting a
// sibling's TimerBehavior through the parent block). It emits no
// actions by default.
type ParentContextBehavior struct {
	NoopHooks

	Parent Block
}

// NewParentContextBehavior constructs a ParentContextBehavior.
func NewParentContextBehavior(parent Block) *ParentContextBehavior {
	return &ParentContextBehavior{Parent: parent}
}
