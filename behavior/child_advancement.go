package behavior

import "github.com/SergeiGolos/wod-wiki-sub004/types"

// ChildAdvancementBehavior maintains an index into a fixed list of
// child statements, advancing on `next`. It never emits push actions
// itself; pushing the current child is delegated to a compilation step
// (typically a LoopCoordinator sharing the same block).
type ChildAdvancementBehavior struct {
	NoopHooks

	Children []*types.Statement

	currentIndex int
}

// NewChildAdvancementBehavior constructs a ChildAdvancementBehavior.
func NewChildAdvancementBehavior(children []*types.Statement) *ChildAdvancementBehavior {
	return &ChildAdvancementBehavior{Children: children}
}

// Current returns the statement at the current index, or nil if exhausted.
func (c *ChildAdvancementBehavior) Current() *types.Statement {
	if c.currentIndex >= len(c.Children) {
		return nil
	}
	return c.Children[c.currentIndex]
}

// Index returns the current 0-based index.
func (c *ChildAdvancementBehavior) Index() int { return c.currentIndex }

// Done reports whether every child has been advanced past.
func (c *ChildAdvancementBehavior) Done() bool { return c.currentIndex >= len(c.Children) }

func (c *ChildAdvancementBehavior) OnNext(ctx Context, block Block) []types.Action {
	if c.currentIndex < len(c.Children) {
		c.currentIndex++
	}
	return nil
}
