// Package jit implements the ordered strategy registry described in
// spec §4.9: strategies are registered in precedence order, and
// compile finds the first match and delegates to it. Grounded on the
// teacher's policy registry (policy/policy.go's ordered rule list) and
// adapted to the block-compilation contract instead of drop decisions.
package jit

import (
	"fmt"

	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/strategy"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
	"github.com/SergeiGolos/wod-wiki-sub004/wkerr"
)

// Compiler tries registered strategies in precedence order and
// delegates to the first match.
type Compiler struct {
	strategies []strategy.Strategy
	rt         *strategy.Runtime
}

// New constructs a Compiler bound to rt. If rt.Compiler is nil, New sets
// it to the new Compiler so strategies compile children through it; an
// rt.Compiler that is already set is left as it is.
func New(rt *strategy.Runtime) *Compiler {
	c := &Compiler{rt: rt}
	if rt.Compiler == nil {
		rt.Compiler = c
	}
	return c
}

// RegisterStrategy appends strategy s, in declared precedence order.
// Strategies tried earlier take priority; Effort, matching everything,
// must be registered last.
func (c *Compiler) RegisterStrategy(s strategy.Strategy) {
	c.strategies = append(c.strategies, s)
}

// Compile finds the first matching strategy for statements and
// delegates to it, returning (nil, error) if statements is empty or no
// strategy matches (per §4.9, treated as a compile error), and
// propagating any error a strategy's Compile raises as a compile
// error.
func (c *Compiler) Compile(statements []*types.Statement) (*block.RuntimeBlock, error) {
	if len(statements) == 0 {
		return nil, wkerr.New(wkerr.CompileError, "jit.Compile", "", fmt.Errorf("empty statement list"))
	}

	for _, s := range c.strategies {
		if s.Match(statements, c.rt) {
			b, err := s.Compile(statements, c.rt)
			if err != nil {
				return nil, wkerr.New(wkerr.CompileError, "jit.Compile", "", fmt.Errorf("strategy %s: %w", s.Name(), err))
			}
			return b, nil
		}
	}

	return nil, wkerr.New(wkerr.CompileError, "jit.Compile", "", fmt.Errorf("no strategy matched %d statement(s)", len(statements)))
}

// Strategies returns the registered strategies in precedence order
// (read-only; for diagnostics/tests).
func (c *Compiler) Strategies() []strategy.Strategy {
	out := make([]strategy.Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}

// DefaultStrategies returns the six canonical strategies from spec
// §4.8, already in their required precedence order.
func DefaultStrategies() []strategy.Strategy {
	return []strategy.Strategy{
		strategy.TimeBoundRounds{},
		strategy.Interval{},
		strategy.Timer{},
		strategy.Rounds{},
		strategy.Group{},
		strategy.Effort{},
	}
}

var _ block.Compiler = (*Compiler)(nil)
