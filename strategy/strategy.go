// Package strategy implements the match/compile pairs described in
// spec §4.8: each strategy decides whether it applies to a group of
// sibling statements, and if so builds the RuntimeBlock for them. The
// JIT compiler (package jit) tries strategies in declared precedence
// order. Grounded on the teacher's policy package's declarative
// predicate+action pairing (policy/policy.go), generalized here from a
// single droppable-event predicate to the six block-shape strategies.
package strategy

import (
	"github.com/SergeiGolos/wod-wiki-sub004/behavior"
	"github.com/SergeiGolos/wod-wiki-sub004/block"
	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/eventbus"
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/tracker"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Runtime bundles the collaborators a strategy needs to build a block:
// the shared services, a resolver from statement id to statement, a
// compiler for recursively compiling children, and a block key
// allocator.
type Runtime struct {
	Clock        clock.Clock
	Memory       *memory.Memory
	Bus          *eventbus.Bus
	Tracker      *tracker.Tracker
	Compiler     block.Compiler
	Resolve      func(types.StatementID) *types.Statement
	NextBlockKey func(sourceID types.StatementID) types.BlockKey
}

func (rt *Runtime) resolveGroup(ids []types.StatementID) []*types.Statement {
	var out []*types.Statement
	for _, id := range ids {
		if s := rt.Resolve(id); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (rt *Runtime) childGroups(statements []*types.Statement) [][]*types.Statement {
	var groups [][]*types.Statement
	for _, s := range statements {
		for _, group := range s.ChildGroups {
			groups = append(groups, rt.resolveGroup(group))
		}
	}
	return groups
}

// Strategy is a single match/compile pair, tried in precedence order by jit.Compiler.
type Strategy interface {
	Name() string
	Match(statements []*types.Statement, rt *Runtime) bool
	Compile(statements []*types.Statement, rt *Runtime) (*block.RuntimeBlock, error)
}

func allFragments(statements []*types.Statement, kind types.FragmentKind) []types.Fragment {
	var out []types.Fragment
	for _, s := range statements {
		out = append(out, s.FilterFragments(kind)...)
	}
	return out
}

func anyHasFragment(statements []*types.Statement, kind types.FragmentKind) bool {
	for _, s := range statements {
		if s.HasFragment(kind) {
			return true
		}
	}
	return false
}

func anyHasHint(statements []*types.Statement, hint string) bool {
	for _, s := range statements {
		if s.HasHint(hint) {
			return true
		}
	}
	return false
}

func anyHasAction(statements []*types.Statement, name string) bool {
	for _, s := range statements {
		if f, ok := s.FindFragment(types.FragmentAction, func(f types.Fragment) bool {
			av, ok := f.Value.(types.ActionValue)
			return ok && av.Name == name
		}); ok {
			_ = f
			return true
		}
	}
	return false
}

func sourceIDs(statements []*types.Statement) []types.StatementID {
	out := make([]types.StatementID, len(statements))
	for i, s := range statements {
		out[i] = s.ID
	}
	return out
}

func fragmentGroups(statements []*types.Statement) [][]types.Fragment {
	out := make([][]types.Fragment, len(statements))
	for i, s := range statements {
		out[i] = s.Fragments
	}
	return out
}

func blockLabel(statements []*types.Statement) string {
	for _, s := range statements {
		if f, ok := s.FindFragment(types.FragmentEffort, nil); ok {
			return f.Image
		}
		if f, ok := s.FindFragment(types.FragmentText, nil); ok {
			return f.Image
		}
	}
	return ""
}

func newContext(rt *Runtime, key types.BlockKey) *block.Context {
	return block.NewContext(key, rt.Clock, rt.Memory, rt.Tracker, rt.Compiler)
}

func timerDurationMs(statements []*types.Statement) *int64 {
	for _, s := range statements {
		if f, ok := s.FindFragment(types.FragmentTimer, nil); ok {
			if tv, ok := f.Value.(types.TimerValue); ok && tv.DurationMs > 0 {
				d := tv.DurationMs
				return &d
			}
		}
	}
	return nil
}

func timerDirection(statements []*types.Statement, fallback types.TimerDirection) types.TimerDirection {
	for _, s := range statements {
		if f, ok := s.FindFragment(types.FragmentTimer, nil); ok {
			if tv, ok := f.Value.(types.TimerValue); ok {
				return tv.Direction
			}
		}
	}
	return fallback
}

func roundsCount(statements []*types.Statement) (count int, repScheme []int) {
	for _, s := range statements {
		if f, ok := s.FindFragment(types.FragmentRounds, nil); ok {
			if rv, ok := f.Value.(types.RoundsValue); ok {
				if rv.Count != nil {
					return *rv.Count, nil
				}
				if len(rv.RepScheme) > 0 {
					return len(rv.RepScheme), rv.RepScheme
				}
			}
		}
	}
	return 1, nil
}

var _ behavior.Block = (*block.RuntimeBlock)(nil)
