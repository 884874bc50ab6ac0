// Package wkerr classifies core runtime errors per spec §7. It mirrors
// the teacher's storage error classification (errors.Is/As-friendly
// sentinel + wrapper) and the IPC frame decoder's Kind+IsFatal shape.
package wkerr

import (
	"errors"
	"fmt"

	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Kind classifies an Error per the closed taxonomy in spec §7. ParseError
// is deliberately absent: it is received from the upstream parser, not
// originated by the core (see types.ParseError).
type Kind int

// Error kind constants.
const (
	// CompileError indicates no strategy matched, or a strategy raised
	// while compiling a statement.
	CompileError Kind = iota
	// StackOverflow indicates a push would exceed the configured max depth.
	StackOverflow
	// MemoryNotFound indicates access to a released or unknown reference.
	MemoryNotFound
	// MemoryVisibility indicates a visibility-restricted reference was
	// accessed by a non-owning, non-descendant owner.
	MemoryVisibility
	// HandlerException indicates an event handler panicked or returned an error.
	HandlerException
	// DisposalError indicates dispose() captured an internal failure.
	// Per contract, dispose itself never propagates this; it is logged.
	DisposalError
	// RunawayActions indicates the per-context action queue iteration
	// budget was exceeded.
	RunawayActions
)

func (k Kind) String() string {
	switch k {
	case CompileError:
		return "CompileError"
	case StackOverflow:
		return "StackOverflow"
	case MemoryNotFound:
		return "MemoryNotFound"
	case MemoryVisibility:
		return "MemoryVisibility"
	case HandlerException:
		return "HandlerException"
	case DisposalError:
		return "DisposalError"
	case RunawayActions:
		return "RunawayActions"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with a core error Kind and the block
// it concerns, if any. Use errors.As(err, &wkerr.Error{}) to recover Kind.
type Error struct {
	Kind     Kind
	BlockKey types.BlockKey
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e.BlockKey != "" {
		return fmt.Sprintf("%s: %s[%s]: %v", e.Op, e.Kind, e.BlockKey, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs a classified Error.
func New(kind Kind, op string, blockKey types.BlockKey, err error) *Error {
	return &Error{Kind: kind, Op: op, BlockKey: blockKey, Err: err}
}

// Fatal reports whether this error kind is irrecoverable at the run
// level per §7's propagation policy: a compile failure for the root
// block, a stack overflow, or a runaway-actions abort all surface as
// visible run failures. The rest (memory errors, handler exceptions,
// disposal errors) are isolated locally by their callers.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case CompileError, StackOverflow, RunawayActions:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err, if a *wkerr.Error, is fatal. Non-wkerr
// errors are treated as fatal (unclassified failures should not be
// silently swallowed).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Fatal()
	}
	return true
}
