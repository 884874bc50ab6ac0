package types

import (
	"fmt"
	"sync/atomic"
)

// BlockKey is an opaque, globally unique identifier for a block
// instance. Distinct from a Statement's source-line ID: a key never
// collides across re-compilations of the same statement (e.g. two
// rounds of the same child group get two distinct keys).
type BlockKey string

// ProcessOwner is the owner key used for process-level (non-block)
// memory allocations and event handler registrations (§5 "Resource
// lifecycle: Per process").
const ProcessOwner BlockKey = "__process__"

var blockKeySeq atomic.Int64

// NewBlockKey mints a fresh, process-unique BlockKey for a block
// compiled from sourceID during JIT compile generation gen. The
// source id is embedded for debuggability only; uniqueness comes from
// the monotonic counter.
func NewBlockKey(sourceID StatementID, gen int64) BlockKey {
	n := blockKeySeq.Add(1)
	return BlockKey(fmt.Sprintf("blk:%d:%d:%d", sourceID, gen, n))
}
