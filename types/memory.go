package types

// Visibility controls which owners may discover a MemoryReference via search.
type Visibility string

// Visibility constants per §4.2.
const (
	// VisibilityPublic references are discoverable by any owner.
	VisibilityPublic Visibility = "Public"
	// VisibilityPrivate references are discoverable only by their owner.
	VisibilityPrivate Visibility = "Private"
	// VisibilityInherited references are discoverable by the owner and
	// its descendant block owners (as tracked by the memory service's
	// parent-link table).
	VisibilityInherited Visibility = "Inherited"
)

// MemoryType is a caller-defined type tag for a memory reference. The
// core reserves a handful of well-known types (see the Timer/Span
// memory types used by behavior and tracker) but callers may allocate
// arbitrary additional types.
type MemoryType string

// Well-known memory types allocated by core behaviors/tracker.
const (
	MemoryTypeTimer       MemoryType = "timer"
	MemoryTypeSpan        MemoryType = "span"
	MemoryTypeMetricReps  MemoryType = "METRIC_REPS"
	MemoryTypeChildIndex  MemoryType = "childIndex"
	MemoryTypeRoundIndex  MemoryType = "roundIndex"
)

// RefID uniquely identifies a reference within its (ownerId, type) scope.
type RefID string

// MemoryReference is an opaque, typed handle to a value stored by the
// Memory service. A reference is owned by exactly one owner (a
// BlockKey or ProcessOwner) and is valid only while live: once
// released (directly, or because its owner was disposed), get/set/
// search on it fail with MemoryNotFound.
type MemoryReference struct {
	ID         RefID      `json:"id"`
	OwnerID    BlockKey   `json:"ownerId"`
	Type       MemoryType `json:"type"`
	Visibility Visibility `json:"visibility"`
}
