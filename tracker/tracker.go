// Package tracker records execution spans and metrics keyed on block
// identity, per spec §4.4. Spans are allocated via the memory service
// under types.MemoryTypeSpan so searches/subscriptions work uniformly
// over them, the same way the teacher's metrics.Collector accumulates
// nil-safe counters and runtime.ArtifactManager tracks per-artifact
// accumulation state under a mutex-guarded map.
package tracker

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Tracker maintains a parent-linked tree of execution spans backed by
// the memory service, and records metrics/segments/debug metadata on
// them.
type Tracker struct {
	mem   Memory
	clock clock.Clock

	mu          sync.Mutex
	spanSeq     atomic.Int64
	activeByKey map[types.BlockKey]types.SpanID
	refBySpan   map[types.SpanID]types.MemoryReference
	completed   []types.SpanID
}

// Memory is the minimal memory.Memory surface the tracker depends on.
type Memory interface {
	Allocate(typ types.MemoryType, owner types.BlockKey, value any, vis types.Visibility) types.MemoryReference
	Get(ref types.MemoryReference) (any, error)
	Set(ref types.MemoryReference, newValue any) error
}

var _ Memory = (*memory.Memory)(nil)

// New creates a Tracker backed by mem, using clk to stamp span start/end
// times.
func New(mem Memory, clk clock.Clock) *Tracker {
	return &Tracker{
		mem:         mem,
		clock:       clk,
		activeByKey: make(map[types.BlockKey]types.SpanID),
		refBySpan:   make(map[types.SpanID]types.MemoryReference),
	}
}

// BlockDescriptor is the minimal view of a block the tracker needs to
// open a span: its key, a label, and a type tag (e.g. "timer",
// "rounds", "effort", "rest").
type BlockDescriptor struct {
	Key   types.BlockKey
	Label string
	Type  string
}

// StartSpan allocates a TrackedSpan for block with status Active and
// startTime = clock.Now(). parentSpanID, if non-empty, links it to an
// enclosing span (e.g. the stack's current top when block is pushed).
func (t *Tracker) StartSpan(block BlockDescriptor, parentSpanID *types.SpanID) types.ExecutionSpan {
	id := types.SpanID(fmt.Sprintf("span:%d", t.spanSeq.Add(1)))
	span := types.ExecutionSpan{
		SpanID:       id,
		BlockKey:     block.Key,
		ParentSpanID: parentSpanID,
		Label:        block.Label,
		Type:         block.Type,
		StartTime:    t.clock.Now(),
		Status:       types.SpanActive,
	}

	ref := t.mem.Allocate(types.MemoryTypeSpan, block.Key, span, types.VisibilityPublic)

	t.mu.Lock()
	t.activeByKey[block.Key] = id
	t.refBySpan[id] = ref
	t.mu.Unlock()

	return span
}

func (t *Tracker) mutate(blockKey types.BlockKey, fn func(*types.ExecutionSpan)) (types.ExecutionSpan, error) {
	t.mu.Lock()
	spanID, ok := t.activeByKey[blockKey]
	if !ok {
		t.mu.Unlock()
		return types.ExecutionSpan{}, fmt.Errorf("tracker: no active span for block %s", blockKey)
	}
	ref := t.refBySpan[spanID]
	t.mu.Unlock()

	val, err := t.mem.Get(ref)
	if err != nil {
		return types.ExecutionSpan{}, err
	}
	span := val.(types.ExecutionSpan)
	fn(&span)
	if err := t.mem.Set(ref, span); err != nil {
		return types.ExecutionSpan{}, err
	}
	return span, nil
}

func (t *Tracker) closeSpan(blockKey types.BlockKey, status types.SpanStatus) (types.ExecutionSpan, error) {
	span, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		if s.EndTime.IsZero() {
			s.EndTime = t.clock.Now()
		}
		s.Status = status
	})
	if err != nil {
		return span, err
	}

	t.mu.Lock()
	delete(t.activeByKey, blockKey)
	t.completed = append(t.completed, span.SpanID)
	t.mu.Unlock()

	return span, nil
}

// EndSpan closes the current active span for blockKey with status
// Completed and endTime = clock.Now().
func (t *Tracker) EndSpan(blockKey types.BlockKey) (types.ExecutionSpan, error) {
	return t.closeSpan(blockKey, types.SpanCompleted)
}

// FailSpan closes the current active span for blockKey with status Failed.
func (t *Tracker) FailSpan(blockKey types.BlockKey) (types.ExecutionSpan, error) {
	return t.closeSpan(blockKey, types.SpanFailed)
}

// SkipSpan closes the current active span for blockKey with status Skipped.
func (t *Tracker) SkipSpan(blockKey types.BlockKey) (types.ExecutionSpan, error) {
	return t.closeSpan(blockKey, types.SpanSkipped)
}

// RecordMetric appends value to the span's current (last) metric group
// for blockKey, starting a new group first if none is open.
func (t *Tracker) RecordMetric(blockKey types.BlockKey, value types.RecordedMetricValue) error {
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		if len(s.MetricGroups) == 0 {
			s.MetricGroups = append(s.MetricGroups, nil)
		}
		last := len(s.MetricGroups) - 1
		s.MetricGroups[last] = append(s.MetricGroups[last], value)
	})
	return err
}

// RecordNumericMetric is a convenience for scalar numeric metrics.
func (t *Tracker) RecordNumericMetric(blockKey types.BlockKey, typ types.MetricType, value float64, unit string) error {
	return t.RecordMetric(blockKey, types.RecordedMetricValue{Type: typ, Value: value, Unit: unit})
}

// RecordRound appends a Rounds metric for the given round index (1-based).
func (t *Tracker) RecordRound(blockKey types.BlockKey, roundIdx int) error {
	return t.RecordMetric(blockKey, types.RecordedMetricValue{Type: types.MetricRounds, Value: roundIdx})
}

// StartNewMetricGroup opens a fresh metric group (e.g. at the start of
// each round) so subsequent RecordMetric calls append to it rather than
// the previous round's group.
func (t *Tracker) StartNewMetricGroup(blockKey types.BlockKey) error {
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		s.MetricGroups = append(s.MetricGroups, nil)
	})
	return err
}

// StartSegment opens a named sub-range within the block's current span.
func (t *Tracker) StartSegment(blockKey types.BlockKey, label string) error {
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		s.OpenSegment(label, t.clock.Now())
	})
	return err
}

// EndSegment closes a named sub-range and records its elapsed time as a
// Time metric in the current metric group.
func (t *Tracker) EndSegment(blockKey types.BlockKey, label string) error {
	now := t.clock.Now()
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		start, ok := s.CloseSegment(label, now)
		if !ok {
			return
		}
		if len(s.MetricGroups) == 0 {
			s.MetricGroups = append(s.MetricGroups, nil)
		}
		last := len(s.MetricGroups) - 1
		s.MetricGroups[last] = append(s.MetricGroups[last], types.RecordedMetricValue{
			Type:   types.MetricTime,
			Value:  now.Sub(start).Milliseconds(),
			Unit:   "ms",
			Source: label,
		})
	})
	return err
}

// EndAllSegments closes every still-open segment on the block's current span.
func (t *Tracker) EndAllSegments(blockKey types.BlockKey) error {
	now := t.clock.Now()
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		for label, start := range s.EndAllSegments() {
			if len(s.MetricGroups) == 0 {
				s.MetricGroups = append(s.MetricGroups, nil)
			}
			last := len(s.MetricGroups) - 1
			s.MetricGroups[last] = append(s.MetricGroups[last], types.RecordedMetricValue{
				Type:   types.MetricTime,
				Value:  now.Sub(start).Milliseconds(),
				Unit:   "ms",
				Source: label,
			})
		}
	})
	return err
}

// AddDebugLog appends a debug log line under the "log" debug key.
func (t *Tracker) AddDebugLog(blockKey types.BlockKey, message string) error {
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		if s.Debug == nil {
			s.Debug = make(map[string]any)
		}
		logs, _ := s.Debug["log"].([]string)
		s.Debug["log"] = append(logs, message)
	})
	return err
}

// AddDebugTag sets a single debug key/value pair.
func (t *Tracker) AddDebugTag(blockKey types.BlockKey, key string, value any) error {
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		if s.Debug == nil {
			s.Debug = make(map[string]any)
		}
		s.Debug[key] = value
	})
	return err
}

// SetDebugContext replaces the entire debug metadata map.
func (t *Tracker) SetDebugContext(blockKey types.BlockKey, ctx map[string]any) error {
	_, err := t.mutate(blockKey, func(s *types.ExecutionSpan) {
		s.Debug = ctx
	})
	return err
}

// GetActiveSpan returns the current active span for blockKey, if any.
func (t *Tracker) GetActiveSpan(blockKey types.BlockKey) (types.ExecutionSpan, bool) {
	t.mu.Lock()
	spanID, ok := t.activeByKey[blockKey]
	if !ok {
		t.mu.Unlock()
		return types.ExecutionSpan{}, false
	}
	ref := t.refBySpan[spanID]
	t.mu.Unlock()

	val, err := t.mem.Get(ref)
	if err != nil {
		return types.ExecutionSpan{}, false
	}
	return val.(types.ExecutionSpan), true
}

// GetCompletedSpans returns every span that has been closed, in the
// order they were closed.
func (t *Tracker) GetCompletedSpans() []types.ExecutionSpan {
	t.mu.Lock()
	ids := append([]types.SpanID(nil), t.completed...)
	t.mu.Unlock()

	out := make([]types.ExecutionSpan, 0, len(ids))
	for _, id := range ids {
		t.mu.Lock()
		ref, ok := t.refBySpan[id]
		t.mu.Unlock()
		if !ok {
			continue
		}
		if val, err := t.mem.Get(ref); err == nil {
			out = append(out, val.(types.ExecutionSpan))
		}
	}
	return out
}

// GetAllSpans returns every span known to the tracker (active and
// completed), sorted by SpanID for deterministic rendering.
func (t *Tracker) GetAllSpans() []types.ExecutionSpan {
	t.mu.Lock()
	ids := make([]types.SpanID, 0, len(t.refBySpan))
	for id := range t.refBySpan {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]types.ExecutionSpan, 0, len(ids))
	for _, id := range ids {
		t.mu.Lock()
		ref := t.refBySpan[id]
		t.mu.Unlock()
		if val, err := t.mem.Get(ref); err == nil {
			out = append(out, val.(types.ExecutionSpan))
		}
	}
	return out
}
