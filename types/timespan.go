package types

import "time"

// Timestamp is a monotonic instant as observed by a Clock.
type Timestamp = time.Time

// TimeSpan is a half-open interval: open (Stop is zero) while running,
// closed once Stop is set. Elapsed sums across a slice of spans.
type TimeSpan struct {
	Start Timestamp `json:"start" msgpack:"start"`
	Stop  Timestamp `json:"stop,omitempty" msgpack:"stop,omitempty"`
}

// Open reports whether the span has not yet been stopped.
func (t TimeSpan) Open() bool {
	return t.Stop.IsZero()
}

// Elapsed returns the span's duration. If open, elapsed is measured
// against now (the frozen context timestamp, per §3 invariants).
func (t TimeSpan) Elapsed(now Timestamp) time.Duration {
	if t.Open() {
		return now.Sub(t.Start)
	}
	return t.Stop.Sub(t.Start)
}

// ElapsedSpans sums Elapsed across a slice of spans against a single now.
func ElapsedSpans(spans []TimeSpan, now Timestamp) time.Duration {
	var total time.Duration
	for _, s := range spans {
		total += s.Elapsed(now)
	}
	return total
}

// TimerRole distinguishes a block's primary timer from secondary/auto timers.
type TimerRole string

// Timer role constants per §4.6 TimerBehavior.
const (
	TimerRolePrimary   TimerRole = "Primary"
	TimerRoleSecondary TimerRole = "Secondary"
	TimerRoleAuto      TimerRole = "Auto"
)

// TimerState is the memory value allocated by TimerBehavior on mount.
type TimerState struct {
	Spans      []TimeSpan     `json:"spans" msgpack:"spans"`
	Direction  TimerDirection `json:"direction" msgpack:"direction"`
	DurationMs *int64         `json:"durationMs,omitempty" msgpack:"duration_ms,omitempty"`
	Label      string         `json:"label" msgpack:"label"`
	Role       TimerRole      `json:"role" msgpack:"role"`
}

// Elapsed returns total elapsed time across all spans, drift-free
// (never accumulated from ticks; always recomputed from spans+now).
func (t TimerState) Elapsed(now Timestamp) time.Duration {
	return ElapsedSpans(t.Spans, now)
}

// RemainingMs returns remaining milliseconds for a countdown timer, or
// nil if the timer has no DurationMs (count-up timers never complete).
func (t TimerState) RemainingMs(now Timestamp) *int64 {
	if t.DurationMs == nil {
		return nil
	}
	elapsedMs := t.Elapsed(now).Milliseconds()
	remaining := *t.DurationMs - elapsedMs
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// Complete reports whether a countdown timer has reached its duration.
func (t TimerState) Complete(now Timestamp) bool {
	if t.DurationMs == nil {
		return false
	}
	return t.Elapsed(now).Milliseconds() >= *t.DurationMs
}
