package tracker

import (
	"testing"
	"time"

	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/memory"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

func newTestTracker() (*Tracker, *clock.Manual) {
	mc := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	mem := memory.New(mc.Now)
	return New(mem, mc), mc
}

func TestStartEndSpan(t *testing.T) {
	tr, mc := newTestTracker()
	block := BlockDescriptor{Key: "blk:1", Label: "Round 1", Type: "rounds"}

	span := tr.StartSpan(block, nil)
	if span.Status != types.SpanActive {
		t.Fatalf("StartSpan status = %v, want Active", span.Status)
	}

	mc.Advance(5 * time.Second)
	got, err := tr.EndSpan(block.Key)
	if err != nil {
		t.Fatalf("EndSpan: %v", err)
	}
	if got.Status != types.SpanCompleted {
		t.Errorf("EndSpan status = %v, want Completed", got.Status)
	}
	if got.EndTime.Sub(got.StartTime) != 5*time.Second {
		t.Errorf("EndSpan duration = %v, want 5s", got.EndTime.Sub(got.StartTime))
	}

	if _, ok := tr.GetActiveSpan(block.Key); ok {
		t.Error("GetActiveSpan should report false after EndSpan")
	}
}

func TestFailAndSkipSpan(t *testing.T) {
	tr, _ := newTestTracker()

	b1 := BlockDescriptor{Key: "blk:1", Type: "effort"}
	tr.StartSpan(b1, nil)
	got, err := tr.FailSpan(b1.Key)
	if err != nil || got.Status != types.SpanFailed {
		t.Fatalf("FailSpan = %v, %v, want Failed", got.Status, err)
	}

	b2 := BlockDescriptor{Key: "blk:2", Type: "rest"}
	tr.StartSpan(b2, nil)
	got, err = tr.SkipSpan(b2.Key)
	if err != nil || got.Status != types.SpanSkipped {
		t.Fatalf("SkipSpan = %v, %v, want Skipped", got.Status, err)
	}
}

func TestRecordMetricGroups(t *testing.T) {
	tr, _ := newTestTracker()
	block := BlockDescriptor{Key: "blk:1", Type: "effort"}
	tr.StartSpan(block, nil)

	if err := tr.RecordNumericMetric(block.Key, types.MetricRep, 10, "reps"); err != nil {
		t.Fatalf("RecordNumericMetric: %v", err)
	}
	if err := tr.StartNewMetricGroup(block.Key); err != nil {
		t.Fatalf("StartNewMetricGroup: %v", err)
	}
	if err := tr.RecordRound(block.Key, 2); err != nil {
		t.Fatalf("RecordRound: %v", err)
	}

	span, ok := tr.GetActiveSpan(block.Key)
	if !ok {
		t.Fatal("expected active span")
	}
	if len(span.MetricGroups) != 2 {
		t.Fatalf("MetricGroups count = %d, want 2", len(span.MetricGroups))
	}
	if len(span.MetricGroups[0]) != 1 || span.MetricGroups[0][0].Type != types.MetricRep {
		t.Errorf("group0 = %+v, want one Rep metric", span.MetricGroups[0])
	}
	if len(span.MetricGroups[1]) != 1 || span.MetricGroups[1][0].Type != types.MetricRounds {
		t.Errorf("group1 = %+v, want one Rounds metric", span.MetricGroups[1])
	}
}

func TestSegments(t *testing.T) {
	tr, mc := newTestTracker()
	block := BlockDescriptor{Key: "blk:1", Type: "timer"}
	tr.StartSpan(block, nil)

	if err := tr.StartSegment(block.Key, "rest"); err != nil {
		t.Fatalf("StartSegment: %v", err)
	}
	mc.Advance(2 * time.Second)
	if err := tr.EndSegment(block.Key, "rest"); err != nil {
		t.Fatalf("EndSegment: %v", err)
	}

	span, _ := tr.GetActiveSpan(block.Key)
	found := false
	for _, g := range span.MetricGroups {
		for _, m := range g {
			if m.Type == types.MetricTime && m.Source == "rest" {
				if m.Value.(int64) != 2000 {
					t.Errorf("segment duration = %v, want 2000ms", m.Value)
				}
				found = true
			}
		}
	}
	if !found {
		t.Error("expected a recorded Time metric for segment \"rest\"")
	}
}

func TestEndAllSegments(t *testing.T) {
	tr, mc := newTestTracker()
	block := BlockDescriptor{Key: "blk:1", Type: "timer"}
	tr.StartSpan(block, nil)

	tr.StartSegment(block.Key, "work")
	tr.StartSegment(block.Key, "rest")
	mc.Advance(1 * time.Second)

	if err := tr.EndAllSegments(block.Key); err != nil {
		t.Fatalf("EndAllSegments: %v", err)
	}

	span, _ := tr.GetActiveSpan(block.Key)
	var metrics []types.RecordedMetricValue
	for _, g := range span.MetricGroups {
		metrics = append(metrics, g...)
	}
	if len(metrics) != 2 {
		t.Fatalf("recorded metrics = %d, want 2", len(metrics))
	}
}

func TestDebugMetadata(t *testing.T) {
	tr, _ := newTestTracker()
	block := BlockDescriptor{Key: "blk:1", Type: "effort"}
	tr.StartSpan(block, nil)

	if err := tr.AddDebugLog(block.Key, "first"); err != nil {
		t.Fatalf("AddDebugLog: %v", err)
	}
	if err := tr.AddDebugLog(block.Key, "second"); err != nil {
		t.Fatalf("AddDebugLog: %v", err)
	}
	if err := tr.AddDebugTag(block.Key, "source", "fixture"); err != nil {
		t.Fatalf("AddDebugTag: %v", err)
	}

	span, _ := tr.GetActiveSpan(block.Key)
	logs, _ := span.Debug["log"].([]string)
	if len(logs) != 2 {
		t.Fatalf("debug logs = %v, want 2 entries", logs)
	}
	if span.Debug["source"] != "fixture" {
		t.Errorf("debug tag source = %v, want fixture", span.Debug["source"])
	}
}

func TestGetCompletedAndAllSpans(t *testing.T) {
	tr, _ := newTestTracker()

	b1 := BlockDescriptor{Key: "blk:1", Type: "rounds"}
	b2 := BlockDescriptor{Key: "blk:2", Type: "effort"}
	tr.StartSpan(b1, nil)
	tr.StartSpan(b2, nil)
	tr.EndSpan(b1.Key)

	completed := tr.GetCompletedSpans()
	if len(completed) != 1 || completed[0].BlockKey != b1.Key {
		t.Errorf("GetCompletedSpans = %+v, want one span for %s", completed, b1.Key)
	}

	all := tr.GetAllSpans()
	if len(all) != 2 {
		t.Fatalf("GetAllSpans count = %d, want 2", len(all))
	}
}

func TestEncodeDecodeSpanRoundTrip(t *testing.T) {
	tr, mc := newTestTracker()
	block := BlockDescriptor{Key: "blk:1", Label: "AMRAP", Type: "timer"}
	tr.StartSpan(block, nil)
	tr.RecordNumericMetric(block.Key, types.MetricRep, 21, "reps")
	mc.Advance(3 * time.Second)
	if _, err := tr.EndSpan(block.Key); err != nil {
		t.Fatalf("EndSpan: %v", err)
	}

	all := tr.GetAllSpans()
	if len(all) == 0 {
		t.Fatal("expected at least one span to round-trip")
	}

	encoded, err := EncodeSpan(all[0])
	if err != nil {
		t.Fatalf("EncodeSpan: %v", err)
	}
	decoded, err := DecodeSpan(encoded)
	if err != nil {
		t.Fatalf("DecodeSpan: %v", err)
	}
	if decoded.SpanID != all[0].SpanID || decoded.Label != all[0].Label {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, all[0])
	}
}
