package tui

import (
	"testing"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{"inspect_spans", true},
		{"stats_runtime", true},

		{"run", false},
		{"version", false},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			got := IsTUISupported(tt.viewType)
			if got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestSupportedTUIViews(t *testing.T) {
	views := SupportedTUIViews()

	if len(views) != 2 {
		t.Errorf("SupportedTUIViews() returned %d views, expected 2", len(views))
	}

	for _, v := range views {
		if !IsTUISupported(v) {
			t.Errorf("SupportedTUIViews() returned %q but IsTUISupported returns false", v)
		}
	}
}

func TestRun_UnsupportedViewType(t *testing.T) {
	err := Run("list_runs", nil)
	if err == nil {
		t.Error("Expected error for unsupported view type")
	}
}

func TestRenderInspectStaticRendersSpanTree(t *testing.T) {
	data := []SpanNode{
		{
			SpanID:  "span-1",
			Label:   "AMRAP",
			Status:  "Completed",
			Elapsed: "12m0s",
			Metrics: []string{"rounds: 5"},
			Children: []SpanNode{
				{SpanID: "span-2", Label: "Push-ups", Status: "Completed", Elapsed: "0s"},
			},
		},
	}

	out := RenderInspectStatic("inspect_spans", data)
	if out == "" {
		t.Fatal("expected non-empty render output")
	}
}

func TestRenderInspectStaticRejectsWrongType(t *testing.T) {
	out := RenderInspectStatic("inspect_spans", "not a span tree")
	if out == "" {
		t.Fatal("expected an error message, got empty output")
	}
}

func TestRenderStatsStaticRendersCounters(t *testing.T) {
	data := Stats{
		StackDepth:          3,
		ActiveBlocks:        2,
		EventsDispatched:    42,
		HandlersRegistered:  7,
		MemoryRefsLive:      5,
		ActionsDrainedTotal: 100,
	}

	out := RenderStatsStatic("stats_runtime", data)
	if out == "" {
		t.Fatal("expected non-empty render output")
	}
}

func TestRenderStatsStaticRejectsWrongType(t *testing.T) {
	out := RenderStatsStatic("stats_runtime", 42)
	if out == "" {
		t.Fatal("expected an error message, got empty output")
	}
}
