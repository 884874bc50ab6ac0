package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/cli/render"
	"github.com/SergeiGolos/wod-wiki-sub004/cli/tui"
	"github.com/SergeiGolos/wod-wiki-sub004/config"
	"github.com/SergeiGolos/wod-wiki-sub004/fixture"
	"github.com/SergeiGolos/wod-wiki-sub004/script"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// InspectCommand returns the inspect command.
// Inspect runs a fixture script to completion the same way run does,
// then walks the tracker's span tree and renders parent/child nesting
// with elapsed times and metric-group counts.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Run a script and inspect its execution span tree",
		ArgsUsage: "<script-file>",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "tick-interval-ms",
				Usage: "Simulated clock tick interval in milliseconds",
				Value: config.DefaultTickIntervalMs,
			},
			&cli.IntFlag{
				Name:  "max-stack-depth",
				Usage: "Maximum block stack depth",
				Value: config.DefaultMaxStackDepth,
			},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("script file required", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read script %q: %v", c.Args().First(), err), 1)
	}

	scr, err := fixture.Parse(string(source))
	if err != nil {
		return cli.Exit(fmt.Sprintf("parse error: %v", err), 1)
	}
	if scr.HasBlockingErrors() {
		return cli.Exit(fmt.Sprintf("script has blocking errors: %+v", scr.Errors), 1)
	}

	maxDepth := c.Int("max-stack-depth")
	if maxDepth <= 0 {
		maxDepth = config.DefaultMaxStackDepth
	}
	tickMs := c.Int("tick-interval-ms")
	if tickMs <= 0 {
		tickMs = config.DefaultTickIntervalMs
	}

	clk := clock.NewManual(time.Now())
	rt := script.New(scr, clk, maxDepth)
	if err := rt.Start(); err != nil {
		return cli.Exit(fmt.Sprintf("failed to start runtime: %v", err), 1)
	}

	if err := driveToCompletion(rt, clk, tickMs, 100000); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	roots := buildSpanTree(rt, clk)

	if c.Bool("tui") {
		return r.RenderTUI("inspect_spans", roots)
	}
	return r.Render(roots)
}

// buildSpanTree assembles the tracker's flat span list into a nested
// tui.SpanNode forest, linked by ParentSpanID. Spans are converted
// bottom-up by a recursive leaf builder so no SpanNode value is copied
// before its own children are attached.
func buildSpanTree(rt *script.Runtime, clk clock.Clock) []tui.SpanNode {
	spans := rt.Tracker.GetAllSpans()

	bySpanID := make(map[types.SpanID]types.ExecutionSpan, len(spans))
	for _, span := range spans {
		bySpanID[span.SpanID] = span
	}

	childrenOf := make(map[types.SpanID][]types.SpanID)
	var rootIDs []types.SpanID
	for _, span := range spans {
		if span.ParentSpanID == nil {
			rootIDs = append(rootIDs, span.SpanID)
			continue
		}
		if _, ok := bySpanID[*span.ParentSpanID]; !ok {
			rootIDs = append(rootIDs, span.SpanID)
			continue
		}
		childrenOf[*span.ParentSpanID] = append(childrenOf[*span.ParentSpanID], span.SpanID)
	}

	var build func(id types.SpanID) tui.SpanNode
	build = func(id types.SpanID) tui.SpanNode {
		span := bySpanID[id]
		end := span.EndTime
		if end.IsZero() {
			end = clk.Now()
		}

		var metrics []string
		for _, group := range span.MetricGroups {
			for _, v := range group {
				metrics = append(metrics, fmt.Sprintf("%s: %v%s", v.Type, v.Value, v.Unit))
			}
		}

		node := tui.SpanNode{
			SpanID:  string(span.SpanID),
			Label:   span.Label,
			Status:  string(span.Status),
			Elapsed: end.Sub(span.StartTime).String(),
			Metrics: metrics,
		}
		for _, childID := range childrenOf[id] {
			node.Children = append(node.Children, build(childID))
		}
		return node
	}

	roots := make([]tui.SpanNode, 0, len(rootIDs))
	for _, id := range rootIDs {
		roots = append(roots, build(id))
	}
	return roots
}
