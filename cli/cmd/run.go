package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/SergeiGolos/wod-wiki-sub004/clock"
	"github.com/SergeiGolos/wod-wiki-sub004/cli/render"
	"github.com/SergeiGolos/wod-wiki-sub004/config"
	"github.com/SergeiGolos/wod-wiki-sub004/dispatch"
	"github.com/SergeiGolos/wod-wiki-sub004/fixture"
	"github.com/SergeiGolos/wod-wiki-sub004/log"
	"github.com/SergeiGolos/wod-wiki-sub004/metricsink"
	"github.com/SergeiGolos/wod-wiki-sub004/script"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// RunResult is the response for the run command: every span the run
// produced, in GetAllSpans order (span ids compared as strings, so
// "span:10" comes before "span:2"), plus whether the script reached
// completion.
type RunResult struct {
	Complete bool               `json:"complete"`
	Spans    []SpanSummary      `json:"spans"`
	Errors   []types.ParseError `json:"errors,omitempty"`
}

// SpanSummary is one row of run output: a completed or still-active
// execution span, flattened for rendering.
type SpanSummary struct {
	SpanID     string   `json:"spanId"`
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Status     string   `json:"status"`
	ElapsedMs  int64    `json:"elapsedMs"`
	MetricRows int      `json:"metricRows"`
}

// RunCommand returns the run command.
// Run parses a fixture script, drives the Script Runtime to completion
// against a simulated clock advanced in fixed ticks, and renders the
// resulting span summaries to stdout.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a fixture script to completion",
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
			&cli.IntFlag{
				Name:  "max-ticks",
				Usage: "Safety ceiling on simulated ticks before giving up (0 = no extra ceiling beyond the runaway-action guard)",
				Value: 100000,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a wodrt.yaml config file (enables the webhook/metric sinks)",
			},
		),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("script file required", 1)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for run command", 1)
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
		return r.Render(RunResult{Complete: false, Errors: scr.Errors})
	}

	maxDepth := c.Int("max-stack-depth")
	if maxDepth <= 0 {
		maxDepth = config.DefaultMaxStackDepth
	}
	tickMs := c.Int("tick-interval-ms")
	if tickMs <= 0 {
		tickMs = config.DefaultTickIntervalMs
	}
	maxTicks := c.Int("max-ticks")

	clk := clock.NewManual(time.Now())
	rt := script.New(scr, clk, maxDepth)

	if cfgPath := c.String("config"); cfgPath != "" {
		if err := wireSinks(rt, cfgPath); err != nil {
			return cli.Exit(fmt.Sprintf("failed to wire sinks: %v", err), 1)
		}
	}

	if err := rt.Start(); err != nil {
		return cli.Exit(fmt.Sprintf("failed to start runtime: %v", err), 1)
	}

	if err := driveToCompletion(rt, clk, tickMs, maxTicks); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	result := RunResult{
		Complete: true,
		Spans:    summarizeSpans(rt, clk),
	}
	return r.Render(result)
}

// driveToCompletion advances the simulated clock and dispatches both
// clock:tick (for timer-governed blocks) and next (for leaf/idle blocks
// awaiting an explicit advance) each iteration, until the runtime
// reports complete or maxTicks is exhausted. Dispatching an event a
// block's completion behavior doesn't trigger on is a no-op, so driving
// both unconditionally is safe regardless of which blocks are active.
func driveToCompletion(rt *script.Runtime, clk *clock.Manual, tickMs, maxTicks int) error {
	for i := 0; !rt.IsComplete(); i++ {
		if maxTicks > 0 && i >= maxTicks {
			return fmt.Errorf("run did not complete within %d ticks", maxTicks)
		}
		clk.Advance(time.Duration(tickMs) * time.Millisecond)
		if err := rt.Handle(types.Event{Name: types.EventClockTick}); err != nil {
			return fmt.Errorf("runtime error: %w", err)
		}
		if rt.IsComplete() {
			return nil
		}
		if err := rt.Handle(types.Event{Name: types.EventNext}); err != nil {
			return fmt.Errorf("runtime error: %w", err)
		}
	}
	return nil
}

func summarizeSpans(rt *script.Runtime, clk clock.Clock) []SpanSummary {
	spans := rt.Tracker.GetAllSpans()
	out := make([]SpanSummary, 0, len(spans))
	for _, span := range spans {
		end := span.EndTime
		if end.IsZero() {
			end = clk.Now()
		}
		metricRows := 0
		for _, group := range span.MetricGroups {
			metricRows += len(group)
		}
		out = append(out, SpanSummary{
			SpanID:     string(span.SpanID),
			Label:      span.Label,
			Type:       span.Type,
			Status:     string(span.Status),
			ElapsedMs:  end.Sub(span.StartTime).Milliseconds(),
			MetricRows: metricRows,
		})
	}
	return out
}

// wireSinks loads a wodrt.yaml config and attaches the configured
// downstream sinks (webhook, S3/parquet) to the runtime as a combined
// Sink, per SPEC_FULL §11's dispatch/metricsink wiring.
func wireSinks(rt *script.Runtime, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := log.NewLogger(log.RunContext{RunID: fmt.Sprintf("run:%d", time.Now().UnixNano())}).Sugar()

	var sinks []func(types.Action)

	if cfg.Webhook.URL != "" {
		retries := dispatch.DefaultRetries
		if cfg.Webhook.Retries != nil {
			retries = *cfg.Webhook.Retries
		}
		webhook, err := dispatch.New(dispatch.Config{
			URL:     cfg.Webhook.URL,
			Headers: cfg.Webhook.Headers,
			Timeout: cfg.Webhook.Timeout.Duration,
			Retries: retries,
		}, logger)
		if err != nil {
			return fmt.Errorf("webhook sink: %w", err)
		}
		sinks = append(sinks, webhook.Handle)
	}

	if cfg.MetricSink.Bucket != "" {
		sink, err := metricsink.New(metricsink.Config{
			Bucket: cfg.MetricSink.Bucket,
			Prefix: cfg.MetricSink.Prefix,
			Region: cfg.MetricSink.Region,
			RunID:  fmt.Sprintf("run-%d", time.Now().UnixNano()),
		}, logger)
		if err != nil {
			return fmt.Errorf("metric sink: %w", err)
		}
		sinks = append(sinks, sink.Handle)
	}

	if len(sinks) == 0 {
		return nil
	}
	rt.Sink = func(action types.Action) {
		for _, s := range sinks {
			s(action)
		}
	}
	return nil
}
