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
)

// StatsCommand returns the stats command.
// Stats runs a fixture script to completion and renders the runtime's
// memory/eventbus/stack counters, mirroring the teacher's
// metrics.Collector.Snapshot() nil-safe-counter pattern.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Run a script and report runtime counters",
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
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
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

	stats := rt.Stats()
	out := tui.Stats{
		StackDepth:          stats.StackDepth,
		ActiveBlocks:        stats.ActiveBlocks,
		EventsDispatched:    stats.EventsDispatched,
		HandlersRegistered:  stats.HandlersRegistered,
		MemoryRefsLive:      stats.MemoryRefsLive,
		ActionsDrainedTotal: stats.ActionsDrainedTotal,
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_runtime", out)
	}
	return r.Render(out)
}
