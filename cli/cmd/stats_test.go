package cmd

import (
	"bytes"
	"testing"
)

func TestStatsCommandMissingArgReturnsError(t *testing.T) {
	app := runApp(StatsCommand())
	err := app.Run([]string{"wodrt", "stats"})
	if err == nil {
		t.Fatal("expected an error when no script file is given")
	}
}

func TestStatsCommandMissingFileReturnsError(t *testing.T) {
	app := runApp(StatsCommand())
	err := app.Run([]string{"wodrt", "stats", "/nonexistent/script.txt"})
	if err == nil {
		t.Fatal("expected an error for a missing script file")
	}
}

func TestStatsCommandReportsBlockingScriptErrors(t *testing.T) {
	path := writeScript(t, "Timer:10s\nTimer:20s")
	app := runApp(StatsCommand())

	err := app.Run([]string{"wodrt", "stats", "--format", "json", path})
	if err == nil {
		t.Fatal("expected an error for a script with blocking errors")
	}
}

func TestStatsCommandRendersCounters(t *testing.T) {
	path := writeScript(t, `Effort:"Push-ups" Rep:10`)
	app := runApp(StatsCommand())

	var cliErr error
	out := captureStdout(t, func() {
		cliErr = app.Run([]string{"wodrt", "stats", "--format", "json", path})
	})
	if cliErr != nil {
		t.Fatalf("Run: %v", cliErr)
	}

	if !bytes.Contains([]byte(out), []byte(`"eventsDispatched"`)) && !bytes.Contains([]byte(out), []byte(`"EventsDispatched"`)) {
		t.Errorf("output = %q, want a rendered stats object with an events-dispatched counter", out)
	}
}
