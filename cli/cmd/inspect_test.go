package cmd

import (
	"bytes"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestInspectCommandMissingArgReturnsError(t *testing.T) {
	app := runApp(InspectCommand())
	err := app.Run([]string{"wodrt", "inspect"})
	if err == nil {
		t.Fatal("expected an error when no script file is given")
	}
}

func TestInspectCommandMissingFileReturnsError(t *testing.T) {
	app := runApp(InspectCommand())
	err := app.Run([]string{"wodrt", "inspect", "/nonexistent/script.txt"})
	if err == nil {
		t.Fatal("expected an error for a missing script file")
	}
}

func TestInspectCommandReportsBlockingScriptErrors(t *testing.T) {
	path := writeScript(t, "Timer:10s\nTimer:20s")
	app := runApp(InspectCommand())

	err := app.Run([]string{"wodrt", "inspect", "--format", "json", path})
	if err == nil {
		t.Fatal("expected an error for a script with blocking errors")
	}
}

func TestInspectCommandRendersSpanTree(t *testing.T) {
	path := writeScript(t, `Effort:"Push-ups" Rep:10`)
	app := runApp(InspectCommand())

	var cliErr error
	out := captureStdout(t, func() {
		cliErr = app.Run([]string{"wodrt", "inspect", "--format", "json", path})
	})
	if cliErr != nil {
		t.Fatalf("Run: %v", cliErr)
	}

	if !bytes.Contains([]byte(out), []byte(`"label"`)) {
		t.Errorf("output = %q, want a rendered span tree with a label field", out)
	}
}

func TestInspectCommandAcceptsTUIFlag(t *testing.T) {
	app := runApp(InspectCommand())
	flags := app.Commands[0].VisibleFlags()

	found := false
	for _, f := range flags {
		if f.Names()[0] == "tui" {
			found = true
		}
	}
	if !found {
		t.Error("expected inspect command to accept --tui")
	}

	var found2 bool
	for _, f := range app.Commands[0].Flags {
		if bf, ok := f.(*cli.BoolFlag); ok && bf.Name == "tui" {
			found2 = true
		}
	}
	if !found2 {
		t.Error("expected inspect command flags to include the tui bool flag")
	}
}
