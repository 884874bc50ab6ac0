package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wodrt.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	yamlSrc := `max_stack_depth: 25
tick_interval_ms: 50
runaway_action_limit: 200
log_level: debug

webhook:
  url: https://hooks.example.com/wodrt
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3

metric_sink:
  bucket: wodrt-metrics
  prefix: runs/
  region: us-east-1
`
	path := writeTemp(t, yamlSrc)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MaxStackDepth != 25 {
		t.Errorf("MaxStackDepth = %d, want 25", cfg.MaxStackDepth)
	}
	if cfg.TickIntervalMs != 50 {
		t.Errorf("TickIntervalMs = %d, want 50", cfg.TickIntervalMs)
	}
	if cfg.RunawayActionLimit != 200 {
		t.Errorf("RunawayActionLimit = %d, want 200", cfg.RunawayActionLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/wodrt" {
		t.Errorf("Webhook.URL = %q", cfg.Webhook.URL)
	}
	if cfg.Webhook.Timeout.Duration != 10*time.Second {
		t.Errorf("Webhook.Timeout = %v, want 10s", cfg.Webhook.Timeout.Duration)
	}
	if cfg.Webhook.Retries == nil || *cfg.Webhook.Retries != 3 {
		t.Errorf("Webhook.Retries = %v, want 3", cfg.Webhook.Retries)
	}
	if cfg.MetricSink.Bucket != "wodrt-metrics" {
		t.Errorf("MetricSink.Bucket = %q", cfg.MetricSink.Bucket)
	}
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeTemp(t, "log_level: warn\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MaxStackDepth != DefaultMaxStackDepth {
		t.Errorf("MaxStackDepth = %d, want default %d", cfg.MaxStackDepth, DefaultMaxStackDepth)
	}
	if cfg.TickIntervalMs != DefaultTickIntervalMs {
		t.Errorf("TickIntervalMs = %d, want default %d", cfg.TickIntervalMs, DefaultTickIntervalMs)
	}
	if cfg.RunawayActionLimit != DefaultRunawayActionLimit {
		t.Errorf("RunawayActionLimit = %d, want default %d", cfg.RunawayActionLimit, DefaultRunawayActionLimit)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (explicit value should override default)", cfg.LogLevel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTemp(t, "not_a_real_field: 1\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject an unknown YAML key")
	}
}

func TestLoadExpandsEnvVarsBeforeDecoding(t *testing.T) {
	t.Setenv("WODRT_WEBHOOK_URL", "https://hooks.example.com/from-env")
	path := writeTemp(t, "webhook:\n  url: ${WODRT_WEBHOOK_URL}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/from-env" {
		t.Errorf("Webhook.URL = %q, want value expanded from WODRT_WEBHOOK_URL", cfg.Webhook.URL)
	}
}

func TestExpandEnvSetVar(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")
	if got, want := ExpandEnv("value: ${TEST_VAR}"), "value: hello"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnvUnsetVar(t *testing.T) {
	if got, want := ExpandEnv("value: ${UNSET_VAR_12345}"), "value: "; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnvDefaultUsedWhenUnset(t *testing.T) {
	if got, want := ExpandEnv("value: ${UNSET_VAR_12345:-fallback}"), "value: fallback"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnvDefaultIgnoredWhenSet(t *testing.T) {
	t.Setenv("TEST_VAR", "real")
	if got, want := ExpandEnv("value: ${TEST_VAR:-fallback}"), "value: real"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnvDollarWithoutBracesUntouched(t *testing.T) {
	t.Setenv("SOME_VAR", "value")
	got := ExpandEnv("path: $SOME_VAR/suffix")
	want := "path: $SOME_VAR/suffix"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnvDefaultWithSpecialChars(t *testing.T) {
	got := ExpandEnv("url: ${UNSET_VAR_99999:-http://localhost:8080/path}")
	want := "url: http://localhost:8080/path"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
