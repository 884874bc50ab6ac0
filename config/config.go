// Package config loads the runtime's YAML configuration file. Adapted
// from the teacher's cli/config/config.go + envexpand.go: the same
// two-step read-then-expand-then-decode shape, retargeted from quarry's
// run/proxy/adapter knobs to the core runtime's own tunables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults match the numbers named in spec §4.9-§4.11.
const (
	DefaultMaxStackDepth      = 10
	DefaultTickIntervalMs     = 100
	DefaultRunawayActionLimit = 100
	DefaultLogLevel           = "info"
)

// Runtime holds the script runtime's tunables, loaded from a YAML file.
type Runtime struct {
	MaxStackDepth      int      `yaml:"max_stack_depth"`
	TickIntervalMs      int     `yaml:"tick_interval_ms"`
	RunawayActionLimit int      `yaml:"runaway_action_limit"`
	LogLevel           string   `yaml:"log_level"`
	Webhook            Webhook  `yaml:"webhook"`
	MetricSink         MetricSink `yaml:"metric_sink"`
}

// Webhook configures the dispatch.WebhookSink downstream adapter.
type Webhook struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// MetricSink configures the metricsink.Sink S3/parquet downstream adapter.
type MetricSink struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Defaults returns a Runtime populated with the spec's default numbers.
func Defaults() Runtime {
	return Runtime{
		MaxStackDepth:      DefaultMaxStackDepth,
		TickIntervalMs:      DefaultTickIntervalMs,
		RunawayActionLimit: DefaultRunawayActionLimit,
		LogLevel:           DefaultLogLevel,
	}
}

// Load reads a YAML config file, expands ${VAR}/${VAR:-default}
// environment references, and unmarshals into a Runtime seeded with
// Defaults(). Unknown keys are rejected to catch typos early.
func Load(path string) (*Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	return &cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} patterns in input with
// their corresponding environment variable values. An unset variable
// without a default expands to the empty string rather than erroring;
// required values fail validation downstream instead.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}

		varName := groups[1]
		value, ok := os.LookupEnv(varName)
		if ok && value != "" {
			return value
		}

		if len(groups) >= 3 && groups[2] != "" {
			return groups[2]
		}

		return ""
	})
}
