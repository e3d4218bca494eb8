// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used when fetching remote contexts.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "ldcheck/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LoaderConfig holds settings for resolving context references.
type LoaderConfig struct {
	HTTPConfig `yaml:",inline"`

	// Offline refuses every network fetch. Bundled contexts, local files and
	// cached remote contexts still resolve.
	Offline bool `json:"offline" yaml:"offline"`

	// RequestsPerSecond limits remote fetches per host (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the per-host token bucket size (default 4).
	Burst int `json:"burst" yaml:"burst"`

	// MaxRetries is the number of retries on HTTP 429/503 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxBytes caps the size of a remote context body (default 8 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`

	// CacheTTL is how long a fetched remote context is reused (default 24h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// SecretsDir holds per-host bearer tokens (default ".secrets/").
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir"`
}

// ReportFormat selects how reports are rendered.
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatYAML ReportFormat = "yaml"
)

// CheckConfig holds settings for the expansion checker.
type CheckConfig struct {
	// Safe escalates any dropped property to a run-level failure.
	Safe bool `json:"safe" yaml:"safe"`

	// Lint emits each warning event as it is found.
	Lint bool `json:"lint" yaml:"lint"`

	// Contexts are extra context sources appended after each document's own
	// @context, in order.
	Contexts []string `json:"contexts,omitempty" yaml:"contexts,omitempty"`

	// Workers bounds the number of documents checked concurrently (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// Format selects report rendering: json or yaml.
	Format ReportFormat `json:"format" yaml:"format"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Dir is the directory holding ldcheck.db (default ".ldcheck").
	Dir string `json:"dir" yaml:"dir"`

	// History records every expand run when true.
	History bool `json:"history" yaml:"history"`
}

// WatchConfig holds settings for watch mode.
type WatchConfig struct {
	// Debounce is how long to wait for more changes before re-checking.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// MetricsConfig holds settings for metrics output.
type MetricsConfig struct {
	// Textfile is the path of a node-exporter textfile written after a run.
	// Empty disables metrics output.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// Config groups every configuration section.
type Config struct {
	Check   CheckConfig   `json:"check" yaml:"check"`
	Loader  LoaderConfig  `json:"loader" yaml:"loader"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Watch   WatchConfig   `json:"watch" yaml:"watch"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		Check: CheckConfig{
			Workers: 4,
			Format:  FormatJSON,
		},
		Loader: LoaderConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "ldcheck/0.1",
			},
			RequestsPerSecond: 2,
			Burst:             4,
			MaxRetries:        5,
			MaxBytes:          8 << 20,
			CacheTTL:          24 * time.Hour,
			SecretsDir:        ".secrets/",
		},
		Store: StoreConfig{
			Dir:     ".ldcheck",
			History: true,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}
