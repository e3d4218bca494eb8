// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/ldcheck/pkg/types"
)

// setDefaults registers DefaultConfig with viper so that config files,
// LDCHECK_* variables and changed flags override it key by key.
func setDefaults() {
	d := types.DefaultConfig()

	viper.SetDefault("log.level", "info")

	viper.SetDefault("check.safe", d.Check.Safe)
	viper.SetDefault("check.lint", d.Check.Lint)
	viper.SetDefault("check.contexts", d.Check.Contexts)
	viper.SetDefault("check.workers", d.Check.Workers)
	viper.SetDefault("check.format", string(d.Check.Format))

	viper.SetDefault("loader.timeout", d.Loader.Timeout)
	viper.SetDefault("loader.user_agent", d.Loader.UserAgent)
	viper.SetDefault("loader.offline", d.Loader.Offline)
	viper.SetDefault("loader.requests_per_second", d.Loader.RequestsPerSecond)
	viper.SetDefault("loader.burst", d.Loader.Burst)
	viper.SetDefault("loader.max_retries", d.Loader.MaxRetries)
	viper.SetDefault("loader.max_bytes", d.Loader.MaxBytes)
	viper.SetDefault("loader.cache_ttl", d.Loader.CacheTTL)
	viper.SetDefault("loader.secrets_dir", d.Loader.SecretsDir)

	viper.SetDefault("store.dir", d.Store.Dir)
	viper.SetDefault("store.history", d.Store.History)

	viper.SetDefault("watch.debounce", d.Watch.Debounce)

	viper.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// loadConfig reads the merged configuration from viper.
func loadConfig() types.Config {
	return types.Config{
		Check: types.CheckConfig{
			Safe:     viper.GetBool("check.safe"),
			Lint:     viper.GetBool("check.lint"),
			Contexts: viper.GetStringSlice("check.contexts"),
			Workers:  viper.GetInt("check.workers"),
			Format:   types.ReportFormat(viper.GetString("check.format")),
		},
		Loader: types.LoaderConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("loader.timeout"),
				UserAgent: viper.GetString("loader.user_agent"),
			},
			Offline:           viper.GetBool("loader.offline"),
			RequestsPerSecond: viper.GetFloat64("loader.requests_per_second"),
			Burst:             viper.GetInt("loader.burst"),
			MaxRetries:        viper.GetInt("loader.max_retries"),
			MaxBytes:          viper.GetInt64("loader.max_bytes"),
			CacheTTL:          viper.GetDuration("loader.cache_ttl"),
			SecretsDir:        viper.GetString("loader.secrets_dir"),
		},
		Store: types.StoreConfig{
			Dir:     viper.GetString("store.dir"),
			History: viper.GetBool("store.history"),
		},
		Watch: types.WatchConfig{
			Debounce: viper.GetDuration("watch.debounce"),
		},
		Metrics: types.MetricsConfig{
			Textfile: viper.GetString("metrics.textfile"),
		},
	}
}
