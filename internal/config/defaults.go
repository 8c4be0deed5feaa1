package config

import (
	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/internal/xdg"
	"github.com/smykla-skalski/svm/pkg/config"
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *config.Config {
	return DefaultConfigFor(xdg.DefaultResolver())
}

// DefaultConfigFor returns the defaults with directories taken from paths.
func DefaultConfigFor(paths xdg.PathResolver) *config.Config {
	retries := config.DefaultRetries
	endpoints := releases.DefaultEndpoints()

	return &config.Config{
		Version: config.CurrentConfigVersion,
		DataDir: paths.DataDir(),
		Install: &config.InstallConfig{
			RequestTimeout: config.Duration(config.DefaultRequestTimeout),
			LockTimeout:    config.Duration(config.DefaultLockTimeout),
		},
		Releases: &config.ReleasesConfig{
			BaseURL:            endpoints.BaseURL,
			LegacyPrefix:       endpoints.LegacyPrefix,
			LinuxAarch64Prefix: endpoints.LinuxAarch64Prefix,
			MacOSAarch64Prefix: endpoints.MacOSAarch64Prefix,
			Retries:            &retries,
		},
		Log: &config.LogConfig{
			File: paths.LogFile(),
		},
	}
}

// defaultsToMap converts the defaults to a map for koanf loading.
func defaultsToMap(paths xdg.PathResolver) map[string]any {
	endpoints := releases.DefaultEndpoints()

	return map[string]any{
		"version":  config.CurrentConfigVersion,
		"data_dir": paths.DataDir(),
		"install": map[string]any{
			"request_timeout": config.DefaultRequestTimeout.String(),
			"lock_timeout":    config.DefaultLockTimeout.String(),
		},
		"releases": map[string]any{
			"base_url":             endpoints.BaseURL,
			"legacy_prefix":        endpoints.LegacyPrefix,
			"linux_aarch64_prefix": endpoints.LinuxAarch64Prefix,
			"macos_aarch64_prefix": endpoints.MacOSAarch64Prefix,
			"retries":              config.DefaultRetries,
		},
		"log": map[string]any{
			"file":  paths.LogFile(),
			"debug": false,
			"trace": false,
		},
	}
}
