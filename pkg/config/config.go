// Package config provides the configuration schema for svm.
package config

import (
	"time"

	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/pkg/logger"
)

// CurrentConfigVersion is the latest config schema version.
const CurrentConfigVersion = 1

const (
	// DefaultRequestTimeout bounds a single artifact download.
	DefaultRequestTimeout = 10 * time.Minute

	// DefaultLockTimeout bounds the wait for another installer of the same version.
	DefaultLockTimeout = 30 * time.Second

	// DefaultRetries is how many times a failed manifest fetch is retried.
	DefaultRetries = 2
)

// Config represents the root configuration for svm.
type Config struct {
	// Version is the config schema version. Defaults to 1 when omitted.
	Version int `json:"version,omitempty" koanf:"version" toml:"version,omitempty"`

	// DataDir holds installed compilers and the global version pointer.
	// Default: ~/.svm if it exists, otherwise $XDG_DATA_HOME/svm
	DataDir string `json:"data_dir,omitempty" koanf:"data_dir" toml:"data_dir,omitempty"`

	// Platform overrides host detection.
	Platform *PlatformConfig `json:"platform,omitempty" koanf:"platform" toml:"platform,omitempty"`

	// Install tunes downloads and locking.
	Install *InstallConfig `json:"install,omitempty" koanf:"install" toml:"install,omitempty"`

	// Releases points at the release hosts.
	Releases *ReleasesConfig `json:"releases,omitempty" koanf:"releases" toml:"releases,omitempty"`

	// Log configures the log file.
	Log *LogConfig `json:"log,omitempty" koanf:"log" toml:"log,omitempty"`
}

// PlatformConfig overrides what is detected from the running host.
type PlatformConfig struct {
	// Target is the platform whose artifacts are installed.
	// Default: detected from the host
	Target *platform.Platform `json:"target,omitempty" koanf:"target" toml:"target,omitempty"`

	// NixOS forces the NixOS interpreter patch on or off.
	// Default: detected from /etc/os-release
	NixOS *bool `json:"nixos,omitempty" koanf:"nixos" toml:"nixos,omitempty"`
}

// InstallConfig tunes the installer.
type InstallConfig struct {
	// RequestTimeout bounds a single artifact download.
	// Default: "10m"
	RequestTimeout Duration `json:"request_timeout,omitempty" koanf:"request_timeout" toml:"request_timeout,omitempty"`

	// LockTimeout bounds the wait for a concurrent install of the same version.
	// Default: "30s"
	LockTimeout Duration `json:"lock_timeout,omitempty" koanf:"lock_timeout" toml:"lock_timeout,omitempty"`
}

// ReleasesConfig points at the hosts serving manifests and artifacts.
// Empty values fall back to the public hosts.
type ReleasesConfig struct {
	BaseURL            string `json:"base_url,omitempty"             koanf:"base_url"             toml:"base_url,omitempty"`
	LegacyPrefix       string `json:"legacy_prefix,omitempty"        koanf:"legacy_prefix"        toml:"legacy_prefix,omitempty"`
	LinuxAarch64Prefix string `json:"linux_aarch64_prefix,omitempty" koanf:"linux_aarch64_prefix" toml:"linux_aarch64_prefix,omitempty"`
	MacOSAarch64Prefix string `json:"macos_aarch64_prefix,omitempty" koanf:"macos_aarch64_prefix" toml:"macos_aarch64_prefix,omitempty"`

	// Retries is how many times a failed manifest fetch is retried.
	// Default: 2
	Retries *int `json:"retries,omitempty" koanf:"retries" toml:"retries,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// File is the log file. Default: $XDG_STATE_HOME/svm/svm.log
	File string `json:"file,omitempty" koanf:"file" toml:"file,omitempty"`

	// Debug logs informational messages.
	Debug bool `json:"debug,omitempty" koanf:"debug" toml:"debug,omitempty"`

	// Trace logs everything.
	Trace bool `json:"trace,omitempty" koanf:"trace" toml:"trace,omitempty"`

	// Level is "error", "info" or "debug". The more verbose of Level and
	// the debug/trace switches wins.
	// Default: "error"
	Level string `json:"level,omitempty" jsonschema:"enum=error,enum=info,enum=debug,enum=trace" koanf:"level" toml:"level,omitempty"`
}

// GetPlatform returns the platform config, creating it if it doesn't exist.
func (c *Config) GetPlatform() *PlatformConfig {
	if c.Platform == nil {
		c.Platform = &PlatformConfig{}
	}

	return c.Platform
}

// GetInstall returns the install config, creating it if it doesn't exist.
func (c *Config) GetInstall() *InstallConfig {
	if c.Install == nil {
		c.Install = &InstallConfig{}
	}

	return c.Install
}

// GetReleases returns the releases config, creating it if it doesn't exist.
func (c *Config) GetReleases() *ReleasesConfig {
	if c.Releases == nil {
		c.Releases = &ReleasesConfig{}
	}

	return c.Releases
}

// GetLog returns the log config, creating it if it doesn't exist.
func (c *Config) GetLog() *LogConfig {
	if c.Log == nil {
		c.Log = &LogConfig{}
	}

	return c.Log
}

// ResolveLevel combines Level with the debug and trace switches.
func (l *LogConfig) ResolveLevel() (logger.Level, error) {
	if l == nil {
		return logger.LevelError, nil
	}

	level := logger.LevelFromFlags(l.Debug, l.Trace)
	if l.Level == "" {
		return level, nil
	}

	named, err := logger.ParseLevel(l.Level)
	if err != nil {
		return level, err
	}

	return logger.MoreVerbose(level, named), nil
}

// ResolvePlatform returns the configured target or the host platform.
func (p *PlatformConfig) ResolvePlatform() platform.Platform {
	if p == nil || p.Target == nil {
		return platform.Current()
	}

	return *p.Target
}

// GetRequestTimeout returns the download timeout, defaulting to DefaultRequestTimeout.
func (i *InstallConfig) GetRequestTimeout() time.Duration {
	if i == nil || i.RequestTimeout == 0 {
		return DefaultRequestTimeout
	}

	return i.RequestTimeout.ToDuration()
}

// GetLockTimeout returns the lock wait, defaulting to DefaultLockTimeout.
func (i *InstallConfig) GetLockTimeout() time.Duration {
	if i == nil || i.LockTimeout == 0 {
		return DefaultLockTimeout
	}

	return i.LockTimeout.ToDuration()
}

// GetRetries returns the manifest retry bound, defaulting to DefaultRetries.
func (r *ReleasesConfig) GetRetries() int {
	if r == nil || r.Retries == nil {
		return DefaultRetries
	}

	return *r.Retries
}

// Endpoints returns the release hosts with defaults for unset values.
func (r *ReleasesConfig) Endpoints() releases.Endpoints {
	e := releases.DefaultEndpoints()
	if r == nil {
		return e
	}

	for _, o := range []struct {
		dst *string
		src string
	}{
		{&e.BaseURL, r.BaseURL},
		{&e.LegacyPrefix, r.LegacyPrefix},
		{&e.LinuxAarch64Prefix, r.LinuxAarch64Prefix},
		{&e.MacOSAarch64Prefix, r.MacOSAarch64Prefix},
	} {
		if o.src != "" {
			*o.dst = o.src
		}
	}

	return e
}
