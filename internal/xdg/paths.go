// Package xdg resolves the directories svm reads and writes.
// Installed compilers live in DataDir; the config file and log follow the
// XDG Base Directory conventions.
package xdg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	appName        = "svm"
	configFileName = "config.toml"
	logFileName    = "svm.log"
	crashDirName   = "crashes"

	// EnvLogFile overrides the log file location.
	EnvLogFile = "SVM_LOG_FILE"
)

// ErrInvalidTilde is returned by ExpandPath for "~user" style paths.
var ErrInvalidTilde = errors.New("paths starting with ~ must be either ~ or ~/subdir")

func homeOr(fallback string, elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = fallback
	}

	return filepath.Join(append([]string{home}, elem...)...)
}

func envOr(key string, fallback func() string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback()
}

// ConfigHome returns $XDG_CONFIG_HOME or ~/.config.
func ConfigHome() string {
	return envOr("XDG_CONFIG_HOME", func() string { return homeOr("~", ".config") })
}

// DataHome returns $XDG_DATA_HOME or ~/.local/share.
func DataHome() string {
	return envOr("XDG_DATA_HOME", func() string { return homeOr("~", ".local", "share") })
}

// StateHome returns $XDG_STATE_HOME or ~/.local/state.
func StateHome() string {
	return envOr("XDG_STATE_HOME", func() string { return homeOr("~", ".local", "state") })
}

// LegacyDir returns ~/.svm, the data directory used before XDG support.
func LegacyDir() string {
	return homeOr("~", "."+appName)
}

// ConfigDir returns ConfigHome()/svm.
func ConfigDir() string { return DefaultResolver().ConfigDir() }

// GlobalConfigFile returns ConfigDir()/config.toml.
func GlobalConfigFile() string { return DefaultResolver().GlobalConfigFile() }

// DataDir returns ~/.svm when it exists and DataHome()/svm otherwise.
func DataDir() string { return DefaultResolver().DataDir() }

// LogFile returns $SVM_LOG_FILE or StateHome()/svm/svm.log.
func LogFile() string { return DefaultResolver().LogFile() }

// CrashDir returns StateHome()/svm/crashes.
func CrashDir() string { return DefaultResolver().CrashDir() }

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	if path != "~" && !strings.HasPrefix(path, "~/") {
		return "", errors.Wrapf(ErrInvalidTilde, "got %q", path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}

	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}

// ExpandPathSilent resolves ~ prefix, returning the original path on error.
func ExpandPathSilent(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}

	return expanded
}
