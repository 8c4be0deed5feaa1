package xdg

import (
	"os"
	"path/filepath"
)

// PathResolver resolves the directories svm uses.
// Use ResolverFor() when paths should be relative to a specific home directory.
type PathResolver interface {
	ConfigDir() string
	GlobalConfigFile() string
	DataDir() string
	LogFile() string
	CrashDir() string
}

// Layout is a set of base directories with svm's files placed under them.
// LegacyDir wins over DataHome for installed compilers when it exists.
type Layout struct {
	ConfigHome string
	DataHome   string
	StateHome  string
	LegacyDir  string

	// LogOverride replaces the derived log file when set.
	LogOverride string
}

// DefaultResolver returns the layout described by the XDG variables and
// $SVM_LOG_FILE.
func DefaultResolver() PathResolver {
	return Layout{
		ConfigHome:  ConfigHome(),
		DataHome:    DataHome(),
		StateHome:   StateHome(),
		LegacyDir:   LegacyDir(),
		LogOverride: os.Getenv(EnvLogFile),
	}
}

// ResolverFor returns a PathResolver rooted at homeDir, ignoring the
// environment.
func ResolverFor(homeDir string) PathResolver {
	return Layout{
		ConfigHome: filepath.Join(homeDir, ".config"),
		DataHome:   filepath.Join(homeDir, ".local", "share"),
		StateHome:  filepath.Join(homeDir, ".local", "state"),
		LegacyDir:  filepath.Join(homeDir, "."+appName),
	}
}

func (l Layout) ConfigDir() string {
	return filepath.Join(l.ConfigHome, appName)
}

func (l Layout) GlobalConfigFile() string {
	return filepath.Join(l.ConfigDir(), configFileName)
}

// DataDir returns LegacyDir when it is an existing directory, so
// installations made before XDG support keep working.
func (l Layout) DataDir() string {
	if l.LegacyDir != "" && dirExists(l.LegacyDir) {
		return l.LegacyDir
	}

	return filepath.Join(l.DataHome, appName)
}

func (l Layout) StateDir() string {
	return filepath.Join(l.StateHome, appName)
}

func (l Layout) LogFile() string {
	if l.LogOverride != "" {
		return l.LogOverride
	}

	return filepath.Join(l.StateDir(), logFileName)
}

// CrashDir is where panic dumps are written.
func (l Layout) CrashDir() string {
	return filepath.Join(l.StateDir(), crashDirName)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}
