package logger

import (
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

// Level is how much svm writes to its log file. Lower is more verbose.
type Level int

const (
	// LevelDebug also records lock waits and HTTP requests.
	LevelDebug Level = iota

	// LevelInfo records what each command changed.
	LevelInfo

	// LevelError records failures only.
	LevelError
)

// ErrUnknownLevel is returned by ParseLevel for unrecognized names.
var ErrUnknownLevel = errors.New("unknown log level")

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ToSlogLevel converts Level to slog.Level.
func (l Level) ToSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel reads a level name as written in the config file. "trace" is
// an alias for debug, matching the --trace flag.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "error":
		return LevelError, nil
	default:
		return LevelError, errors.Wrapf(ErrUnknownLevel, "%q (want error, info or debug)", name)
	}
}

// LevelFromFlags determines the log level from debug and trace flags.
// Trace enables everything, debug enables info, the default records errors only.
func LevelFromFlags(debug, trace bool) Level {
	switch {
	case trace:
		return LevelDebug
	case debug:
		return LevelInfo
	default:
		return LevelError
	}
}

// MoreVerbose returns whichever of a and b logs more.
func MoreVerbose(a, b Level) Level {
	return min(a, b)
}
