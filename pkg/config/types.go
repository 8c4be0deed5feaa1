package config

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// ErrNegativeDuration is returned when a negative duration is provided.
var ErrNegativeDuration = errors.New("duration must be non-negative")

// Duration is a timeout in the config file. It is written as a Go duration
// string; a bare integer is read as seconds.
type Duration time.Duration

// ParseDuration parses a Go duration ("30s", "10m") or whole seconds ("30").
// Negative values parse; Validate rejects them.
func ParseDuration(s string) (Duration, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Seconds(secs), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", s)
	}

	return Duration(d), nil
}

// Seconds returns n seconds as a Duration.
func Seconds(n int64) Duration {
	return Duration(time.Duration(n) * time.Second)
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}

	if parsed < 0 {
		return errors.Wrapf(ErrNegativeDuration, "got %s", parsed)
	}

	*d = parsed

	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML serialization.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ToDuration converts Duration to time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// JSONSchema describes both accepted spellings.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{
				Type:    "string",
				Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
			},
			{
				Type:    "integer",
				Minimum: "0",
			},
		},
		Description: "Go duration string, or whole seconds",
		Examples:    []any{"30s", "10m", 45},
	}
}
