// Package config provides internal configuration loading and processing.
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"

	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/pkg/config"
)

// CustomDecoderConfig returns a mapstructure decoder config with custom type hooks
// for handling Duration and Platform types.
func CustomDecoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToPlatformHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           result,
	}
}

// stringToDurationHookFunc returns a decode hook for converting strings to config.Duration.
//
//nolint:ireturn // required by mapstructure.DecodeHookFunc interface
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		_ reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if t != reflect.TypeFor[config.Duration]() {
			return data, nil
		}

		// Numbers are seconds. Negative values pass through to Validate.
		switch v := data.(type) {
		case string:
			return config.ParseDuration(strings.TrimSpace(v))

		case int64:
			return config.Seconds(v), nil

		case int:
			return config.Seconds(int64(v)), nil

		case float64:
			return config.Duration(time.Duration(v * float64(time.Second))), nil

		default:
			return data, nil
		}
	}
}

// stringToPlatformHookFunc returns a decode hook for converting release
// directory names such as "linux-amd64", or GOOS/GOARCH pairs such as
// "darwin/arm64", to platform.Platform.
//
//nolint:ireturn // required by mapstructure.DecodeHookFunc interface
func stringToPlatformHookFunc() mapstructure.DecodeHookFunc {
	return func(
		_ reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if t != reflect.TypeFor[platform.Platform]() {
			return data, nil
		}

		if v, ok := data.(string); ok {
			return parsePlatform(v)
		}

		return data, nil
	}
}

func parsePlatform(s string) (platform.Platform, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	goos, goarch, isGo := strings.Cut(s, "/")
	if !isGo {
		return platform.Parse(s)
	}

	p := platform.FromGo(goos, goarch)
	if !p.IsSupported() {
		return platform.Unsupported, errors.Wrapf(platform.ErrUnknownPlatform, "%q", s)
	}

	return p, nil
}
