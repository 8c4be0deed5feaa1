package config

import (
	"net/url"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/pkg/config"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidDuration is returned when a timeout is negative.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidURL is returned when a release host is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidRetries is returned when the retry bound is negative.
	ErrInvalidRetries = errors.New("invalid retry count")

	// ErrUnsupportedPlatform is returned when the target has no published binaries.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Validator validates configuration semantics.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the entire configuration.
// Returns an error describing all validation failures.
func (v *Validator) Validate(cfg *config.Config) error {
	if cfg == nil {
		return errors.WithMessage(ErrInvalidConfig, "config is nil")
	}

	var validationErrors []error

	if cfg.Platform != nil && cfg.Platform.Target != nil && !cfg.Platform.Target.IsSupported() {
		validationErrors = append(validationErrors,
			errors.Wrapf(ErrUnsupportedPlatform, "platform.target: %s", cfg.Platform.Target))
	}

	if cfg.Install != nil {
		validationErrors = append(validationErrors, v.validateInstallConfig(cfg.Install)...)
	}

	if cfg.Releases != nil {
		validationErrors = append(validationErrors, v.validateReleasesConfig(cfg.Releases)...)
	}

	if _, err := cfg.Log.ResolveLevel(); err != nil {
		validationErrors = append(validationErrors, errors.Wrap(err, "log.level"))
	}

	if len(validationErrors) > 0 {
		return errors.WithSecondaryError(
			errors.Wrapf(
				ErrInvalidConfig,
				"validation failed with %d error(s)",
				len(validationErrors),
			),
			combineErrors(validationErrors),
		)
	}

	return nil
}

// validateInstallConfig rejects negative timeouts; zero means the default.
func (*Validator) validateInstallConfig(cfg *config.InstallConfig) []error {
	var errs []error

	for name, d := range map[string]config.Duration{
		"install.request_timeout": cfg.RequestTimeout,
		"install.lock_timeout":    cfg.LockTimeout,
	} {
		if d < 0 {
			errs = append(errs, errors.Wrapf(ErrInvalidDuration, "%s must not be negative, got %s", name, d))
		}
	}

	return errs
}

func (*Validator) validateReleasesConfig(cfg *config.ReleasesConfig) []error {
	var errs []error

	if cfg.Retries != nil && *cfg.Retries < 0 {
		errs = append(errs, errors.Wrapf(ErrInvalidRetries, "releases.retries must not be negative, got %d", *cfg.Retries))
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"releases.base_url", cfg.BaseURL},
		{"releases.legacy_prefix", cfg.LegacyPrefix},
		{"releases.linux_aarch64_prefix", cfg.LinuxAarch64Prefix},
		{"releases.macos_aarch64_prefix", cfg.MacOSAarch64Prefix},
	} {
		if field.value == "" {
			continue
		}

		if err := validateURL(field.value); err != nil {
			errs = append(errs, errors.Wrap(err, field.name))
		}
	}

	return errs
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(ErrInvalidURL, "%q: %v", raw, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidURL, "%q must be an absolute http(s) URL", raw)
	}

	return nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return errors.Join(errs...)
}
