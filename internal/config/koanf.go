package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/smykla-skalski/svm/internal/xdg"
	"github.com/smykla-skalski/svm/pkg/config"
)

var (
	// ErrInvalidPermissions is returned when config file has insecure permissions.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

// EnvPrefix prefixes every environment variable svm reads.
const EnvPrefix = "SVM_"

// optionalKeys have no default but can still be set from the environment.
var optionalKeys = []string{"platform.target", "platform.nixos", "log.level"}

// envAliases are extra variable names, without the prefix, for known keys.
// SVM_TARGET_PLATFORM is the name other svm builds read.
var envAliases = map[string]string{
	"TARGET_PLATFORM": "platform.target",
}

// KoanfLoader handles configuration loading from multiple sources using koanf.
// Precedence order (highest to lowest):
// 1. CLI Flags
// 2. Environment Variables (SVM_*)
// 3. Global Config ($XDG_CONFIG_HOME/svm/config.toml)
// 4. Defaults
type KoanfLoader struct {
	k     *koanf.Koanf
	paths xdg.PathResolver
}

// NewKoanfLoader creates a new KoanfLoader with default directories.
func NewKoanfLoader() *KoanfLoader {
	return NewKoanfLoaderWithResolver(xdg.DefaultResolver())
}

// NewKoanfLoaderWithResolver creates a new KoanfLoader with custom directories (for testing).
func NewKoanfLoaderWithResolver(paths xdg.PathResolver) *KoanfLoader {
	return &KoanfLoader{
		k:     koanf.New("."),
		paths: paths,
	}
}

// Load loads and validates configuration from all sources.
func (l *KoanfLoader) Load(flags map[string]any) (*config.Config, error) {
	cfg, err := l.LoadWithoutValidation(flags)
	if err != nil {
		return nil, err
	}

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// LoadWithoutValidation loads configuration without running validation.
// Defaults → Global TOML → Env Vars → CLI Flags
func (l *KoanfLoader) LoadWithoutValidation(flags map[string]any) (*config.Config, error) {
	// fresh instance per load
	l.k = koanf.New(".")

	defaults := defaultsToMap(l.paths)
	if err := l.k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if err := l.loadTOMLFile(l.GlobalConfigPath()); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load global config")
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform(defaults),
	}

	if err := l.k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if flagConfig := flagsToConfig(flags); len(flagConfig) > 0 {
		if err := l.k.Load(confmap.Provider(flagConfig, "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg config.Config

	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: CustomDecoderConfig(&cfg),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.DataDir = xdg.ExpandPathSilent(cfg.DataDir)
	cfg.GetLog().File = xdg.ExpandPathSilent(cfg.GetLog().File)

	return &cfg, nil
}

// loadTOMLFile loads a TOML configuration file with security checks.
func (l *KoanfLoader) loadTOMLFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// reject world-writable files
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(
			ErrInvalidPermissions,
			"%s is world-writable (mode: %s)",
			path,
			info.Mode().Perm(),
		)
	}

	return l.k.Load(file.Provider(path), tomlparser.Parser())
}

// envTransform maps SVM_INSTALL_LOCK_TIMEOUT to install.lock_timeout.
// Underscores are ambiguous, so only known keys are accepted.
func envTransform(defaults map[string]any) func(string, string) (string, any) {
	flat, _ := maps.Flatten(defaults, nil, ".")

	known := make(map[string]string, len(flat)+len(optionalKeys))
	for key := range flat {
		known[envName(key)] = key
	}

	for _, key := range optionalKeys {
		known[envName(key)] = key
	}

	for alias, key := range envAliases {
		known[alias] = key
	}

	return func(key, value string) (string, any) {
		return known[strings.TrimPrefix(key, EnvPrefix)], value
	}
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// GlobalConfigPath returns the path to the global configuration file.
func (l *KoanfLoader) GlobalConfigPath() string {
	return l.paths.GlobalConfigFile()
}

// HasGlobalConfig checks if a global configuration file exists.
func (l *KoanfLoader) HasGlobalConfig() bool {
	return fileExists(l.GlobalConfigPath())
}

// Koanf exposes the merged values of the last load, keyed by dotted path.
func (l *KoanfLoader) Koanf() *koanf.Koanf {
	return l.k
}

// flagsToConfig converts CLI flags to a configuration map.
func flagsToConfig(flags map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range flags {
		switch key {
		case "data-dir":
			if s, ok := value.(string); ok && s != "" {
				result["data_dir"] = s
			}

		case "platform":
			if s, ok := value.(string); ok && s != "" {
				ensureMapKey(result, "platform")["target"] = s
			}

		case "lock-timeout":
			if s, ok := value.(string); ok && s != "" {
				ensureMapKey(result, "install")["lock_timeout"] = s
			}

		case "debug", "trace":
			if b, ok := value.(bool); ok && b {
				ensureMapKey(result, "log")[key] = true
			}
		}
	}

	return result
}

// ensureMapKey ensures a key exists as a map and returns it.
func ensureMapKey(cfg map[string]any, key string) map[string]any {
	if _, ok := cfg[key]; !ok {
		cfg[key] = make(map[string]any)
	}

	result, _ := cfg[key].(map[string]any)

	return result
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
