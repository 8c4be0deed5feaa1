package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/smykla-skalski/svm/internal/schema"
	"github.com/smykla-skalski/svm/internal/xdg"
	"github.com/smykla-skalski/svm/pkg/config"
)

const (
	// ConfigFileMode is the file mode for configuration files (user read/write only).
	ConfigFileMode = 0o600

	// ConfigDirMode is the file mode for configuration directories (user rwx only).
	ConfigDirMode = 0o700

	tempPattern = ".config-*.toml"
)

// ErrConfigExists is returned when writing would overwrite a config file.
var ErrConfigExists = errors.New("configuration file already exists")

// Writer renders a Config as TOML. Files are replaced with a rename so a
// reader never sees a half-written config.
type Writer struct {
	paths     xdg.PathResolver
	validator *Validator
}

// NewWriter creates a Writer for the user's config directory.
func NewWriter() *Writer {
	return NewWriterWithResolver(xdg.DefaultResolver())
}

// NewWriterWithResolver creates a Writer rooted at custom directories.
func NewWriterWithResolver(paths xdg.PathResolver) *Writer {
	return &Writer{paths: paths, validator: NewValidator()}
}

// WriteGlobal writes cfg to the global config file. An existing file is
// only replaced when force is set.
func (w *Writer) WriteGlobal(cfg *config.Config, force bool) error {
	path := w.GlobalConfigPath()

	if !force && w.IsGlobalConfigExists() {
		return errors.Wrapf(ErrConfigExists, "%s", path)
	}

	return w.WriteFile(path, cfg)
}

// WriteFile validates cfg and writes it to path.
func (w *Writer) WriteFile(path string, cfg *config.Config) error {
	if cfg == nil {
		return errors.Wrap(ErrInvalidConfig, "config is nil")
	}

	if err := w.validator.Validate(cfg); err != nil {
		return err
	}

	data, err := Render(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, ConfigDirMode); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	return replaceFile(dir, path, data)
}

// Render encodes cfg as TOML behind the taplo schema directive.
func Render(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(schema.SchemaDirective())
	buf.WriteByte('\n')

	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)

	if err := encoder.Encode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to encode config to TOML")
	}

	return buf.Bytes(), nil
}

func replaceFile(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}

	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence

		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	if err := tmp.Chmod(ConfigFileMode); err != nil {
		tmp.Close() //nolint:errcheck,gosec // chmod error takes precedence

		return errors.Wrapf(err, "failed to set permissions on %s", tmpPath)
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "failed to replace config file %s", path)
	}

	return nil
}

// GlobalConfigPath returns the path to the global configuration file.
func (w *Writer) GlobalConfigPath() string {
	return w.paths.GlobalConfigFile()
}

// IsGlobalConfigExists checks if the global config file exists.
func (w *Writer) IsGlobalConfigExists() bool {
	_, err := os.Stat(w.GlobalConfigPath())

	return err == nil
}
