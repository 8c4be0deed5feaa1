// Package fixers repairs problems found by the doctor checkers.
package fixers

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/doctor"
)

const configPermissions = 0o600

// ConfigPermissionsFixer removes group and world access from the config file.
type ConfigPermissionsFixer struct {
	path string
}

// NewConfigPermissionsFixer creates a new ConfigPermissionsFixer.
func NewConfigPermissionsFixer(path string) *ConfigPermissionsFixer {
	return &ConfigPermissionsFixer{path: path}
}

// ID returns the fixer identifier.
func (*ConfigPermissionsFixer) ID() string {
	return doctor.FixConfigPermissions
}

// Description returns a human-readable description.
func (f *ConfigPermissionsFixer) Description() string {
	return "Set permissions of " + f.path + " to 0600"
}

// Fix corrects the config file permissions.
func (f *ConfigPermissionsFixer) Fix(_ context.Context) error {
	if err := os.Chmod(f.path, configPermissions); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", f.path)
	}

	return nil
}
