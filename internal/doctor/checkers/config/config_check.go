// Package config provides checkers for the configuration file.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/config"
	"github.com/smykla-skalski/svm/internal/doctor"
)

const checkName = "Config file valid"

// FileChecker checks that the global config file loads and validates
type FileChecker struct {
	loader *config.KoanfLoader
}

// NewFileChecker creates a new config file checker
func NewFileChecker(loader *config.KoanfLoader) *FileChecker {
	return &FileChecker{loader: loader}
}

// Name returns the name of the check
func (*FileChecker) Name() string {
	return checkName
}

// Category returns the category of the check
func (*FileChecker) Category() doctor.Category {
	return doctor.CategoryConfig
}

// Check performs the config file check
func (c *FileChecker) Check(_ context.Context) doctor.CheckResult {
	path := c.loader.GlobalConfigPath()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doctor.Pass(checkName, "Not present, using defaults").
				WithDetails("Create with: svm config init")
		}

		return doctor.FailError(checkName, fmt.Sprintf("Cannot read: %v", err))
	}

	if info.Mode().Perm()&0o002 != 0 {
		return doctor.FailError(checkName, "Insecure file permissions").
			WithDetails(
				"File: "+path,
				"Config file should not be world-writable",
				"Fix with: chmod 600 "+path,
			).
			WithFixID(doctor.FixConfigPermissions)
	}

	if _, err := c.loader.Load(nil); err != nil {
		msg := "Failed to load"
		if errors.Is(err, config.ErrInvalidConfig) {
			msg = "Configuration validation failed"
		}

		return doctor.FailError(checkName, msg).
			WithDetails(
				"File: "+path,
				fmt.Sprintf("Error: %v", err),
			)
	}

	return doctor.Pass(checkName, "Valid")
}
