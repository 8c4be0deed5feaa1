// Package data provides checkers for the data directory.
package data

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smykla-skalski/svm/internal/doctor"
	"github.com/smykla-skalski/svm/internal/store"
)

// DefaultLeftoverAge is how old a temp file must be before it counts as left
// over by a crashed install.
const DefaultLeftoverAge = time.Hour

// DirChecker checks that the data directory exists and is writable
type DirChecker struct {
	store *store.Store
}

// NewDirChecker creates a new data directory checker
func NewDirChecker(s *store.Store) *DirChecker {
	return &DirChecker{store: s}
}

// Name returns the name of the check
func (*DirChecker) Name() string {
	return "Data directory"
}

// Category returns the category of the check
func (*DirChecker) Category() doctor.Category {
	return doctor.CategoryData
}

// Check performs the data directory check
func (c *DirChecker) Check(_ context.Context) doctor.CheckResult {
	root := c.store.Root()

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return doctor.FailWarning(c.Name(), "Does not exist yet").
				WithDetails("Path: "+root, "It is created on the next install")
		}

		return doctor.FailError(c.Name(), fmt.Sprintf("Cannot read: %v", err))
	}

	if !info.IsDir() {
		return doctor.FailError(c.Name(), "Not a directory").WithDetails("Path: " + root)
	}

	probe, err := os.CreateTemp(root, store.TempPrefix+"doctor-*")
	if err != nil {
		return doctor.FailError(c.Name(), "Not writable").
			WithDetails("Path: "+root, fmt.Sprintf("Error: %v", err))
	}

	_ = probe.Close()
	_ = os.Remove(probe.Name())

	versions, err := c.store.InstalledVersions()
	if err != nil {
		return doctor.FailError(c.Name(), fmt.Sprintf("Failed to list versions: %v", err))
	}

	return doctor.Pass(c.Name(), fmt.Sprintf("%d version(s) installed", len(versions))).
		WithDetails("Path: " + root)
}

// GlobalVersionChecker checks that the selected version is installed
type GlobalVersionChecker struct {
	store *store.Store
}

// NewGlobalVersionChecker creates a new global version checker
func NewGlobalVersionChecker(s *store.Store) *GlobalVersionChecker {
	return &GlobalVersionChecker{store: s}
}

// Name returns the name of the check
func (*GlobalVersionChecker) Name() string {
	return "Global version"
}

// Category returns the category of the check
func (*GlobalVersionChecker) Category() doctor.Category {
	return doctor.CategoryData
}

// Check performs the global version check
func (c *GlobalVersionChecker) Check(_ context.Context) doctor.CheckResult {
	version, err := c.store.GlobalVersion()
	if err != nil {
		return doctor.FailError(c.Name(), "Unreadable pointer file").
			WithDetails(
				"File: "+c.store.GlobalVersionPath(),
				fmt.Sprintf("Error: %v", err),
			).
			WithFixID(doctor.FixGlobalVersion)
	}

	if version == nil {
		return doctor.FailWarning(c.Name(), "No version selected").
			WithDetails("Select one with: svm use <version>")
	}

	if !c.store.IsInstalled(version.String()) {
		return doctor.FailError(c.Name(), fmt.Sprintf("solc %s is selected but not installed", version)).
			WithDetails(
				"Binary: "+c.store.VersionBinary(version.String()),
				"Reinstall with: svm install "+version.String(),
			).
			WithFixID(doctor.FixGlobalVersion)
	}

	return doctor.Pass(c.Name(), "solc "+version.String())
}

// LeftoversChecker looks for temp files left behind by interrupted installs
type LeftoversChecker struct {
	store  *store.Store
	maxAge time.Duration
	now    func() time.Time
}

// NewLeftoversChecker creates a new leftovers checker
func NewLeftoversChecker(s *store.Store, maxAge time.Duration) *LeftoversChecker {
	if maxAge <= 0 {
		maxAge = DefaultLeftoverAge
	}

	return &LeftoversChecker{store: s, maxAge: maxAge, now: time.Now}
}

// Name returns the name of the check
func (*LeftoversChecker) Name() string {
	return "Interrupted installs"
}

// Category returns the category of the check
func (*LeftoversChecker) Category() doctor.Category {
	return doctor.CategoryData
}

// Check performs the leftovers check
func (c *LeftoversChecker) Check(_ context.Context) doctor.CheckResult {
	paths, err := c.store.Leftovers(c.now().Add(-c.maxAge))
	if err != nil {
		return doctor.FailError(c.Name(), fmt.Sprintf("Failed to scan: %v", err))
	}

	if len(paths) == 0 {
		return doctor.Pass(c.Name(), "None")
	}

	return doctor.FailWarning(c.Name(), fmt.Sprintf("%d stale temp file(s)", len(paths))).
		WithDetails(paths...).
		WithFixID(doctor.FixLeftovers)
}
