package fixers

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/doctor"
	"github.com/smykla-skalski/svm/internal/store"
)

// GlobalVersionFixer repoints a dangling global version at the highest
// installed version, or clears it when nothing is installed.
type GlobalVersionFixer struct {
	store *store.Store
}

// NewGlobalVersionFixer creates a new GlobalVersionFixer.
func NewGlobalVersionFixer(s *store.Store) *GlobalVersionFixer {
	return &GlobalVersionFixer{store: s}
}

// ID returns the fixer identifier.
func (*GlobalVersionFixer) ID() string {
	return doctor.FixGlobalVersion
}

// Description returns a human-readable description.
func (*GlobalVersionFixer) Description() string {
	return "Select the highest installed version, or clear the selection"
}

// Fix repairs the global version pointer.
func (f *GlobalVersionFixer) Fix(_ context.Context) error {
	versions, err := f.store.InstalledVersions()
	if err != nil {
		return errors.Wrap(err, "failed to list installed versions")
	}

	if len(versions) == 0 {
		return errors.Wrap(f.store.UnsetGlobalVersion(), "failed to clear global version")
	}

	return errors.Wrap(
		f.store.SetGlobalVersion(versions[len(versions)-1]),
		"failed to set global version",
	)
}

// LeftoversFixer deletes temp files left by interrupted installs.
type LeftoversFixer struct {
	store  *store.Store
	maxAge time.Duration
}

// NewLeftoversFixer creates a new LeftoversFixer. Only files older than
// maxAge are removed so running installs keep their downloads.
func NewLeftoversFixer(s *store.Store, maxAge time.Duration) *LeftoversFixer {
	return &LeftoversFixer{store: s, maxAge: maxAge}
}

// ID returns the fixer identifier.
func (*LeftoversFixer) ID() string {
	return doctor.FixLeftovers
}

// Description returns a human-readable description.
func (*LeftoversFixer) Description() string {
	return "Delete temp files left by interrupted installs"
}

// Fix removes the stale temp files.
func (f *LeftoversFixer) Fix(_ context.Context) error {
	paths, err := f.store.Leftovers(time.Now().Add(-f.maxAge))
	if err != nil {
		return err
	}

	var errs []error

	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
