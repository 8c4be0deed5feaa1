// Package store manages the on-disk layout of installed versions and the
// global version pointer.
//
// Layout under the data directory:
//
//	<root>/.global-version           selected version, one line, may be empty
//	<root>/<version>/solc-<version>  installed binary
//	<root>/.lock-solc-<version>      transient installation lock
//	<root>/.tmp-*                    in-flight installer temp files
package store

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/lock"
	"github.com/smykla-skalski/svm/internal/svmerr"
)

const (
	// GlobalVersionFile names the global version pointer inside the root.
	GlobalVersionFile = ".global-version"

	// TempPrefix starts the name of installer temp files inside the root.
	TempPrefix = ".tmp-"

	// DefaultBinaryName is the managed tool.
	DefaultBinaryName = "solc"

	dirMode     = 0o755
	pointerMode = 0o644
)

// ErrNotDirectory is returned when the data root exists but is not a directory.
var ErrNotDirectory = errors.New("data directory is not a directory")

// Store is the version state store rooted at one data directory.
// It caches nothing; every call reads the filesystem.
type Store struct {
	root       string
	binaryName string
}

// New creates a Store. An empty binaryName uses DefaultBinaryName.
func New(root, binaryName string) *Store {
	if binaryName == "" {
		binaryName = DefaultBinaryName
	}

	return &Store{root: filepath.Clean(root), binaryName: binaryName}
}

// Root returns the data directory.
func (s *Store) Root() string {
	return s.root
}

// BinaryName returns the managed tool name.
func (s *Store) BinaryName() string {
	return s.binaryName
}

// GlobalVersionPath returns the pointer file location.
func (s *Store) GlobalVersionPath() string {
	return filepath.Join(s.root, GlobalVersionFile)
}

// VersionPath returns the directory holding version.
func (s *Store) VersionPath(version string) string {
	return filepath.Join(s.root, version)
}

// VersionBinary returns the canonical binary path for version.
func (s *Store) VersionBinary(version string) string {
	return filepath.Join(s.root, version, s.binaryName+"-"+version)
}

// LockPath returns the installation lock file for version.
func (s *Store) LockPath(version string) string {
	return lock.Path(s.root, s.binaryName, version)
}

// Setup creates the root and an empty pointer file if missing. Idempotent.
func (s *Store) Setup() error {
	if err := os.MkdirAll(s.root, dirMode); err != nil {
		if isNotDir(s.root) {
			return errors.Wrapf(ErrNotDirectory, "%s", s.root)
		}

		return errors.Wrapf(err, "creating data directory %s", s.root)
	}

	//nolint:gosec // G304: pointer file inside the data directory
	f, err := os.OpenFile(s.GlobalVersionPath(), os.O_CREATE|os.O_WRONLY, pointerMode)
	if err != nil {
		return errors.Wrap(err, "creating global version file")
	}

	return f.Close()
}

func isNotDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// skipEntry reports whether a root entry is bookkeeping rather than a version.
func skipEntry(name string) bool {
	return name == GlobalVersionFile ||
		strings.HasPrefix(name, lock.FilePrefix) ||
		strings.HasPrefix(name, TempPrefix)
}

// InstalledVersions lists installed versions in ascending order. Any root
// entry that is neither bookkeeping nor a valid version is an error.
func (s *Store) InstalledVersions() ([]*semver.Version, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrapf(err, "reading data directory %s", s.root)
	}

	versions := make([]*semver.Version, 0, len(entries))

	for _, entry := range entries {
		if skipEntry(entry.Name()) {
			continue
		}

		v, err := semver.StrictNewVersion(entry.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "unexpected entry %q in data directory", entry.Name())
		}

		versions = append(versions, v)
	}

	slices.SortFunc(versions, func(a, b *semver.Version) int { return a.Compare(b) })

	return versions, nil
}

// IsInstalled reports whether the canonical binary for version exists.
func (s *Store) IsInstalled(version string) bool {
	info, err := os.Stat(s.VersionBinary(version))

	return err == nil && info.Mode().IsRegular()
}

// GlobalVersion returns the selected version. A missing, empty or
// unparsable pointer means no selection and returns nil without error.
func (s *Store) GlobalVersion() (*semver.Version, error) {
	data, err := os.ReadFile(s.GlobalVersionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "reading global version")
	}

	v, err := semver.StrictNewVersion(strings.TrimRight(string(data), "\r\n"))
	if err != nil {
		return nil, nil //nolint:nilerr // an unreadable pointer means no selection
	}

	return v, nil
}

// CurrentVersion is GlobalVersion.
func (s *Store) CurrentVersion() (*semver.Version, error) {
	return s.GlobalVersion()
}

// SetGlobalVersion overwrites the pointer with version.
func (s *Store) SetGlobalVersion(version *semver.Version) error {
	return s.writePointer(version.String())
}

// UnsetGlobalVersion empties the pointer.
func (s *Store) UnsetGlobalVersion() error {
	return s.writePointer("")
}

func (s *Store) writePointer(content string) error {
	if err := os.WriteFile(s.GlobalVersionPath(), []byte(content), pointerMode); err != nil {
		return errors.Wrap(err, "writing global version")
	}

	return nil
}

// Which returns the canonical binary path of an installed version.
func (s *Store) Which(version *semver.Version) (string, error) {
	path := s.VersionBinary(version.String())
	if !s.IsInstalled(version.String()) {
		return "", &svmerr.VersionNotInstalledError{Version: version.String(), Path: path}
	}

	return path, nil
}

// RemoveVersion deletes the version directory. The pointer is left alone.
func (s *Store) RemoveVersion(version *semver.Version) error {
	dir := s.VersionPath(version.String())

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &svmerr.VersionNotInstalledError{Version: version.String(), Path: dir}
		}

		return errors.Wrapf(err, "inspecting %s", dir)
	}

	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "removing %s", dir)
	}

	return nil
}

// RemoveAll deletes every installed version and unsets the pointer.
func (s *Store) RemoveAll() error {
	versions, err := s.InstalledVersions()
	if err != nil {
		return err
	}

	for _, v := range versions {
		if err := s.RemoveVersion(v); err != nil {
			return err
		}
	}

	return s.UnsetGlobalVersion()
}

// Leftovers returns installer temp files in the root last modified before
// cutoff. Crashed installs leave them behind.
func (s *Store) Leftovers(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "reading data directory %s", s.root)
	}

	var paths []string

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), TempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		paths = append(paths, filepath.Join(s.root, entry.Name()))
	}

	return paths, nil
}
