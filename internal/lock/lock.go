// Package lock serializes installations of the same version across
// processes with an advisory file lock.
package lock

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/svmerr"
	"github.com/smykla-skalski/svm/pkg/logger"
)

const (
	// DefaultWait bounds how long Acquire waits for another holder.
	DefaultWait = 30 * time.Second

	// retryDelay is the polling interval while the lock is held elsewhere.
	retryDelay = 50 * time.Millisecond

	// FilePrefix starts the name of every lock file in the data directory.
	FilePrefix = ".lock-"

	fileMode = 0o600
)

// Lock is an acquired installation lock.
type Lock struct {
	path string
	file *os.File
}

// Path returns the lock file name for binary and version inside root.
func Path(root, binary, version string) string {
	return filepath.Join(root, FilePrefix+binary+"-"+version)
}

// Acquire takes the exclusive lock for version, waiting up to wait while
// another holder (thread or process) owns it. A non-positive wait uses
// DefaultWait. The lock is released by the OS if the holder dies.
func Acquire(
	ctx context.Context,
	root, binary, version string,
	wait time.Duration,
	log logger.Logger,
) (*Lock, error) {
	if wait <= 0 {
		wait = DefaultWait
	}

	log = logger.OrNoOp(log)
	path := Path(root, binary, version)

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		f, err := lockFile(waitCtx, path, log)
		if errors.Is(err, errReplaced) {
			log.Debug("lock file replaced while waiting, retrying", "path", path)

			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "waiting for installation lock")
			}

			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &svmerr.TimeoutError{Version: version, Wait: wait}
			}

			return nil, err
		}

		return &Lock{path: path, file: f}, nil
	}
}

// errReplaced means the locked file is no longer the one at the lock path.
// Holders remove the file on release, so a waiter can end up owning an
// unlinked file while a newcomer locks its replacement.
var errReplaced = errors.New("lock file replaced")

// lockFile opens and locks path. The lock only counts when the locked
// descriptor is still the file at path; otherwise errReplaced.
func lockFile(ctx context.Context, path string, log logger.Logger) (*os.File, error) {
	//nolint:gosec // G304: path is built from the data directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	if err := waitLocked(ctx, f, log); err != nil {
		_ = f.Close()

		return nil, err
	}

	held, err := f.Stat()
	if err != nil {
		_ = unlock(f)
		_ = f.Close()

		return nil, errors.Wrapf(err, "inspecting %s", path)
	}

	current, err := os.Stat(path)
	if err != nil || !os.SameFile(held, current) {
		_ = unlock(f)
		_ = f.Close()

		return nil, errReplaced
	}

	return f, nil
}

// waitLocked polls tryLock until it succeeds or ctx is done.
func waitLocked(ctx context.Context, f *os.File, log logger.Logger) error {
	locked, err := tryLock(f)
	if err != nil {
		return errors.Wrapf(err, "locking %s", f.Name())
	}

	if locked {
		return nil
	}

	log.Debug("waiting for installation lock", "path", f.Name())

	ticker := time.NewTicker(retryDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		locked, err := tryLock(f)
		if err != nil {
			return errors.Wrapf(err, "locking %s", f.Name())
		}

		if locked {
			return nil
		}
	}
}

// Release deletes the lock file and drops the lock. Safe to call twice.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	// the file goes first so no waiter can pass the identity check on it;
	// Windows refuses while handles are open, which leaves it for reuse
	_ = os.Remove(l.path)

	unlockErr := unlock(l.file)
	_ = l.file.Close()
	l.file = nil

	return errors.Wrapf(unlockErr, "unlocking %s", l.path)
}
