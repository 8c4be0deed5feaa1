//go:build unix

package main

import (
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
)

// execBinary replaces the current process with path. It only returns on
// failure.
func execBinary(path string, args []string) (int, error) {
	argv := append([]string{path}, args...)

	//nolint:gosec // G204: path is an installed compiler inside the data directory
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return 1, errors.Wrapf(err, "failed to execute %s", path)
	}

	return 0, nil
}
