//go:build !unix

package main

import (
	"os"
	"os/exec"

	"github.com/cockroachdb/errors"
)

// execBinary runs path as a child process and returns its exit code.
func execBinary(path string, args []string) (int, error) {
	cmd := exec.Command(path, args...) //nolint:gosec // G204: installed compiler inside the data directory
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}

		return 1, errors.Wrapf(err, "failed to execute %s", path)
	}

	return 0, nil
}
