// Package svmerr defines the error taxonomy shared by the release resolver,
// the installer and the version store.
//
// Every failure is returned as a value. Sentinels are matched with errors.Is;
// the typed errors carry the details (versions, digests, URLs) and report
// themselves as their sentinel, so callers can use either style:
//
//	if errors.Is(err, svmerr.ErrChecksumMismatch) { ... }
//
//	var mismatch *svmerr.ChecksumMismatchError
//	if errors.As(err, &mismatch) { fmt.Println(mismatch.Expected) }
package svmerr

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrGlobalVersionNotSet is returned when no global version is selected.
	ErrGlobalVersionNotSet = errors.New("global version not set")

	// ErrUnknownVersion is returned when a version is absent from the release catalog.
	ErrUnknownVersion = errors.New("version not found in releases for this platform")

	// ErrUnsupportedVersion is returned when a version cannot be installed on a platform.
	ErrUnsupportedVersion = errors.New("unsupported version for platform")

	// ErrVersionNotInstalled is returned when a version has no installed binary.
	ErrVersionNotInstalled = errors.New("version not installed")

	// ErrChecksumMismatch is returned when a downloaded artifact fails verification.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMissingChecksum is returned when a catalog lists a release without a build checksum.
	ErrMissingChecksum = errors.New("release has no checksum in catalog")

	// ErrTimeout is returned when the installation lock could not be acquired in time.
	ErrTimeout = errors.New("timed out waiting for installation lock")

	// ErrPatchFailure is returned when the dynamic linker patch step fails.
	ErrPatchFailure = errors.New("unable to patch binary for NixOS")

	// ErrTransport is returned when an HTTP request could not be completed.
	ErrTransport = errors.New("transport error")

	// ErrDecode is returned when a release manifest is malformed.
	ErrDecode = errors.New("malformed release manifest")

	// ErrUnsuccessfulResponse is returned for non-2xx HTTP responses.
	ErrUnsuccessfulResponse = errors.New("unsuccessful response")
)

// UnknownVersionError names the version missing from the catalog.
type UnknownVersionError struct {
	Version string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("version not found in releases for this platform: %s", e.Version)
}

// Is reports whether target is ErrUnknownVersion.
func (*UnknownVersionError) Is(target error) bool {
	return target == ErrUnknownVersion
}

// UnsupportedVersionError is returned when a version falls outside the
// window a platform has binaries for.
type UnsupportedVersionError struct {
	Version  string
	Platform string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported version %s for platform %s", e.Version, e.Platform)
}

// Is reports whether target is ErrUnsupportedVersion.
func (*UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

// VersionNotInstalledError names a version that has no installed binary.
type VersionNotInstalledError struct {
	Version string
	Path    string
}

func (e *VersionNotInstalledError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("version %s not installed", e.Version)
	}

	return fmt.Sprintf("version %s not installed; looked at %s", e.Version, e.Path)
}

// Is reports whether target is ErrVersionNotInstalled.
func (*VersionNotInstalledError) Is(target error) bool {
	return target == ErrVersionNotInstalled
}

// ChecksumMismatchError carries both digests, hex encoded.
type ChecksumMismatchError struct {
	Version  string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf(
		"checksum mismatch for version %s: expected: %s, actual: %s",
		e.Version, e.Expected, e.Actual,
	)
}

// Is reports whether target is ErrChecksumMismatch.
func (*ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// TimeoutError is returned when the installation lock wait exceeded its bound.
type TimeoutError struct {
	Version string
	Wait    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"install step for version %s timed out after %s waiting for the installation lock",
		e.Version, e.Wait,
	)
}

// Is reports whether target is ErrTimeout.
func (*TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// PatchError carries the output of the failed patch command.
type PatchError struct {
	Stdout string
	Stderr string
	Err    error
}

func (e *PatchError) Error() string {
	msg := fmt.Sprintf(
		"unable to patch binary for NixOS. stdout: %s. stderr: %s",
		e.Stdout, e.Stderr,
	)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Is reports whether target is ErrPatchFailure.
func (*PatchError) Is(target error) bool {
	return target == ErrPatchFailure
}

// Unwrap returns the underlying command error, if any.
func (e *PatchError) Unwrap() error {
	return e.Err
}

// UnsuccessfulResponseError is returned for non-2xx responses.
type UnsuccessfulResponseError struct {
	URL        string
	StatusCode int
}

func (e *UnsuccessfulResponseError) Error() string {
	return fmt.Sprintf("received unsuccessful response with code %d for %s", e.StatusCode, e.URL)
}

// Is reports whether target is ErrUnsuccessfulResponse.
func (*UnsuccessfulResponseError) Is(target error) bool {
	return target == ErrUnsuccessfulResponse
}

// Retryable reports whether an error may succeed on a later attempt.
// Checksum mismatches, unsupported versions, decode errors and client-side
// HTTP errors reproduce on identical inputs and are never retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var resp *UnsuccessfulResponseError
	if errors.As(err, &resp) {
		return resp.StatusCode >= 500 || resp.StatusCode == 429
	}

	return errors.Is(err, ErrTransport)
}
