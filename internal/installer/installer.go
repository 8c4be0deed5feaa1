// Package installer downloads, verifies and places compiler binaries.
package installer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"mvdan.cc/sh/v3/syntax"

	"github.com/smykla-skalski/svm/internal/exec"
	"github.com/smykla-skalski/svm/internal/lock"
	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/internal/store"
	"github.com/smykla-skalski/svm/internal/svmerr"
	"github.com/smykla-skalski/svm/pkg/logger"
)

const (
	// DefaultRequestTimeout bounds a single artifact download.
	DefaultRequestTimeout = 10 * time.Minute

	// NixShell runs patchelf without requiring it on PATH.
	NixShell = "nix-shell"
)

// NixOSMinPatchVersion is the first release that is not fully static and
// needs its interpreter patched on NixOS.
var NixOSMinPatchVersion = semver.New(0, 7, 6, "", "")

// CatalogSource provides release catalogs and the hosts behind them.
type CatalogSource interface {
	Fetch(ctx context.Context, p platform.Platform) (*releases.Catalog, error)
	Endpoints() releases.Endpoints
}

// NixOSDetector reports whether binaries must be patched for NixOS.
type NixOSDetector interface {
	IsNixOS(ctx context.Context) bool
}

// Result describes a completed installation.
type Result struct {
	Version  *semver.Version
	Path     string
	URL      string
	Size     int64
	Duration time.Duration
	Patched  bool
}

// Installer installs versions into a Store.
type Installer struct {
	store          *store.Store
	catalogs       CatalogSource
	platform       platform.Platform
	client         *http.Client
	runner         exec.CommandRunner
	tools          exec.ToolChecker
	nixos          NixOSDetector
	requestTimeout time.Duration
	lockTimeout    time.Duration
	progress       ProgressFunc
	logger         logger.Logger
	now            func() time.Time
}

// Option configures the Installer.
type Option func(*Installer)

// WithPlatform overrides the detected platform.
func WithPlatform(p platform.Platform) Option {
	return func(i *Installer) {
		i.platform = p
	}
}

// WithHTTPClient sets the client used for artifact downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Installer) {
		if client != nil {
			i.client = client
		}
	}
}

// WithCommandRunner sets the runner used for the NixOS patch step.
func WithCommandRunner(runner exec.CommandRunner) Option {
	return func(i *Installer) {
		if runner != nil {
			i.runner = runner
		}
	}
}

// WithToolChecker sets how nix-shell availability is checked.
func WithToolChecker(tools exec.ToolChecker) Option {
	return func(i *Installer) {
		if tools != nil {
			i.tools = tools
		}
	}
}

// WithNixOSDetector sets the NixOS detector.
func WithNixOSDetector(d NixOSDetector) Option {
	return func(i *Installer) {
		if d != nil {
			i.nixos = d
		}
	}
}

// WithRequestTimeout bounds each artifact download.
func WithRequestTimeout(d time.Duration) Option {
	return func(i *Installer) {
		if d > 0 {
			i.requestTimeout = d
		}
	}
}

// WithLockTimeout bounds the wait for the installation lock.
func WithLockTimeout(d time.Duration) Option {
	return func(i *Installer) {
		if d > 0 {
			i.lockTimeout = d
		}
	}
}

// WithProgress sets a download progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(i *Installer) {
		i.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(i *Installer) {
		if log != nil {
			i.logger = log
		}
	}
}

// New creates an Installer for st fed by catalogs.
func New(st *store.Store, catalogs CatalogSource, opts ...Option) *Installer {
	i := &Installer{
		store:          st,
		catalogs:       catalogs,
		platform:       platform.Current(),
		client:         http.DefaultClient,
		runner:         exec.NewCommandRunner(0),
		tools:          exec.NewToolChecker(),
		nixos:          platform.NewNixOSDetector(nil),
		requestTimeout: DefaultRequestTimeout,
		lockTimeout:    lock.DefaultWait,
		logger:         logger.NewNoOpLogger(),
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Platform returns the platform artifacts are resolved for.
func (i *Installer) Platform() platform.Platform {
	return i.platform
}

// Install downloads, verifies and places version, returning where it landed.
// Concurrent calls for the same version serialize on the installation lock
// and both succeed. The canonical path only ever holds a complete,
// verified binary.
// A failed NixOS patch returns the unpatched Result together with the
// *svmerr.PatchError; the binary stays in place.
func (i *Installer) Install(ctx context.Context, version *semver.Version) (*Result, error) {
	start := i.now()
	log := i.logger.With("version", version.String(), "platform", i.platform.String())

	if err := i.store.Setup(); err != nil {
		return nil, err
	}

	catalog, err := i.catalogs.Fetch(ctx, i.platform)
	if err != nil {
		return nil, errors.Wrap(err, "fetching release catalog")
	}

	artifact, ok := catalog.Artifact(version)
	if !ok {
		return nil, &svmerr.UnknownVersionError{Version: version.String()}
	}

	expected, ok := catalog.Checksum(version)
	if !ok || len(expected) == 0 {
		return nil, errors.Wrapf(svmerr.ErrMissingChecksum, "version %s", version)
	}

	artifactURL, err := releases.ArtifactURL(i.catalogs.Endpoints(), i.platform, version, artifact)
	if err != nil {
		return nil, err
	}

	url := artifactURL.String()
	log.Info("installing", "url", url)

	tmp, err := os.CreateTemp(i.store.Root(), store.TempPrefix+"*")
	if err != nil {
		return nil, errors.Wrap(err, "creating temporary file")
	}

	tmpPath := tmp.Name()
	placed := false

	defer func() {
		_ = tmp.Close()

		if !placed {
			_ = os.Remove(tmpPath)
		}
	}()

	size, err := i.fetchVerified(ctx, version, url, expected, tmp)
	if err != nil {
		return nil, err
	}

	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "closing temporary file")
	}

	held, err := lock.Acquire(ctx, i.store.Root(), i.store.BinaryName(), version.String(), i.lockTimeout, log)
	if err != nil {
		return nil, err
	}
	defer held.Release() //nolint:errcheck // lock file removal is best effort

	// stop here if cancelled while waiting; nothing is at the canonical path yet
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "installing")
	}

	path, err := i.place(version, artifact, tmpPath)
	if err != nil {
		return nil, err
	}

	placed = true

	result := &Result{Version: version, Path: path, URL: url, Size: size}

	if i.needsPatch(ctx, version) {
		if err := i.patchForNixOS(ctx, path); err != nil {
			log.Error("patching for NixOS failed", "path", path, "error", err)

			result.Duration = i.now().Sub(start)

			return result, err
		}

		result.Patched = true
	}

	result.Duration = i.now().Sub(start)
	log.Info("installed", "path", path, "bytes", size, "duration", result.Duration)

	return result, nil
}

// fetchVerified downloads url into out and checks it against expected.
func (i *Installer) fetchVerified(
	ctx context.Context,
	version *semver.Version,
	url string,
	expected []byte,
	out *os.File,
) (int64, error) {
	dctx, cancel := context.WithTimeout(ctx, i.requestTimeout)
	defer cancel()

	d := &downloader{client: i.client, progress: i.progress}

	actual, size, err := d.download(dctx, url, out)
	if err != nil {
		return 0, err
	}

	if err := VerifyChecksum(version.String(), actual, expected); err != nil {
		return 0, err
	}

	return size, nil
}

// VerifyChecksum compares two raw SHA-256 digests.
func VerifyChecksum(version string, actual, expected []byte) error {
	if !bytes.Equal(actual, expected) {
		return &svmerr.ChecksumMismatchError{
			Version:  version,
			Expected: hex.EncodeToString(expected),
			Actual:   hex.EncodeToString(actual),
		}
	}

	return nil
}

// place moves the verified temp file to the canonical path, unpacking
// legacy zip archives on the way.
func (i *Installer) place(version *semver.Version, artifact, tmpPath string) (string, error) {
	v := version.String()
	versionDir := i.store.VersionPath(v)
	target := i.store.VersionBinary(v)

	if err := os.MkdirAll(versionDir, dirFileMode); err != nil {
		return "", errors.Wrapf(err, "creating %s", versionDir)
	}

	if strings.HasSuffix(artifact, ".zip") {
		return target, i.placeZip(tmpPath, versionDir, target)
	}

	if err := os.Chmod(tmpPath, binaryFileMode); err != nil {
		return "", errors.Wrap(err, "setting binary permissions")
	}

	if runtime.GOOS == "windows" {
		moveAside(i.store.Root(), target)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return "", errors.Wrapf(err, "placing binary at %s", target)
	}

	return target, nil
}

func (*Installer) placeZip(archivePath, versionDir, target string) error {
	if err := extractZip(archivePath, versionDir); err != nil {
		return err
	}

	if err := os.Rename(filepath.Join(versionDir, zipBinaryName), target); err != nil {
		return errors.Wrapf(err, "renaming %s", zipBinaryName)
	}

	return os.Remove(archivePath)
}

// moveAside renames an existing binary out of the way; Windows cannot
// replace a file that may be executing.
func moveAside(root, target string) {
	if _, err := os.Stat(target); err != nil {
		return
	}

	aside := filepath.Join(root, fmt.Sprintf("%sold-%d", store.TempPrefix, time.Now().UnixNano()))
	if err := os.Rename(target, aside); err == nil {
		_ = os.Remove(aside)
	}
}

func (i *Installer) needsPatch(ctx context.Context, version *semver.Version) bool {
	return !version.LessThan(NixOSMinPatchVersion) && i.nixos.IsNixOS(ctx)
}

// PatchCommand returns the nix-shell arguments that set the dynamic linker
// of the binary at path.
func PatchCommand(path string) ([]string, error) {
	quoted, err := syntax.Quote(path, syntax.LangBash)
	if err != nil {
		return nil, errors.Wrapf(err, "quoting %s", path)
	}

	script := `patchelf --set-interpreter "$(cat $NIX_CC/nix-support/dynamic-linker)" ` + quoted

	return []string{"-p", "patchelf", "--run", script}, nil
}

func (i *Installer) patchForNixOS(ctx context.Context, path string) error {
	if err := i.tools.RequireTool(NixShell); err != nil {
		return &svmerr.PatchError{Err: err}
	}

	args, err := PatchCommand(path)
	if err != nil {
		return &svmerr.PatchError{Err: err}
	}

	result := i.runner.Run(ctx, NixShell, args...)
	if result.Failed() {
		return &svmerr.PatchError{Stdout: result.Stdout, Stderr: result.Stderr, Err: result.Err}
	}

	return nil
}
