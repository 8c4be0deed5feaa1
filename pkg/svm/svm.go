// Package svm manages installed Solidity compiler versions.
//
// A Manager ties together the release catalogs, the on-disk store and the
// installer behind one configuration. It is safe for concurrent use; two
// processes installing the same version serialize on a lock file inside
// the data directory.
package svm

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smykla-skalski/svm/internal/exec"
	"github.com/smykla-skalski/svm/internal/installer"
	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/internal/store"
	"github.com/smykla-skalski/svm/internal/svmerr"
	"github.com/smykla-skalski/svm/pkg/config"
	"github.com/smykla-skalski/svm/pkg/logger"
)

// BinaryName is the name of the managed compiler binary.
const BinaryName = "solc"

// DefaultParallelInstalls bounds how many versions InstallAll fetches at once.
const DefaultParallelInstalls = 4

// ErrNoDataDir is returned when the configuration names no data directory.
var ErrNoDataDir = errors.New("data directory not configured")

// Re-exported so callers don't need the internal packages.
type (
	// Result describes a completed installation.
	Result = installer.Result

	// Catalog is the merged release catalog of one platform.
	Catalog = releases.Catalog

	// Platform is an operating system and architecture pair.
	Platform = platform.Platform

	// ProgressFunc reports download progress.
	ProgressFunc = installer.ProgressFunc
)

// Manager installs, selects and removes compiler versions.
type Manager struct {
	platform  platform.Platform
	store     *store.Store
	catalogs  *releases.Fetcher
	installer *installer.Installer
	parallel  int
	logger    logger.Logger
}

type options struct {
	logger    logger.Logger
	client    *http.Client
	platform  *platform.Platform
	endpoints *releases.Endpoints
	runner    exec.CommandRunner
	tools     exec.ToolChecker
	nixos     *bool
	progress  installer.ProgressFunc
	backoff   time.Duration
	parallel  int
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithHTTPClient sets the client used for manifests and artifacts.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithPlatform overrides both the configured and the detected platform.
func WithPlatform(p platform.Platform) Option {
	return func(o *options) {
		o.platform = &p
	}
}

// WithEndpoints overrides the configured release hosts.
func WithEndpoints(e releases.Endpoints) Option {
	return func(o *options) {
		o.endpoints = &e
	}
}

// WithCommandRunner sets the runner used to patch binaries on NixOS.
func WithCommandRunner(runner exec.CommandRunner) Option {
	return func(o *options) {
		o.runner = runner
	}
}

// WithToolChecker sets how the NixOS patch tooling is located.
func WithToolChecker(tools exec.ToolChecker) Option {
	return func(o *options) {
		o.tools = tools
	}
}

// WithNixOS forces NixOS patching on or off.
func WithNixOS(enabled bool) Option {
	return func(o *options) {
		o.nixos = &enabled
	}
}

// WithProgress sets a download progress callback.
func WithProgress(fn installer.ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithRetryBackoff sets the initial delay between manifest retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *options) {
		o.backoff = d
	}
}

// WithParallelInstalls bounds how many versions InstallAll fetches at once.
func WithParallelInstalls(n int) Option {
	return func(o *options) {
		o.parallel = n
	}
}

// New creates a Manager from cfg. Options take precedence over cfg.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil || cfg.DataDir == "" {
		return nil, ErrNoDataDir
	}

	o := options{client: http.DefaultClient, parallel: DefaultParallelInstalls}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.OrNoOp(o.logger)

	p := cfg.GetPlatform().ResolvePlatform()
	if o.platform != nil {
		p = *o.platform
	}

	if p == platform.Unsupported {
		return nil, errors.Wrap(releases.ErrUnsupportedPlatform, "resolving platform")
	}

	endpoints := cfg.GetReleases().Endpoints()
	if o.endpoints != nil {
		endpoints = *o.endpoints
	}

	nixos := cfg.GetPlatform().NixOS
	if o.nixos != nil {
		nixos = o.nixos
	}

	fetcherOpts := []releases.FetcherOption{
		releases.WithFetcherLogger(log),
		releases.WithRetries(cfg.GetReleases().GetRetries()),
	}
	if o.backoff > 0 {
		fetcherOpts = append(fetcherOpts, releases.WithRetryBackoff(o.backoff))
	}

	st := store.New(cfg.DataDir, BinaryName)
	fetcher := releases.NewFetcher(o.client, endpoints, fetcherOpts...)

	inst := installer.New(st, fetcher,
		installer.WithPlatform(p),
		installer.WithHTTPClient(o.client),
		installer.WithCommandRunner(o.runner),
		installer.WithToolChecker(o.tools),
		installer.WithNixOSDetector(platform.NewNixOSDetector(nixos)),
		installer.WithRequestTimeout(cfg.GetInstall().GetRequestTimeout()),
		installer.WithLockTimeout(cfg.GetInstall().GetLockTimeout()),
		installer.WithProgress(o.progress),
		installer.WithLogger(log),
	)

	log.Debug("manager ready", "data_dir", cfg.DataDir, "platform", p.String())

	return &Manager{
		platform:  p,
		store:     st,
		catalogs:  fetcher,
		installer: inst,
		parallel:  max(o.parallel, 1),
		logger:    log,
	}, nil
}

// Platform returns the platform artifacts are installed for.
func (m *Manager) Platform() platform.Platform {
	return m.platform
}

// DataDir returns the directory holding installed versions.
func (m *Manager) DataDir() string {
	return m.store.Root()
}

// Setup creates the data directory and global version pointer.
func (m *Manager) Setup() error {
	return m.store.Setup()
}

// Releases fetches the release catalog for the manager's platform.
func (m *Manager) Releases(ctx context.Context) (*releases.Catalog, error) {
	return m.catalogs.Fetch(ctx, m.platform)
}

// AllVersions lists every version published for the manager's platform,
// ascending.
func (m *Manager) AllVersions(ctx context.Context) ([]*semver.Version, error) {
	return m.catalogs.AllVersions(ctx, m.platform)
}

// ArtifactURL resolves where artifact of version is downloaded from.
func (m *Manager) ArtifactURL(version *semver.Version, artifact string) (*url.URL, error) {
	return releases.ArtifactURL(m.catalogs.Endpoints(), m.platform, version, artifact)
}

// IsAvailable reports whether version is published for the platform.
func (m *Manager) IsAvailable(ctx context.Context, version *semver.Version) (bool, error) {
	catalog, err := m.Releases(ctx)
	if err != nil {
		return false, err
	}

	_, ok := catalog.Artifact(version)

	return ok, nil
}

// Install downloads and places version. Installing an already installed
// version replaces it.
func (m *Manager) Install(ctx context.Context, version *semver.Version) (*installer.Result, error) {
	return m.installer.Install(ctx, version)
}

// InstallAll installs versions concurrently. Results are returned in the
// order of versions; the first failure cancels the remaining downloads.
// On failure the slice is still returned, with nil for every version that
// was not placed.
func (m *Manager) InstallAll(ctx context.Context, versions ...*semver.Version) ([]*installer.Result, error) {
	results := make([]*installer.Result, len(versions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallel)

	for idx, v := range versions {
		g.Go(func() error {
			res, err := m.installer.Install(gctx, v)
			results[idx] = res

			if err != nil {
				return errors.Wrapf(err, "installing %s", v)
			}

			return nil
		})
	}

	return results, g.Wait()
}

// InstalledVersions lists installed versions, ascending.
func (m *Manager) InstalledVersions() ([]*semver.Version, error) {
	return m.store.InstalledVersions()
}

// IsInstalled reports whether version has an installed binary.
func (m *Manager) IsInstalled(version *semver.Version) bool {
	return m.store.IsInstalled(version.String())
}

// GlobalVersion returns the selected version, or nil when none is selected.
func (m *Manager) GlobalVersion() (*semver.Version, error) {
	return m.store.GlobalVersion()
}

// RequireGlobalVersion is GlobalVersion but fails when nothing is selected.
func (m *Manager) RequireGlobalVersion() (*semver.Version, error) {
	v, err := m.store.GlobalVersion()
	if err != nil {
		return nil, err
	}

	if v == nil {
		return nil, svmerr.ErrGlobalVersionNotSet
	}

	return v, nil
}

// SetGlobalVersion selects version. It does not check that it is installed.
func (m *Manager) SetGlobalVersion(version *semver.Version) error {
	if err := m.store.Setup(); err != nil {
		return err
	}

	return m.store.SetGlobalVersion(version)
}

// UnsetGlobalVersion clears the selection.
func (m *Manager) UnsetGlobalVersion() error {
	if err := m.store.Setup(); err != nil {
		return err
	}

	return m.store.UnsetGlobalVersion()
}

// RemoveVersion deletes an installed version. The selection is left alone.
func (m *Manager) RemoveVersion(version *semver.Version) error {
	return m.store.RemoveVersion(version)
}

// Uninstall deletes an installed version. When it was selected, the
// highest remaining version is selected instead, or the selection is
// cleared when none remain. It returns the selection afterwards.
func (m *Manager) Uninstall(version *semver.Version) (*semver.Version, error) {
	current, err := m.store.GlobalVersion()
	if err != nil {
		return nil, err
	}

	if err := m.store.RemoveVersion(version); err != nil {
		return current, err
	}

	if current == nil || !current.Equal(version) {
		return current, nil
	}

	remaining, err := m.store.InstalledVersions()
	if err != nil {
		return nil, err
	}

	if len(remaining) == 0 {
		m.logger.Info("removed selected version, clearing selection", "version", version.String())

		return nil, m.store.UnsetGlobalVersion()
	}

	next := remaining[len(remaining)-1]
	m.logger.Info("removed selected version, selecting another", "version", version.String(), "selected", next.String())

	return next, m.store.SetGlobalVersion(next)
}

// RemoveAll deletes every installed version and clears the selection.
func (m *Manager) RemoveAll() error {
	return m.store.RemoveAll()
}

// VersionBinary returns where the binary of version lives, installed or not.
func (m *Manager) VersionBinary(version *semver.Version) string {
	return m.store.VersionBinary(version.String())
}

// Which returns the binary path of an installed version.
func (m *Manager) Which(version *semver.Version) (string, error) {
	return m.store.Which(version)
}

// ResolveBinary picks the binary to run: override when given, otherwise
// the selected version. It returns the version with its installed binary.
func (m *Manager) ResolveBinary(override *semver.Version) (*semver.Version, string, error) {
	version := override
	if version == nil {
		v, err := m.RequireGlobalVersion()
		if err != nil {
			return nil, "", err
		}

		version = v
	}

	path, err := m.store.Which(version)
	if err != nil {
		return version, "", err
	}

	return version, path, nil
}
