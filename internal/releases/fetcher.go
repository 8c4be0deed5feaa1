package releases

import (
	"context"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/svmerr"
	"github.com/smykla-skalski/svm/pkg/logger"
)

const (
	// DefaultRetries is the number of extra attempts for a manifest request.
	DefaultRetries = 2

	// DefaultRetryBackoff is the delay before the first retry; it doubles per attempt.
	DefaultRetryBackoff = 500 * time.Millisecond
)

// ErrUnsupportedPlatform is returned when no manifest exists for a platform.
var ErrUnsupportedPlatform = errors.New("no releases published for platform")

// Fetcher retrieves and reconciles release manifests.
type Fetcher struct {
	client    *http.Client
	endpoints Endpoints
	logger    logger.Logger
	retries   int
	backoff   time.Duration
}

// FetcherOption configures the Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets the logger.
func WithFetcherLogger(log logger.Logger) FetcherOption {
	return func(f *Fetcher) {
		if log != nil {
			f.logger = log
		}
	}
}

// WithRetries sets how many times a failed manifest request is retried.
func WithRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retries = n
		}
	}
}

// WithRetryBackoff sets the initial retry delay.
func WithRetryBackoff(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// NewFetcher creates a Fetcher. A nil client falls back to http.DefaultClient.
func NewFetcher(client *http.Client, endpoints Endpoints, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	f := &Fetcher{
		client:    client,
		endpoints: endpoints,
		logger:    logger.NewNoOpLogger(),
		retries:   DefaultRetries,
		backoff:   DefaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Endpoints returns the hosts this Fetcher reads from.
func (f *Fetcher) Endpoints() Endpoints {
	return f.endpoints
}

// Fetch returns the canonical catalog for p. It performs only reads.
func (f *Fetcher) Fetch(ctx context.Context, p platform.Platform) (*Catalog, error) {
	switch p {
	case platform.LinuxAmd64:
		return f.fetchLinuxAmd64(ctx)
	case platform.MacOsAarch64:
		return f.fetchMacOSAarch64(ctx)
	case platform.LinuxAarch64, platform.MacOsAmd64, platform.WindowsAmd64, platform.AndroidAarch64:
		return f.fetchManifest(ctx, f.endpoints.ManifestURL(p))
	default:
		return nil, errors.Wrapf(ErrUnsupportedPlatform, "%s", p)
	}
}

// AllVersions returns every version published for p in ascending order.
func (f *Fetcher) AllVersions(ctx context.Context, p platform.Platform) ([]*semver.Version, error) {
	catalog, err := f.Fetch(ctx, p)
	if err != nil {
		return nil, err
	}

	return catalog.Versions(), nil
}

func (f *Fetcher) fetchLinuxAmd64(ctx context.Context) (*Catalog, error) {
	var live, host *Catalog

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		live, err = f.fetchManifest(gctx, f.endpoints.ManifestURL(platform.LinuxAmd64))

		return err
	})

	g.Go(func() error {
		url := f.endpoints.LegacyManifestURL()

		var err error

		host, err = f.fetchManifest(gctx, url)
		if err != nil {
			// legacy versions stay listed but fail closed on install
			f.logger.Info("legacy manifest unavailable", "url", url, "error", err)

			host = &Catalog{Releases: Releases{}}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundled, err := LegacyCatalog()
	if err != nil {
		return nil, err
	}

	return MergeLegacy(WithLegacyDigests(bundled, host), live), nil
}

func (f *Fetcher) fetchMacOSAarch64(ctx context.Context) (*Catalog, error) {
	var generic, native *Catalog

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		generic, err = f.fetchManifest(gctx, f.endpoints.ManifestURL(platform.MacOsAmd64))

		return err
	})

	g.Go(func() error {
		var err error

		native, err = f.fetchManifest(gctx, f.endpoints.MacOSNativeManifestURL())

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MergeMacOSNative(generic, native), nil
}

func (f *Fetcher) fetchManifest(ctx context.Context, url string) (*Catalog, error) {
	delay := f.backoff

	for attempt := 0; ; attempt++ {
		catalog, err := f.getManifest(ctx, url)
		if err == nil {
			f.logger.Debug("fetched release manifest",
				"url", url,
				"releases", len(catalog.Releases),
			)

			return catalog, nil
		}

		if attempt >= f.retries || !svmerr.Retryable(err) {
			return nil, err
		}

		f.logger.Info("retrying release manifest", "url", url, "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "fetching release manifest")
		case <-time.After(delay):
		}

		delay *= 2
	}
}

//nolint:gosec // G107: url comes from configured release endpoints
func (f *Fetcher) getManifest(ctx context.Context, url string) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "fetching %s", url), svmerr.ErrTransport)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on response body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &svmerr.UnsuccessfulResponseError{URL: url, StatusCode: resp.StatusCode}
	}

	return Decode(resp.Body)
}
