// Package network provides checkers that reach the release host.
package network

import (
	"context"
	"fmt"

	"github.com/smykla-skalski/svm/internal/doctor"
	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/releases"
)

// CatalogSource fetches the release catalog of a platform
type CatalogSource interface {
	Fetch(ctx context.Context, p platform.Platform) (*releases.Catalog, error)
	Endpoints() releases.Endpoints
}

// ReleasesChecker checks that the release catalog can be fetched
type ReleasesChecker struct {
	source   CatalogSource
	platform platform.Platform
}

// NewReleasesChecker creates a new release host checker
func NewReleasesChecker(source CatalogSource, p platform.Platform) *ReleasesChecker {
	return &ReleasesChecker{source: source, platform: p}
}

// Name returns the name of the check
func (*ReleasesChecker) Name() string {
	return "Release catalog"
}

// Category returns the category of the check
func (*ReleasesChecker) Category() doctor.Category {
	return doctor.CategoryNetwork
}

// Check performs the release catalog check
func (c *ReleasesChecker) Check(ctx context.Context) doctor.CheckResult {
	if !c.platform.IsSupported() {
		return doctor.Skip(c.Name(), "Unsupported platform")
	}

	url := c.source.Endpoints().ManifestURL(c.platform)

	catalog, err := c.source.Fetch(ctx, c.platform)
	if err != nil {
		return doctor.FailError(c.Name(), "Unreachable").
			WithDetails("URL: "+url, fmt.Sprintf("Error: %v", err))
	}

	latest := catalog.Latest()
	if latest == nil {
		return doctor.FailWarning(c.Name(), "No releases listed").WithDetails("URL: " + url)
	}

	return doctor.Pass(c.Name(), fmt.Sprintf("%d release(s), latest %s", len(catalog.Releases), latest)).
		WithDetails("URL: " + url)
}
