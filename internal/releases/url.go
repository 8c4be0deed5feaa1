package releases

import (
	"net/url"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/svmerr"
)

const (
	// DefaultBaseURL hosts the official per-platform release directories.
	DefaultBaseURL = "https://binaries.soliditylang.org"

	// DefaultLegacyPrefix hosts linux-amd64 builds missing from the official index.
	DefaultLegacyPrefix = "https://raw.githubusercontent.com/crytic/solc/master/linux/amd64"

	// DefaultLinuxAarch64Prefix is a pinned community snapshot of linux-aarch64 builds.
	DefaultLinuxAarch64Prefix = "https://raw.githubusercontent.com/nikitastupin/solc/" +
		"4a9cdcdba32543cbf7ffab7b364949ec307b838e/linux/aarch64"

	// DefaultMacOSAarch64Prefix is a pinned snapshot of native Apple Silicon builds.
	DefaultMacOSAarch64Prefix = "https://raw.githubusercontent.com/alloy-rs/solc-builds/" +
		"e4b80d33bc4d015b2fc3583e217fbf248b2014e1/macosx/aarch64"

	manifestName = "list.json"
)

// Version windows. All bounds are inclusive where used as ranges.
var (
	LegacyMin          = semver.New(0, 4, 0, "", "")
	LegacyMax          = semver.New(0, 4, 9, "", "")
	LinuxAarch64Min    = semver.New(0, 5, 0, "", "")
	MacOSAmd64Min      = semver.New(0, 4, 0, "", "")
	MacOSNativeMin     = semver.New(0, 8, 5, "", "")
	MacOSUniversalFrom = semver.New(0, 8, 24, "", "")
)

// Endpoints holds the hosts artifacts and manifests are fetched from.
type Endpoints struct {
	BaseURL            string
	LegacyPrefix       string
	LinuxAarch64Prefix string
	MacOSAarch64Prefix string
}

// DefaultEndpoints returns the public release hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		BaseURL:            DefaultBaseURL,
		LegacyPrefix:       DefaultLegacyPrefix,
		LinuxAarch64Prefix: DefaultLinuxAarch64Prefix,
		MacOSAarch64Prefix: DefaultMacOSAarch64Prefix,
	}
}

// ManifestURL returns the live manifest location for p.
func (e Endpoints) ManifestURL(p platform.Platform) string {
	switch p {
	case platform.LinuxAarch64:
		return e.LinuxAarch64Prefix + "/" + manifestName
	default:
		return e.BaseURL + "/" + p.String() + "/" + manifestName
	}
}

// LegacyManifestURL returns the legacy host's manifest location.
func (e Endpoints) LegacyManifestURL() string {
	return e.LegacyPrefix + "/" + manifestName
}

// MacOSNativeManifestURL returns the native Apple Silicon manifest location.
func (e Endpoints) MacOSNativeManifestURL() string {
	return e.MacOSAarch64Prefix + "/" + manifestName
}

func inRange(v, lo, hi *semver.Version) bool {
	return v.Compare(lo) >= 0 && v.Compare(hi) <= 0
}

// ArtifactURL resolves the download location of artifact for version on p.
// The first matching rule wins:
//
//  1. linux-amd64 within [0.4.0, 0.4.9] uses the legacy mirror.
//  2. linux-aarch64 below 0.5.0 is unsupported; otherwise the pinned snapshot.
//  3. macosx-amd64 below 0.4.0 is unsupported.
//  4. macosx-aarch64 within [0.8.5, 0.8.24] uses the native snapshot; any
//     other version uses the macosx-amd64 directory.
//  5. Everything else uses {base}/{platform}/{artifact}.
func ArtifactURL(e Endpoints, p platform.Platform, version *semver.Version, artifact string) (*url.URL, error) {
	var raw string

	switch {
	case p == platform.LinuxAmd64 && inRange(version, LegacyMin, LegacyMax):
		raw = e.LegacyPrefix + "/" + artifact
	case p == platform.LinuxAarch64:
		if version.LessThan(LinuxAarch64Min) {
			return nil, unsupported(version, p)
		}

		raw = e.LinuxAarch64Prefix + "/" + artifact
	case p == platform.MacOsAmd64 && version.LessThan(MacOSAmd64Min):
		return nil, unsupported(version, p)
	case p == platform.MacOsAarch64:
		if inRange(version, MacOSNativeMin, MacOSUniversalFrom) {
			raw = e.MacOSAarch64Prefix + "/" + artifact
		} else {
			raw = e.BaseURL + "/" + platform.MacOsAmd64.String() + "/" + artifact
		}
	default:
		raw = e.BaseURL + "/" + p.String() + "/" + artifact
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing artifact url %q", raw)
	}

	return u, nil
}

func unsupported(version *semver.Version, p platform.Platform) error {
	return &svmerr.UnsupportedVersionError{Version: version.String(), Platform: p.String()}
}
