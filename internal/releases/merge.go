package releases

import (
	_ "embed"
	"maps"

	"github.com/cockroachdb/errors"
)

//go:embed list/linux-amd64-old.json
var legacyManifest []byte

// LegacyCatalog parses the bundled linux-amd64 manifest of builds that the
// official index does not list. It names artifacts only; digests come from
// the legacy host's own manifest via WithLegacyDigests. It is decoded on
// every call.
func LegacyCatalog() (*Catalog, error) {
	c, err := DecodeBytes(legacyManifest)
	if err != nil {
		return nil, errors.Wrap(err, "bundled legacy manifest")
	}

	return c, nil
}

// WithLegacyDigests returns a copy of bundled carrying the builds host
// publishes for bundled versions inside [LegacyMin, LegacyMax]. Builds
// outside that window or without a bundled artifact are ignored, and
// all-zero digests are never accepted.
func WithLegacyDigests(bundled, host *Catalog) *Catalog {
	out := &Catalog{Releases: maps.Clone(bundled.Releases)}
	if out.Releases == nil {
		out.Releases = Releases{}
	}

	for _, b := range bundled.Builds {
		if !b.SHA256.IsZero() {
			out.Builds = append(out.Builds, b)
		}
	}

	for _, b := range host.Builds {
		if !inRange(b.Version, LegacyMin, LegacyMax) || b.SHA256.IsZero() {
			continue
		}

		if _, listed := bundled.Artifact(b.Version); !listed {
			continue
		}

		if _, dup := out.Checksum(b.Version); dup {
			continue
		}

		out.Builds = append(out.Builds, b)
	}

	return out
}

// MergeLegacy unions the bundled legacy catalog with the live one. On a
// version collision the live build and artifact win.
func MergeLegacy(legacy, live *Catalog) *Catalog {
	out := &Catalog{Releases: Releases{}}

	for _, b := range legacy.Builds {
		if _, shadowed := live.Checksum(b.Version); !shadowed {
			out.Builds = append(out.Builds, b)
		}
	}

	out.Builds = append(out.Builds, live.Builds...)

	for v, artifact := range legacy.Releases {
		out.Releases[v] = artifact
	}

	for v, artifact := range live.Releases {
		out.Releases[v] = artifact
	}

	return out
}

// MergeMacOSNative combines the generic macosx-amd64 catalog with the native
// Apple Silicon one. Generic entries inside [0.8.5, 0.8.24] are dropped,
// then both are unioned with native entries winning on overlap.
func MergeMacOSNative(generic, native *Catalog) *Catalog {
	out := &Catalog{Releases: Releases{}}

	for _, b := range generic.Builds {
		if inRange(b.Version, MacOSNativeMin, MacOSUniversalFrom) {
			continue
		}

		if _, shadowed := native.Checksum(b.Version); shadowed {
			continue
		}

		out.Builds = append(out.Builds, b)
	}

	out.Builds = append(out.Builds, native.Builds...)

	for _, v := range generic.Versions() {
		if inRange(v, MacOSNativeMin, MacOSUniversalFrom) {
			continue
		}

		out.Releases[v.String()] = generic.Releases[v.String()]
	}

	for v, artifact := range native.Releases {
		out.Releases[v] = artifact
	}

	return out
}
