package platform

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// nixosID is the os-release ID reported by NixOS.
const nixosID = "nixos"

// InfoFunc returns the distribution id, family and version of the host.
type InfoFunc func(ctx context.Context) (platform, family, version string, err error)

// NixOSDetector answers whether the host is NixOS, whose binaries need their
// dynamic linker patched.
type NixOSDetector struct {
	// Override, when set, short-circuits detection.
	Override *bool

	// Root is the filesystem root probed for marker files. Empty means "/".
	Root string

	// GOOS defaults to runtime.GOOS.
	GOOS string

	// Info defaults to gopsutil's host.PlatformInformationWithContext.
	Info InfoFunc
}

// NewNixOSDetector creates a detector with an optional explicit override.
func NewNixOSDetector(override *bool) *NixOSDetector {
	return &NixOSDetector{Override: override}
}

// IsNixOS reports whether the host is NixOS.
func (d *NixOSDetector) IsNixOS(ctx context.Context) bool {
	if d.Override != nil {
		return *d.Override
	}

	goos := d.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	if goos != "linux" {
		return false
	}

	for _, marker := range []string{"etc/NIXOS", "etc/nixos"} {
		if _, err := os.Stat(d.path(marker)); err == nil {
			return true
		}
	}

	// gopsutil reads the real /etc/os-release, so only ask it for the real root.
	if d.Root == "" || d.Info != nil {
		info := d.Info
		if info == nil {
			info = host.PlatformInformationWithContext
		}

		if id, _, _, err := info(ctx); err == nil && strings.EqualFold(id, nixosID) {
			return true
		}
	}

	return d.osReleaseMentionsNixOS()
}

func (d *NixOSDetector) path(rel string) string {
	root := d.Root
	if root == "" {
		root = string(filepath.Separator)
	}

	return filepath.Join(root, rel)
}

//nolint:gosec // G304: fixed path below the detector root
func (d *NixOSDetector) osReleaseMentionsNixOS() bool {
	f, err := os.Open(d.path("etc/os-release"))
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck // read-only file

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "NixOS") {
			return true
		}
	}

	return false
}
