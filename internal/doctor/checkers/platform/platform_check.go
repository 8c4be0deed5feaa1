// Package platform provides checkers for the target platform and the tooling
// it needs.
package platform

import (
	"context"
	"fmt"

	"github.com/smykla-skalski/svm/internal/doctor"
	"github.com/smykla-skalski/svm/internal/exec"
	"github.com/smykla-skalski/svm/internal/installer"
	"github.com/smykla-skalski/svm/internal/platform"
)

// TargetChecker checks the platform binaries are installed for
type TargetChecker struct {
	target platform.Platform
	host   platform.Platform
}

// NewTargetChecker creates a new target checker comparing target with the host
func NewTargetChecker(target platform.Platform) *TargetChecker {
	return &TargetChecker{target: target, host: platform.Current()}
}

// NewTargetCheckerFor creates a target checker for an explicit host
func NewTargetCheckerFor(target, host platform.Platform) *TargetChecker {
	return &TargetChecker{target: target, host: host}
}

// Name returns the name of the check
func (*TargetChecker) Name() string {
	return "Target platform"
}

// Category returns the category of the check
func (*TargetChecker) Category() doctor.Category {
	return doctor.CategoryPlatform
}

// Check performs the target platform check
func (c *TargetChecker) Check(_ context.Context) doctor.CheckResult {
	if !c.target.IsSupported() {
		return doctor.FailError(c.Name(), "No solc builds are published for this platform").
			WithDetails(
				"Host: "+c.host.String(),
				"Override with platform.target in the config file or --platform",
			)
	}

	if c.target != c.host {
		return doctor.FailWarning(c.Name(), fmt.Sprintf("%s differs from host %s", c.target, c.host)).
			WithDetails("Installed binaries may not run on this machine")
	}

	return doctor.Pass(c.Name(), c.target.String())
}

// NixOSDetector reports whether the host is NixOS
type NixOSDetector interface {
	IsNixOS(ctx context.Context) bool
}

// NixOSChecker checks that NixOS hosts can patch downloaded binaries
type NixOSChecker struct {
	detector NixOSDetector
	tools    exec.ToolChecker
}

// NewNixOSChecker creates a new NixOS tooling checker
func NewNixOSChecker(detector NixOSDetector, tools exec.ToolChecker) *NixOSChecker {
	return &NixOSChecker{detector: detector, tools: tools}
}

// Name returns the name of the check
func (*NixOSChecker) Name() string {
	return "NixOS patching"
}

// Category returns the category of the check
func (*NixOSChecker) Category() doctor.Category {
	return doctor.CategoryPlatform
}

// Check performs the NixOS tooling check
func (c *NixOSChecker) Check(ctx context.Context) doctor.CheckResult {
	if !c.detector.IsNixOS(ctx) {
		return doctor.Skip(c.Name(), "Not running on NixOS")
	}

	if !c.tools.IsAvailable(installer.NixShell) {
		return doctor.FailError(c.Name(), installer.NixShell+" not found").
			WithDetails(fmt.Sprintf(
				"solc %s and later must be patched with patchelf through %s",
				installer.NixOSMinPatchVersion,
				installer.NixShell,
			))
	}

	return doctor.Pass(c.Name(), installer.NixShell+" available")
}
