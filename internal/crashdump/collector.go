// Package crashdump records panics of the svm CLI to JSON files so they can
// be reported after the fact.
package crashdump

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/smykla-skalski/svm/pkg/config"
)

const (
	shortIDLength = 8

	// panicNilStr is the string representation of panic(nil).
	panicNilStr = "panic(nil)"
)

// formatPanicValue renders a recovered value.
func formatPanicValue(v any) string {
	if v == nil {
		return panicNilStr
	}

	// panic(nil) arrives as *runtime.PanicNilError
	type panicNilError interface {
		error
		RuntimeError()
	}

	if _, ok := v.(panicNilError); ok {
		return panicNilStr
	}

	if err, ok := v.(error); ok {
		return err.Error()
	}

	return fmt.Sprintf("%v", v)
}

// Inventory is the view of the data directory recorded in a dump.
type Inventory interface {
	Root() string
	InstalledVersions() ([]*semver.Version, error)
	GlobalVersion() (*semver.Version, error)
}

// Collector builds a CrashInfo from a recovered panic.
type Collector struct {
	// Version is the svm build version.
	Version string

	inventory Inventory
	now       func() time.Time
}

// NewCollector creates a Collector for the given build version.
func NewCollector(version string) *Collector {
	return &Collector{Version: version, now: time.Now}
}

// WithInventory records the installed versions and the selection in
// every dump.
func (c *Collector) WithInventory(inv Inventory) *Collector {
	c.inventory = inv

	return c
}

// Collect gathers crash information. Must be called from the deferred
// function that recovered, so the stack still shows the panic site.
func (c *Collector) Collect(recovered any, inv *InvocationInfo, cfg *config.Config) *CrashInfo {
	now := c.now()
	panicValue := formatPanicValue(recovered)

	return &CrashInfo{
		ID:         generateCrashID(now, panicValue),
		Timestamp:  now,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Runtime: RuntimeInfo{
			GOOS:         runtime.GOOS,
			GOARCH:       runtime.GOARCH,
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
		},
		Invocation: inv,
		Config:     cfg,
		State:      c.state(),
		Metadata:   c.metadata(),
	}
}

func (c *Collector) state() *StateInfo {
	if c.inventory == nil {
		return nil
	}

	state := &StateInfo{DataDir: c.inventory.Root(), Installed: []string{}}

	installed, err := c.inventory.InstalledVersions()
	if err != nil {
		state.Error = err.Error()

		return state
	}

	for _, v := range installed {
		state.Installed = append(state.Installed, v.String())
	}

	if global, err := c.inventory.GlobalVersion(); err == nil && global != nil {
		state.Global = global.String()
	}

	return state
}

func (c *Collector) metadata() DumpMetadata {
	meta := DumpMetadata{Version: c.Version}

	if hostname, err := os.Hostname(); err == nil {
		meta.Hostname = hostname
	}

	if wd, err := os.Getwd(); err == nil {
		meta.WorkingDir = wd
	}

	return meta
}

// generateCrashID returns crash-{timestamp}-{shortHash}.
func generateCrashID(timestamp time.Time, panicValue string) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%d-%s", timestamp.UnixNano(), panicValue))

	return fmt.Sprintf(
		"crash-%s-%s",
		timestamp.Format("20060102T150405"),
		hex.EncodeToString(hash[:])[:shortIDLength],
	)
}
