package crashdump

import (
	"time"

	"github.com/smykla-skalski/svm/pkg/config"
)

// CrashInfo is everything recorded about one panic.
type CrashInfo struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	PanicValue string          `json:"panic_value"`
	StackTrace string          `json:"stack_trace"`
	Runtime    RuntimeInfo     `json:"runtime"`
	Invocation *InvocationInfo `json:"invocation,omitempty"`
	Config     *config.Config  `json:"config,omitempty"`
	State      *StateInfo      `json:"state,omitempty"`
	Metadata   DumpMetadata    `json:"metadata"`
}

// StateInfo is the data directory as it was when svm crashed.
type StateInfo struct {
	DataDir   string   `json:"data_dir"`
	Installed []string `json:"installed"`
	Global    string   `json:"global,omitempty"`

	// Error is set when the directory could not be read.
	Error string `json:"error,omitempty"`
}

// RuntimeInfo describes the Go runtime at crash time.
type RuntimeInfo struct {
	GOOS         string `json:"goos"`
	GOARCH       string `json:"goarch"`
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
}

// InvocationInfo describes the command that crashed.
type InvocationInfo struct {
	Command  string   `json:"command"`
	Args     []string `json:"args,omitempty"`
	Platform string   `json:"platform,omitempty"`
}

// DumpMetadata identifies the build and host.
type DumpMetadata struct {
	Version    string `json:"version"`
	Hostname   string `json:"hostname,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
}

// DumpSummary is a listing row for a stored dump.
type DumpSummary struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	PanicValue string    `json:"panic_value"`
	FilePath   string    `json:"file_path"`
	Size       int64     `json:"size"`
}
