// Package color decides whether svm output is colored and holds the styles
// used for version listings, install summaries and doctor reports.
package color

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// EnvMode overrides detection: "always", "never" or "auto".
const EnvMode = "SVM_COLOR"

// Mode is the result of reading the environment and the --no-color flag.
type Mode int

const (
	// ModeAuto colors terminals only.
	ModeAuto Mode = iota
	// ModeNever disables color.
	ModeNever
	// ModeAlways colors pipes and files too.
	ModeAlways
)

// Detect returns the color mode. --no-color, NO_COLOR (any value),
// CLICOLOR=0 and TERM=dumb all mean ModeNever. SVM_COLOR=always wins over
// everything except --no-color.
func Detect(noColorFlag bool) Mode {
	if noColorFlag {
		return ModeNever
	}

	switch strings.ToLower(os.Getenv(EnvMode)) {
	case "always":
		return ModeAlways
	case "never":
		return ModeNever
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return ModeNever
	}

	if os.Getenv("CLICOLOR") == "0" || os.Getenv("TERM") == "dumb" {
		return ModeNever
	}

	return ModeAuto
}

// Enabled reports whether output written to f should be colored.
func Enabled(f *os.File, noColorFlag bool) bool {
	switch Detect(noColorFlag) {
	case ModeAlways:
		return true
	case ModeNever:
		return false
	default:
		return IsTerminal(f)
	}
}

// IsTerminal returns true if f is a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits int
}

// Theme holds the styles of one output stream.
type Theme struct {
	// Current marks the selected version.
	Current   lipgloss.Style
	Installed lipgloss.Style
	Available lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Header    lipgloss.Style
	Muted     lipgloss.Style
}

// NewTheme creates a Theme. When color is false, all styles are empty (no ANSI codes).
// When it is true the styles emit 256-color codes even if the output is not
// a terminal, so SVM_COLOR=always works through pipes.
func NewTheme(color bool) Theme {
	if !color {
		return Theme{}
	}

	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(termenv.ANSI256)

	green := lipgloss.Color("10")
	gray := lipgloss.Color("8")

	return Theme{
		Current:   r.NewStyle().Foreground(green).Bold(true),
		Installed: r.NewStyle().Foreground(green),
		Available: r.NewStyle().Foreground(gray),
		Success:   r.NewStyle().Foreground(green),
		Warning:   r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Header:    r.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Muted:     r.NewStyle().Foreground(gray),
	}
}
