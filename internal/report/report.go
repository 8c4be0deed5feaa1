// Package report renders version listings and install summaries for the CLI.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/x/ansi"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/smykla-skalski/svm/internal/color"
)

// Format selects how a listing is rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported formats.
var ErrUnknownFormat = errors.New("unknown output format")

// durationDisplayUnits limits install durations to e.g. "1 minute 3 seconds".
const durationDisplayUnits = 2

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))

	switch f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q, must be one of table, json, yaml", s)
	}
}

// Status is the state of one version in a listing.
type Status string

const (
	StatusCurrent   Status = "current"
	StatusInstalled Status = "installed"
	StatusAvailable Status = "available"
)

// Entry is one row of a listing.
type Entry struct {
	Version string `json:"version"        yaml:"version"`
	Status  Status `json:"status"         yaml:"status"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Listing groups the current, installed and remotely available versions.
type Listing struct {
	Platform  string   `json:"platform"          yaml:"platform"`
	Current   string   `json:"current,omitempty" yaml:"current,omitempty"`
	Installed []string `json:"installed"         yaml:"installed"`
	Available []string `json:"available"         yaml:"available"`

	entries []Entry
}

// NewListing builds a listing. Versions in available that are installed
// are not repeated; pathOf returns the binary path of an installed version.
func NewListing(
	platform string,
	current *semver.Version,
	installed, available []*semver.Version,
	pathOf func(*semver.Version) string,
) *Listing {
	l := &Listing{
		Platform:  platform,
		Installed: []string{},
		Available: []string{},
	}

	if current != nil {
		l.Current = current.String()
	}

	installed = sorted(installed)
	seen := make(map[string]bool, len(installed))

	for _, v := range installed {
		s := v.String()
		seen[s] = true
		l.Installed = append(l.Installed, s)

		status := StatusInstalled
		if s == l.Current {
			status = StatusCurrent
		}

		l.entries = append(l.entries, Entry{Version: s, Status: status, Path: pathOf(v)})
	}

	for _, v := range sorted(available) {
		s := v.String()
		if seen[s] {
			continue
		}

		l.Available = append(l.Available, s)
		l.entries = append(l.entries, Entry{Version: s, Status: StatusAvailable})
	}

	return l
}

// Entries returns one row per version, installed ones first.
func (l *Listing) Entries() []Entry {
	return slices.Clone(l.entries)
}

func sorted(vs []*semver.Version) []*semver.Version {
	out := slices.Clone(vs)
	slices.SortFunc(out, func(a, b *semver.Version) int {
		return a.Compare(b)
	})

	return out
}

// Render writes l to w in the given format.
func Render(w io.Writer, l *Listing, format Format, theme color.Theme) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(l, "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(l)
	case FormatTable, "":
		data = []byte(RenderTable(l, theme) + "\n")
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", format)
	}

	if err != nil {
		return errors.Wrapf(err, "encoding %s listing", format)
	}

	_, err = w.Write(data)

	return errors.Wrap(err, "writing listing")
}

// RenderTable draws the listing as a rounded table.
func RenderTable(l *Listing, theme color.Theme) string {
	var buf bytes.Buffer

	t := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleRounded),
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
		tablewriter.WithConfig(tablewriter.NewConfigBuilder().
			WithTrimSpace(tw.Off).
			Build()),
	)

	t.Header([]string{"Version", "Status", "Path"})

	versionW := 0
	for _, e := range l.entries {
		versionW = max(versionW, len(e.Version))
	}

	for _, e := range l.entries {
		_ = t.Append([]string{
			padToWidth(styleVersion(e, theme), versionW),
			styleStatus(e.Status, theme),
			e.Path,
		})
	}

	_ = t.Render()

	return dimBorders(strings.TrimRight(buf.String(), "\n"), theme)
}

func styleVersion(e Entry, theme color.Theme) string {
	switch e.Status {
	case StatusCurrent:
		return theme.Current.Render(e.Version)
	case StatusInstalled:
		return theme.Installed.Render(e.Version)
	default:
		return theme.Available.Render(e.Version)
	}
}

func styleStatus(s Status, theme color.Theme) string {
	if s == StatusAvailable {
		return theme.Muted.Render(string(s))
	}

	return string(s)
}

// padToWidth right-pads s with spaces so its display width reaches w.
// ANSI escape codes are excluded from width calculation.
func padToWidth(s string, w int) string {
	visible := runewidth.StringWidth(ansi.Strip(s))
	if visible >= w {
		return s
	}

	return s + strings.Repeat(" ", w-visible)
}

// dimBorders applies the muted theme style to all box-drawing border
// characters in the rendered table output.
func dimBorders(s string, theme color.Theme) string {
	for _, ch := range []string{
		"╭", "╮", "╰", "╯", "│", "─", "┬", "┴", "├", "┤", "┼",
	} {
		s = strings.ReplaceAll(s, ch, theme.Muted.Render(ch))
	}

	return s
}

// Size formats a byte count for humans, e.g. "8.9 MB".
func Size(n int64) string {
	if n < 0 {
		return "unknown"
	}

	return humanize.Bytes(uint64(n))
}

// Duration formats an install duration, e.g. "1 minute 3 seconds".
func Duration(d time.Duration) string {
	if d < time.Millisecond {
		return "0 seconds"
	}

	return durafmt.Parse(d).LimitFirstN(durationDisplayUnits).String()
}

// Installed returns the one-line summary printed after an install.
func Installed(version, path string, size int64, took time.Duration, theme color.Theme) string {
	return fmt.Sprintf("%s %s (%s in %s) at %s",
		theme.Success.Render("installed"),
		version,
		Size(size),
		Duration(took),
		path,
	)
}
