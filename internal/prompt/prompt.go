// Package prompt asks the user yes/no questions before destructive or
// network-bound actions.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/color"
)

// ErrInvalidInput is returned when the answer is neither yes nor no.
var ErrInvalidInput = errors.New("invalid input")

// Prompter asks yes/no questions.
type Prompter interface {
	// Confirm asks question and returns the answer, or defaultValue on an
	// empty line.
	Confirm(question string, defaultValue bool) (bool, error)
}

// StdPrompter reads answers from a line-oriented reader.
type StdPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewPrompter creates a StdPrompter reading from r and writing questions to w.
func NewPrompter(r io.Reader, w io.Writer) *StdPrompter {
	return &StdPrompter{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// Confirm asks a yes/no question.
func (p *StdPrompter) Confirm(question string, defaultValue bool) (bool, error) {
	choices := "y/N"
	if defaultValue {
		choices = "Y/n"
	}

	if _, err := fmt.Fprintf(p.writer, "%s [%s]: ", question, choices); err != nil {
		return false, errors.Wrap(err, "failed to write prompt")
	}

	input, err := p.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || input == "") {
		return false, errors.Wrap(err, "failed to read input")
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return defaultValue, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, errors.Wrapf(ErrInvalidInput, "expected y/n, got %q", strings.TrimSpace(input))
	}
}

// fixed answers every question without reading input.
type fixed struct {
	answer *bool
}

// Confirm returns the fixed answer, or defaultValue when there is none.
func (f fixed) Confirm(_ string, defaultValue bool) (bool, error) {
	if f.answer != nil {
		return *f.answer, nil
	}

	return defaultValue, nil
}

// AssumeYes returns a Prompter that answers yes to everything.
//
//nolint:ireturn // callers only need the interface
func AssumeYes() Prompter {
	yes := true

	return fixed{answer: &yes}
}

// Defaults returns a Prompter that always takes the default answer.
//
//nolint:ireturn // callers only need the interface
func Defaults() Prompter {
	return fixed{}
}

// ForTerminal returns a StdPrompter on stdin and stderr when both are
// terminals. Otherwise it returns AssumeYes if assumeYes is set, or Defaults.
//
//nolint:ireturn // callers only need the interface
func ForTerminal(assumeYes bool) Prompter {
	switch {
	case assumeYes:
		return AssumeYes()
	case color.IsTerminal(os.Stdin) && color.IsTerminal(os.Stderr):
		return NewPrompter(os.Stdin, os.Stderr)
	default:
		return Defaults()
	}
}
