package exec

//go:generate mockgen -source=tool.go -destination=tool_mock.go -package=exec

import (
	"os/exec"

	"github.com/cockroachdb/errors"
)

// ErrToolNotFound matches every ToolNotFoundError.
var ErrToolNotFound = errors.New("tool not found in PATH")

// ToolChecker looks up external programs svm shells out to.
type ToolChecker interface {
	// IsAvailable reports whether tool resolves on PATH.
	IsAvailable(tool string) bool

	// RequireTool fails with a ToolNotFoundError when tool is missing.
	RequireTool(tool string) error
}

type toolChecker struct{}

// NewToolChecker creates a ToolChecker backed by exec.LookPath.
//
//nolint:ireturn // small interface replaced in tests
func NewToolChecker() ToolChecker {
	return toolChecker{}
}

func (toolChecker) IsAvailable(tool string) bool {
	_, err := exec.LookPath(tool)

	return err == nil
}

func (t toolChecker) RequireTool(tool string) error {
	if t.IsAvailable(tool) {
		return nil
	}

	err := error(&ToolNotFoundError{Tool: tool})
	if hint, ok := toolHints[tool]; ok {
		err = errors.WithHint(err, hint)
	}

	return err
}

// toolHints tell the user how to get a missing tool.
var toolHints = map[string]string{
	"nix-shell": "install Nix, or set platform.nixos = false if this is not NixOS",
}

// ToolNotFoundError is returned when a required tool is not on PATH.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return ErrToolNotFound.Error() + ": " + e.Tool
}

// Is matches ErrToolNotFound.
func (*ToolNotFoundError) Is(target error) bool {
	return target == ErrToolNotFound
}
