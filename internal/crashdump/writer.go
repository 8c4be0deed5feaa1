package crashdump

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/xdg"
)

const (
	// FilePerm is the mode of dump files.
	FilePerm fs.FileMode = 0o600

	// DirPerm is the mode of the dump directory.
	DirPerm fs.FileMode = 0o700

	// FileExtension is the extension of dump files.
	FileExtension = ".json"

	tempSuffix = ".tmp"
)

var (
	// ErrWriteFailed is returned when writing a crash dump fails.
	ErrWriteFailed = errors.New("failed to write crash dump")

	// ErrInvalidDumpDir is returned when the dump directory is unusable.
	ErrInvalidDumpDir = errors.New("invalid dump directory")
)

// DefaultDir returns where dumps are kept: $XDG_STATE_HOME/svm/crashes.
func DefaultDir() string {
	return xdg.CrashDir()
}

// Writer stores dumps as JSON files in one directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer for dir. A leading ~ is expanded.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, errors.Wrap(ErrInvalidDumpDir, "dump directory cannot be empty")
	}

	expanded, err := xdg.ExpandPath(dir)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDumpDir, err.Error())
	}

	return &Writer{dir: expanded}, nil
}

// Dir returns the dump directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores info and returns the file path. The file appears atomically.
func (w *Writer) Write(info *CrashInfo) (string, error) {
	if info == nil {
		return "", errors.Wrap(ErrWriteFailed, "crash info is nil")
	}

	if err := os.MkdirAll(w.dir, DirPerm); err != nil {
		return "", errors.Wrap(ErrInvalidDumpDir, err.Error())
	}

	path := filepath.Join(w.dir, info.ID+FileExtension)
	tmp := path + tempSuffix

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", errors.Wrap(ErrWriteFailed, "failed to marshal crash info")
	}

	if err := os.WriteFile(tmp, data, FilePerm); err != nil {
		return "", errors.Wrap(ErrWriteFailed, err.Error())
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return "", errors.Wrap(ErrWriteFailed, err.Error())
	}

	return path, nil
}
