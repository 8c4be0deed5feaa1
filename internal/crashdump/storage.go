package crashdump

import (
	"cmp"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrDumpNotFound is returned when a crash dump does not exist.
var ErrDumpNotFound = errors.New("crash dump not found")

// maxPanicLen truncates panic values in summaries.
const maxPanicLen = 80

// Storage reads and prunes dumps written by a Writer.
type Storage struct {
	dir string
}

// NewStorage creates a Storage over dir.
func NewStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

// List returns dump summaries, newest first. Unreadable files are skipped.
func (s *Storage) List() ([]DumpSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []DumpSummary{}, nil
		}

		return nil, errors.Wrap(err, "failed to read dump directory")
	}

	summaries := make([]DumpSummary, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExtension) {
			continue
		}

		summary, err := s.summary(entry)
		if err != nil {
			continue
		}

		summaries = append(summaries, summary)
	}

	slices.SortFunc(summaries, func(a, b DumpSummary) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})

	return summaries, nil
}

func (s *Storage) summary(entry os.DirEntry) (DumpSummary, error) {
	path := filepath.Join(s.dir, entry.Name())

	info, err := load(path)
	if err != nil {
		return DumpSummary{}, err
	}

	fi, err := entry.Info()
	if err != nil {
		return DumpSummary{}, errors.Wrap(err, "failed to stat dump file")
	}

	panicValue := info.PanicValue
	if len(panicValue) > maxPanicLen {
		panicValue = panicValue[:maxPanicLen] + "..."
	}

	return DumpSummary{
		ID:         info.ID,
		Timestamp:  info.Timestamp,
		PanicValue: panicValue,
		FilePath:   path,
		Size:       fi.Size(),
	}, nil
}

// Get loads a dump by ID.
func (s *Storage) Get(id string) (*CrashInfo, error) {
	return load(filepath.Join(s.dir, id+FileExtension))
}

func load(path string) (*CrashInfo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path inside the dump directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrDumpNotFound, "file: %s", path)
		}

		return nil, errors.Wrap(err, "failed to read dump file")
	}

	var info CrashInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal dump file")
	}

	return &info, nil
}

// Prune keeps the newest maxDumps dumps and returns how many were removed.
func (s *Storage) Prune(maxDumps int) (int, error) {
	summaries, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, summary := range summaries[min(max(maxDumps, 0), len(summaries)):] {
		if err := os.Remove(summary.FilePath); err != nil {
			continue
		}

		removed++
	}

	return removed, nil
}
