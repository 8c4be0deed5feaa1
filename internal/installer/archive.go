package installer

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	binaryFileMode = 0o755
	dirFileMode    = 0o755

	// zipBinaryName is the executable inside legacy Windows archives.
	zipBinaryName = "solc.exe"
)

// extractZip unpacks every entry of the archive at archivePath into destDir.
//
//nolint:gosec // G304: archivePath is a temp file we just downloaded
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "opening zip archive")
	}
	defer r.Close() //nolint:errcheck // read-only zip

	for _, f := range r.File {
		dest, err := safePath(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, dirFileMode); err != nil {
				return errors.Wrapf(err, "creating %s", dest)
			}

			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), dirFileMode); err != nil {
			return errors.Wrapf(err, "creating %s", filepath.Dir(dest))
		}

		if err := extractEntry(f, dest); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening zip entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck // read-only entry

	return extractToFile(dest, rc)
}

// safePath validates that name resolves to a path within baseDir, preventing
// path traversal (Zip Slip) from crafted archive entries.
func safePath(baseDir, name string) (string, error) {
	cleanBase := filepath.Clean(baseDir) + string(os.PathSeparator)
	cleanDest := filepath.Clean(filepath.Join(baseDir, name))

	if !strings.HasPrefix(cleanDest, cleanBase) {
		return "", errors.Errorf("path traversal attempt: %q escapes %q", name, baseDir)
	}

	return cleanDest, nil
}

// extractToFile writes reader to destPath with executable permissions.
//
//nolint:gosec // G304,G110: destPath is inside the version directory; archives are checksum-verified
func extractToFile(destPath string, reader io.Reader) error {
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, binaryFileMode)
	if err != nil {
		return errors.Wrap(err, "creating extracted file")
	}

	_, copyErr := io.Copy(out, reader)

	if closeErr := out.Close(); closeErr != nil && copyErr == nil {
		return errors.Wrap(closeErr, "closing extracted file")
	}

	return errors.Wrap(copyErr, "extracting archive entry")
}
