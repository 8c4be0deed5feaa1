package installer

import (
	"context"
	"crypto/sha256"
	"hash"
	"io"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/internal/svmerr"
)

// ProgressFunc is called during download with bytes received and total bytes.
// Total is -1 when the server doesn't send Content-Length.
type ProgressFunc func(received, total int64)

// downloader streams an artifact into a file while hashing it.
type downloader struct {
	client   *http.Client
	progress ProgressFunc
}

// download writes the body of url to out and returns the SHA-256 of what
// was written along with its size.
//
//nolint:gosec // G107: url is resolved from the release catalog endpoints
func (d *downloader) download(ctx context.Context, url string, out *os.File) ([]byte, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "creating request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, errors.Mark(errors.Wrapf(err, "downloading %s", url), svmerr.ErrTransport)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on response body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, 0, &svmerr.UnsuccessfulResponseError{URL: url, StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body

	if d.progress != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			callback: d.progress,
		}
	}

	var h hash.Hash = sha256.New()

	n, err := io.Copy(io.MultiWriter(out, h), reader)
	if err != nil {
		return nil, n, errors.Mark(errors.Wrap(err, "writing download to file"), svmerr.ErrTransport)
	}

	return h.Sum(nil), n, nil
}

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	received int64
	callback ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.received += int64(n)

	if r.callback != nil {
		r.callback(r.received, r.total)
	}

	return n, err
}
