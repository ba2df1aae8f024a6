package httpds

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Remote downloads a workbook over HTTP and presents it as a readable
// stream. It satisfies the datasource contract (Open once per conversion,
// caller closes).
type Remote struct {
	client *Client
	url    string

	// keepDir, when non-empty, saves a copy of each downloaded workbook
	// under a URL-derived filename and serves the conversion from that
	// copy. Useful for auditing what was actually converted.
	keepDir string
}

// NewRemote returns a Remote source for url using client.
func NewRemote(client *Client, url string) *Remote {
	return &Remote{client: client, url: url}
}

// KeepCopies enables saving downloaded workbooks under dir. The filename is
// derived from the URL (see SafeFilenameFromURL) with an .xlsx extension.
func (r *Remote) KeepCopies(dir string) *Remote {
	r.keepDir = dir
	return r
}

// Open performs the GET (with the client's retry policy) and returns the
// response body. Any status outside 2xx is an error; retryable statuses
// were already retried inside the client.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch workbook %s: %w", r.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch workbook %s: status %s", r.url, resp.Status)
	}
	if r.keepDir == "" {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	return r.saveCopy(resp.Body)
}

// saveCopy spools the download to keepDir and reopens the saved file for
// reading.
func (r *Remote) saveCopy(body io.Reader) (io.ReadCloser, error) {
	if err := os.MkdirAll(r.keepDir, 0o755); err != nil {
		return nil, fmt.Errorf("keep dir %s: %w", r.keepDir, err)
	}
	path := filepath.Join(r.keepDir, SafeFilenameFromURL(r.url)+".xlsx")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("save workbook copy: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return nil, fmt.Errorf("save workbook copy %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("save workbook copy %s: %w", path, err)
	}
	saved, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reopen workbook copy %s: %w", path, err)
	}
	return saved, nil
}
