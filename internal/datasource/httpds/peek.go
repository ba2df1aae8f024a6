package httpds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// xlsx files are zip archives; the first four bytes are the local file
// header magic.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// LooksLikeWorkbook reports whether b starts with the zip magic shared by
// all .xlsx files. It cannot distinguish a workbook from any other zip, but
// it cheaply rejects HTML error pages and plain-text responses.
func LooksLikeWorkbook(b []byte) bool {
	return bytes.HasPrefix(b, zipMagic)
}

// FetchFirstBytes retrieves up to n bytes from the given URL using HTTP GET.
// The probe tool uses it to sniff remote files for the workbook magic before
// committing to a full download.
//
// It:
//   - Adds a Range header ("bytes=0-(n-1)") as an optimization
//   - Uses a client-side LimitedReader so the result is capped even when
//     the server ignores the Range header.
//
// The returned slice length is <= n.
func (c *Client) FetchFirstBytes(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: n must be > 0")
	}

	h := make(http.Header)
	h.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := c.Do(ctx, http.MethodGet, url, h)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Regardless of 206 or 200, only read up to n bytes.
	lr := &io.LimitedReader{R: resp.Body, N: int64(n)}

	var buf bytes.Buffer
	_, err = buf.ReadFrom(lr)
	if err != nil && err != io.EOF {
		return nil, err
	}

	return buf.Bytes(), nil
}
