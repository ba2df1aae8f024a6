// Package datasource abstracts where workbook bytes come from. A Source
// yields a readable stream; whether that stream is a local file or an HTTP
// download is invisible to the decoding stages downstream.
package datasource

import (
	"context"
	"fmt"
	"io"

	"xlcsv/internal/config"
	"xlcsv/internal/datasource/file"
	"xlcsv/internal/datasource/httpds"
)

// Source yields the raw workbook bytes. Open may be called once per
// conversion; the caller owns closing the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FromConfig builds the Source selected by cfg.Kind ("file" or "http";
// empty means "file").
func FromConfig(cfg config.Source) (Source, error) {
	switch cfg.Kind {
	case "", "file":
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("file source: path is required")
		}
		return file.NewLocal(cfg.File.Path), nil
	case "http":
		if cfg.HTTP.URL == "" {
			return nil, fmt.Errorf("http source: url is required")
		}
		client := httpds.NewClient(httpds.Config{MaxRetries: cfg.HTTP.MaxRetries})
		remote := httpds.NewRemote(client, cfg.HTTP.URL)
		if cfg.HTTP.KeepDir != "" {
			remote = remote.KeepCopies(cfg.HTTP.KeepDir)
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", cfg.Kind)
	}
}
