package index

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Download fetches the bulk index to a local file and returns the
// index timestamp: the downloaded file's modification time, which
// identifies this snapshot across recovery runs.
func Download(ctx context.Context, client *http.Client, url, path string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("build index request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("download index from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("download index from %s: HTTP %s", url, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("create index file %s: %w", path, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return time.Time{}, fmt.Errorf("write index file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return time.Time{}, fmt.Errorf("close index file %s: %w", path, err)
	}

	return Timestamp(path)
}

// Timestamp returns the index timestamp of an already downloaded file.
func Timestamp(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat index file %s: %w", path, err)
	}
	return info.ModTime(), nil
}
