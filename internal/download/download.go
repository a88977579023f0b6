// Package download provides streaming HTTP file transfers with progress
// reporting for the provisioning pipeline.
//
// Model archives and runtime installers can be hundreds of megabytes, so the
// response body is always streamed straight to disk and never buffered whole.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const (
	copyBufferSize = 32 * 1024

	dirPermissions = 0o750
)

// Static errors.
var (
	// ErrNotFound indicates the remote responded with 404. Callers may treat
	// this as skippable rather than fatal to a whole pipeline.
	ErrNotFound = errors.New("remote file not found")
	// ErrTransferFailed indicates any other transfer failure: a non-2xx
	// status or a network error mid-stream.
	ErrTransferFailed = errors.New("transfer failed")
)

// ProgressFunc is invoked on every received chunk with the running byte count
// and the total reported by the remote. It is only called when the total is
// known.
type ProgressFunc func(received, total int64)

// Client performs single-file HTTP downloads. Transfers are not retried;
// retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
}

// New creates a download client. A zero timeout on the underlying HTTP client
// is deliberate: large artifacts on slow links have no sensible fixed bound,
// and cancellation is driven by the caller's context.
func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

// Fetch downloads url into destPath, creating parent directories as needed.
// The destination file is created before the network call begins so the path
// is reserved even if the remote stalls. onProgress may be nil.
func (c *Client) Fetch(ctx context.Context, url, destPath string, onProgress ProgressFunc) error {
	mkdirErr := os.MkdirAll(filepath.Dir(destPath), dirPermissions)
	if mkdirErr != nil {
		return fmt.Errorf("failed to create destination directory: %w", mkdirErr)
	}

	out, createErr := os.Create(destPath)
	if createErr != nil {
		return fmt.Errorf("failed to create destination file: %w", createErr)
	}

	defer func() {
		_ = out.Close()
	}()

	resp, requestErr := c.get(ctx, url)
	if requestErr != nil {
		return requestErr
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	statusErr := checkStatus(url, resp.StatusCode)
	if statusErr != nil {
		return statusErr
	}

	copyErr := copyWithProgress(out, resp.Body, resp.ContentLength, onProgress)
	if copyErr != nil {
		return fmt.Errorf("%w: streaming %s: %w", ErrTransferFailed, url, copyErr)
	}

	return nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, reqErr)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("%w: requesting %s: %w", ErrTransferFailed, url, doErr)
	}

	return resp, nil
}

func checkStatus(url string, status int) error {
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s returned status %d", ErrTransferFailed, url, status)
	}

	return nil
}

// copyWithProgress streams body into out in fixed-size chunks. When total is
// unknown (negative), no progress callbacks are made and the copy reports
// completion only.
func copyWithProgress(out io.Writer, body io.Reader, total int64, onProgress ProgressFunc) error {
	reportProgress := onProgress != nil && total > 0

	var received int64

	buf := make([]byte, copyBufferSize)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			_, writeErr := out.Write(buf[:n])
			if writeErr != nil {
				return writeErr
			}

			received += int64(n)

			if reportProgress {
				onProgress(received, total)
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}

		if readErr != nil {
			return readErr
		}
	}
}
