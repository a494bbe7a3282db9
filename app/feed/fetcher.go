package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const backoffStep = 3 * time.Second

// Fetcher downloads guide archives over HTTP with a bounded retry budget.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	retries   int

	// Backoff is multiplied by the attempt number before the next retry.
	// Defaults to backoffStep.
	Backoff time.Duration
}

// NewFetcher creates a new fetcher. The timeout applies per attempt, not
// per download.
func NewFetcher(userAgent string, timeout time.Duration, retries int) *Fetcher {
	return &Fetcher{
		client:    &http.Client{},
		userAgent: userAgent,
		timeout:   timeout,
		retries:   retries,
		Backoff:   backoffStep,
	}
}

// Fetch downloads url into dest, retrying failures with a linearly
// increasing backoff. It reports how many attempts were used; the last
// error is returned once the attempt budget is exhausted.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= f.retries; attempt++ {
		err := f.fetchOnce(ctx, url, dest)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		slog.Warn("Download failed", "url", url, "attempt", attempt, "retries", f.retries, "error", err)

		if attempt == f.retries {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(f.Backoff * time.Duration(attempt)):
		}
	}

	return f.retries, fmt.Errorf("download failed after %d attempts: %w", f.retries, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, dest string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch guide: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return nil
}
