package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/courtgrid/internal/model"
)

// Getter issues authenticated GET requests and resolves portal links.
// auth.Session satisfies it; tests substitute a local implementation.
type Getter interface {
	// Get issues a GET request for rawURL with session credentials.
	Get(ctx context.Context, rawURL string) (*http.Response, error)

	// Resolve resolves a possibly-relative reference to an absolute URL.
	Resolve(ref string) string
}

// DefaultMaxBodySize bounds a report page download.
const DefaultMaxBodySize = 2 << 20

// transientMarkers are body substrings the portal serves on pages that
// loaded with HTTP 200 but carry no report. The double-space variant is
// a real rendering the portal produces under load.
var transientMarkers = []string{
	"Connection Error",
	"Connection  Error",
}

// Result is the outcome of fetching one report page.
type Result struct {
	// Rows are the extracted child nodes in table display order.
	// Empty when ErrorSentinel is set.
	Rows []*model.Node

	// ErrorSentinel reports that the fetch failed transiently and the
	// parent should record a sentinel child for retry next pass.
	ErrorSentinel bool
}

// Fetcher downloads report pages over an authenticated session and
// extracts their tables.
type Fetcher struct {
	getter      Getter
	maxBodySize int64
	logger      *slog.Logger

	// now is injected in tests for deterministic timestamps.
	now func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxBodySize caps the number of bytes read from a report page.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithLogger sets the structured logger for fetch progress.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClock sets the capture-time source. Used by tests.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher creates a fetcher riding on the given session.
func NewFetcher(getter Getter, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		getter:      getter,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchTable downloads the report page at rawURL and extracts its
// table rows.
//
// Failure handling follows three tiers:
//   - Transient failures (timeouts, non-2xx statuses, connection error
//     pages) return Result{ErrorSentinel: true} with a nil error; the
//     crawler records them and retries next pass.
//   - A cancelled context returns ctx.Err() so the pass stops cleanly.
//   - Structural surprises return ErrUnexpectedShape and other
//     transport faults return their underlying error; both abort the
//     pass because retrying will not help without operator attention.
func (f *Fetcher) FetchTable(ctx context.Context, rawURL string) (*Result, error) {
	resp, err := f.getter.Get(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTimeout(err) {
			f.logger.WarnContext(ctx, "fetch timed out", "url", rawURL)
			return &Result{ErrorSentinel: true}, nil
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.WarnContext(ctx, "fetch returned bad status",
			"url", rawURL, "status", resp.StatusCode)
		return &Result{ErrorSentinel: true}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.WarnContext(ctx, "fetch body read failed", "url", rawURL, "error", err)
		return &Result{ErrorSentinel: true}, nil
	}

	page := string(body)
	for _, marker := range transientMarkers {
		if strings.Contains(page, marker) {
			f.logger.WarnContext(ctx, "portal served connection error page", "url", rawURL)
			return &Result{ErrorSentinel: true}, nil
		}
	}

	rows, err := parseTable(strings.NewReader(page), f.getter.Resolve, f.now())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}

	f.logger.DebugContext(ctx, "fetched report page", "url", rawURL, "rows", len(rows))
	return &Result{Rows: rows}, nil
}

// isTimeout reports whether err is a deadline expiry rather than a
// hard transport fault.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
