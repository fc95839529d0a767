package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/courtgrid/internal/model"
)

// testGetter is a plain HTTP client that resolves links against the
// test server root.
type testGetter struct {
	client *http.Client
	base   *url.URL
}

func newTestGetter(t *testing.T, serverURL string, timeout time.Duration) *testGetter {
	t.Helper()
	base, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	return &testGetter{
		client: &http.Client{Timeout: timeout},
		base:   base,
	}
}

func (g *testGetter) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return g.client.Do(req)
}

func (g *testGetter) Resolve(ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return g.base.ResolveReference(u).String()
}

// reportPage is a minimal rendering of the portal's report layout:
// a navigation table followed by the report table.
const reportPage = `<html><body>
<table><tr><td>navigation</td></tr></table>
<table>
<thead>
<tr><th colspan="5">National Judicial Data</th></tr>
<tr><th>Sr No</th><th>State Name</th><th>CNR</th><th>Cases</th><th>Total</th></tr>
</thead>
<tbody>
<tr><td colspan="5">--------</td></tr>
<tr>
  <td>1</td><td>Bombay</td><td>MH01</td>
  <td><a href="stat_reports/detail.php?state=1">4521</a></td><td>4521</td>
</tr>
<tr>
  <td>2</td><td>Delhi</td><td>DL01</td>
  <td>102</td><td>102</td>
</tr>
<tr><td></td><td></td><td></td><td></td><td></td></tr>
</tbody>
</table>
</body></html>`

// TestFetchTable tests page download and table extraction.
func TestFetchTable(t *testing.T) {
	t.Parallel()

	t.Run("extracts rows with headers and link", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, reportPage)
		}))
		defer server.Close()

		captured := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
		fetcher := NewFetcher(
			newTestGetter(t, server.URL, time.Second),
			WithClock(func() time.Time { return captured }),
		)

		result, err := fetcher.FetchTable(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if result.ErrorSentinel {
			t.Fatal("expected no error sentinel")
		}
		if len(result.Rows) != 2 {
			t.Fatalf("expected 2 rows (separator and empty row skipped), got %d", len(result.Rows))
		}

		first := result.Rows[0]
		wantNames := []string{"timestamp", "url", "sr no", "state name", "cnr", "cases", "total"}
		gotNames := first.Fields.Names()
		if len(gotNames) != len(wantNames) {
			t.Fatalf("expected %d fields, got %d: %v", len(wantNames), len(gotNames), gotNames)
		}
		for i, want := range wantNames {
			if gotNames[i] != want {
				t.Errorf("field %d: expected %q, got %q", i, want, gotNames[i])
			}
		}
		if first.Fields.Get("state name") != "Bombay" {
			t.Errorf("expected cell value, got %q", first.Fields.Get("state name"))
		}
		if first.Fields.Get(model.ColTimestamp) != "2026-08-24 10:30:00" {
			t.Errorf("expected capture timestamp, got %q", first.Fields.Get(model.ColTimestamp))
		}

		wantURL := server.URL + "/stat_reports/detail.php?state=1"
		if first.URL != wantURL {
			t.Errorf("expected resolved child URL %q, got %q", wantURL, first.URL)
		}
		if first.Fields.Get(model.ColURL) != wantURL {
			t.Errorf("expected url field %q, got %q", wantURL, first.Fields.Get(model.ColURL))
		}
		if first.Status != model.StatusPending {
			t.Errorf("linked row should be pending, got %q", first.Status)
		}

		second := result.Rows[1]
		if second.URL != "" {
			t.Errorf("linkless row should have empty URL, got %q", second.URL)
		}
		if second.Status != model.StatusDone {
			t.Errorf("linkless row should be done on capture, got %q", second.Status)
		}
	})

	t.Run("non-2xx status yields error sentinel", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
		}))
		defer server.Close()

		fetcher := NewFetcher(newTestGetter(t, server.URL, time.Second))
		result, err := fetcher.FetchTable(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("expected sentinel, got error %v", err)
		}
		if !result.ErrorSentinel {
			t.Error("expected error sentinel for non-2xx status")
		}
	})

	t.Run("connection error page yields error sentinel", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body>Connection  Error</body></html>`)
		}))
		defer server.Close()

		fetcher := NewFetcher(newTestGetter(t, server.URL, time.Second))
		result, err := fetcher.FetchTable(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("expected sentinel, got error %v", err)
		}
		if !result.ErrorSentinel {
			t.Error("expected error sentinel for connection error page")
		}
	})

	t.Run("timeout yields error sentinel", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer server.Close()

		fetcher := NewFetcher(newTestGetter(t, server.URL, 50*time.Millisecond))
		result, err := fetcher.FetchTable(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("expected sentinel, got error %v", err)
		}
		if !result.ErrorSentinel {
			t.Error("expected error sentinel for timeout")
		}
	})

	t.Run("missing report table returns ErrUnexpectedShape", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body><table><tr><td>only one</td></tr></table></body></html>`)
		}))
		defer server.Close()

		fetcher := NewFetcher(newTestGetter(t, server.URL, time.Second))
		_, err := fetcher.FetchTable(context.Background(), server.URL+"/page")
		if !errors.Is(err, ErrUnexpectedShape) {
			t.Errorf("expected ErrUnexpectedShape, got %v", err)
		}
	})

	t.Run("cancelled context returns context error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, reportPage)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		fetcher := NewFetcher(newTestGetter(t, server.URL, time.Second))
		_, err := fetcher.FetchTable(ctx, server.URL+"/page")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestNormalizeHeader tests header name normalization.
func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "State Name", want: "state name"},
		{name: "collapses whitespace", in: "  Total \n Cases ", want: "total cases"},
		{name: "folds non-breaking space", in: "Sr\u00a0No", want: "sr no"},
		{name: "folds full-width characters", in: "Ｃａｓｅｓ", want: "cases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := normalizeHeader(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
