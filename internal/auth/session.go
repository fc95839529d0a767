package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Session is the authenticated HTTP context for one harvest run:
// a cookie-carrying HTTP client plus the anti-forgery token extracted
// during authentication.
//
// Design decision: The session is an explicit value created once and
// threaded through every fetch call, rather than a process-wide client.
// This keeps ownership with the driver, lets tests substitute a session
// pointed at a local server, and leaves the door open for per-worker
// sessions if sibling fetches are ever parallelized.
type Session struct {
	// client carries the portal cookies for the lifetime of the process.
	client *http.Client

	// baseURL is the portal root used to resolve relative links.
	baseURL *url.URL

	// token is the CSRF-Magic token extracted from the entry page.
	token string

	// userAgent is sent with every request.
	userAgent string
}

// NewSession creates an unauthenticated session rooted at baseURL.
// The session carries a fresh cookie jar; it becomes useful only after
// Authenticator.Acquire has run the challenge sequence against it.
func NewSession(baseURL string, timeout time.Duration, userAgent string) (*Session, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &Session{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		baseURL:   u,
		userAgent: userAgent,
	}, nil
}

// Get issues a GET request for rawURL with the session's cookies.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	return s.client.Do(req)
}

// PostForm issues a form POST for rawURL with the session's cookies.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.client.Do(req)
}

// Resolve resolves a possibly-relative reference against the portal
// root and returns the absolute URL. Malformed references resolve to
// the empty string.
func (s *Session) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	// The portal emits links like "./stat_reports/..."; url resolution
	// handles those, but only against a directory-shaped base.
	base := *s.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// BaseURL returns the portal root this session is bound to.
func (s *Session) BaseURL() string {
	return s.baseURL.String()
}

// Token returns the anti-forgery token captured during authentication.
func (s *Session) Token() string {
	return s.token
}
