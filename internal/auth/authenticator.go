package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// entryPage is the portal page that sets the session cookie and
	// embeds the anti-forgery token.
	entryPage = "index.php"

	// challengeImagePath serves the visual challenge for the current
	// session cookie.
	challengeImagePath = "securimage/securimage_show.php"

	// loginPage receives the token, the solved answer, and the guest
	// login marker.
	loginPage = "o_index.php"

	// successFrame is the iframe target present only on the
	// post-authentication page.
	successFrame = "frames.php"

	// maxChallengeImageSize bounds the challenge image download.
	maxChallengeImageSize = 1 << 20
)

// tokenPattern matches the inline script assignment that carries the
// CSRF-Magic token on the entry page.
var tokenPattern = regexp.MustCompile(`var csrfMagicToken = "(.*?)"`)

// Authenticator runs the challenge sequence against the portal until a
// session is accepted or the attempt budget runs out.
type Authenticator struct {
	baseURL    string
	solver     Solver
	attempts   int
	retryDelay time.Duration
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithAttempts sets the maximum number of challenge attempts.
func WithAttempts(n int) Option {
	return func(a *Authenticator) {
		if n > 0 {
			a.attempts = n
		}
	}
}

// WithRetryDelay sets the pause between failed challenge attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(a *Authenticator) {
		if d >= 0 {
			a.retryDelay = d
		}
	}
}

// WithTimeout sets the per-request timeout for the session client.
func WithTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(a *Authenticator) {
		if ua != "" {
			a.userAgent = ua
		}
	}
}

// WithLogger sets the structured logger for attempt progress.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator creates an authenticator for the portal at baseURL
// using solver to answer the visual challenge.
func NewAuthenticator(baseURL string, solver Solver, opts ...Option) *Authenticator {
	a := &Authenticator{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		solver:     solver,
		attempts:   5,
		retryDelay: 2 * time.Second,
		timeout:    10 * time.Second,
		userAgent:  "courtgrid",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire runs the challenge sequence with a fresh session per attempt
// and returns the first accepted session.
//
// Design decision: Each attempt starts from a clean cookie jar and a
// fresh token. The portal binds the challenge answer to the session
// cookie that fetched the image, so reusing a stale cookie after a
// rejected answer only wastes an attempt.
func (a *Authenticator) Acquire(ctx context.Context) (*Session, error) {
	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.retryDelay):
			}
		}

		session, err := a.attemptOnce(ctx)
		if err == nil {
			a.logger.InfoContext(ctx, "session authenticated", "attempt", attempt)
			return session, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		a.logger.WarnContext(ctx, "challenge attempt failed",
			"attempt", attempt,
			"max_attempts", a.attempts,
			"error", err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrAuthentication, a.attempts, lastErr)
}

// attemptOnce runs one full challenge sequence on a fresh session.
func (a *Authenticator) attemptOnce(ctx context.Context) (*Session, error) {
	session, err := NewSession(a.baseURL, a.timeout, a.userAgent)
	if err != nil {
		return nil, err
	}

	token, err := a.fetchToken(ctx, session)
	if err != nil {
		return nil, err
	}
	session.token = token

	image, err := a.fetchChallengeImage(ctx, session)
	if err != nil {
		return nil, err
	}

	answer, err := a.solver.Solve(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to solve challenge: %w", err)
	}

	if err := a.submitChallenge(ctx, session, token, answer); err != nil {
		return nil, err
	}
	return session, nil
}

// fetchToken loads the entry page and extracts the anti-forgery token.
func (a *Authenticator) fetchToken(ctx context.Context, session *Session) (string, error) {
	resp, err := session.Get(ctx, a.baseURL+"/"+entryPage)
	if err != nil {
		return "", fmt.Errorf("failed to fetch entry page: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("entry page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChallengeImageSize))
	if err != nil {
		return "", fmt.Errorf("failed to read entry page: %w", err)
	}

	matches := tokenPattern.FindSubmatch(body)
	if matches == nil || len(matches[1]) == 0 {
		return "", ErrTokenNotFound
	}
	return string(matches[1]), nil
}

// fetchChallengeImage downloads the visual challenge bound to the
// session cookie.
func (a *Authenticator) fetchChallengeImage(ctx context.Context, session *Session) ([]byte, error) {
	resp, err := session.Get(ctx, a.baseURL+"/"+challengeImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("challenge image returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxChallengeImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge image: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("challenge image is empty")
	}
	return image, nil
}

// submitChallenge posts the token and solved answer, then checks the
// response for the post-authentication frame marker.
func (a *Authenticator) submitChallenge(ctx context.Context, session *Session, token, answer string) error {
	form := url.Values{
		"__csrf_magic": {token},
		"captcha":      {answer},
		"guestlogin":   {"Go"},
	}

	resp, err := session.PostForm(ctx, a.baseURL+"/"+loginPage, form)
	if err != nil {
		return fmt.Errorf("failed to submit challenge: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("challenge submission returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxChallengeImageSize))
	if err != nil {
		return fmt.Errorf("failed to parse challenge response: %w", err)
	}
	if !hasFrameMarker(doc) {
		return ErrChallengeRejected
	}
	return nil
}

// hasFrameMarker walks the parsed document looking for an iframe whose
// src points at the post-authentication frame page.
func hasFrameMarker(n *html.Node) bool {
	if n.Type == html.ElementNode && n.Data == "iframe" {
		for _, attr := range n.Attr {
			if attr.Key == "src" && strings.Contains(attr.Val, successFrame) {
				return true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasFrameMarker(c) {
			return true
		}
	}
	return false
}
