package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Solver turns a challenge image into its text answer.
//
// Design decision: Solving is behind an interface so the retry loop in
// Authenticator can be tested with a deterministic fake, and so the
// external service can be swapped without touching the challenge flow.
type Solver interface {
	// Solve returns the text answer for the given challenge image.
	Solve(ctx context.Context, image []byte) (string, error)
}

// maxAnswerSize bounds the solver response body. Answers are a handful
// of characters; anything larger indicates a broken solver endpoint.
const maxAnswerSize = 1024

// HTTPSolver sends challenge images to an external solving service and
// reads back the short text answer.
type HTTPSolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSolver creates a solver client for the given service endpoint.
func NewHTTPSolver(endpoint string, timeout time.Duration) *HTTPSolver {
	return &HTTPSolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Solve posts the challenge image as a multipart form and returns the
// trimmed answer text.
func (s *HTTPSolver) Solve(ctx context.Context, image []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("image", "captcha.png")
	if err != nil {
		return "", fmt.Errorf("failed to build solver request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("failed to build solver request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build solver request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build solver request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("solver request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("solver returned status %d", resp.StatusCode)
	}

	answer, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerSize))
	if err != nil {
		return "", fmt.Errorf("failed to read solver response: %w", err)
	}

	text := strings.TrimSpace(string(answer))
	if text == "" {
		return "", fmt.Errorf("solver returned empty answer")
	}
	return text, nil
}
