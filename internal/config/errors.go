package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoBaseURL is returned when the portal base URL is empty.
	ErrNoBaseURL = errors.New("no base URL specified")

	// ErrNoCategory is returned when the report category is empty.
	ErrNoCategory = errors.New("no report category specified")

	// ErrInvalidEntryPath is returned when the entry path template does
	// not contain exactly one %s placeholder for the category.
	ErrInvalidEntryPath = errors.New("invalid entry path: must contain exactly one %s placeholder")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidAuthAttempts is returned when the authentication attempt
	// ceiling is not positive. At least one attempt is required to ever
	// obtain a session.
	ErrInvalidAuthAttempts = errors.New("invalid auth attempts: must be positive")

	// ErrInvalidMaxPasses is returned when the pass ceiling is negative.
	// Use 0 for unbounded restarts.
	ErrInvalidMaxPasses = errors.New("invalid max passes: must be non-negative")

	// ErrNoSolverURL is returned when the captcha solver endpoint is empty.
	ErrNoSolverURL = errors.New("no solver URL specified")

	// ErrNoOutputFile is returned when the CSV export destination is empty.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to apply the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
