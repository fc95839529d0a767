// Package log provides secure logging functionality with automatic
// sanitization of sensitive session material, built on top of the
// standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of session secrets (cookies, CSRF tokens,
//     captcha answers)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Why sanitize at all
//
// The harvester logs every fetch it performs. A single authenticated
// session cookie or anti-forgery token in a shared log file is enough
// to hijack the session, so the RedactHandler masks those attributes
// even in verbose mode.
//
// # Usage
//
//	// Create a redacting logger
//	logger := log.NewRedactLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("session established",
//	    "cookie", "PHPSESSID=abc123",  // masked
//	    "url", "http://example.com",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
