// Package log provides slog loggers that never print repository credentials.
//
// The SecureHandler wraps any slog.Handler and masks:
//   - attributes whose key names a credential (user, password, authorization, ...)
//   - Basic and Bearer authorization values and AEM login-token cookies
//   - user:password@ sections of URLs, in attributes and in messages
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("failed to fetch", "path", path, "error", err)
//
// Verbose loggers log at Debug level, others at Warn.
package log
