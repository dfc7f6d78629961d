// Package log provides slog-based logging that masks credentials.
//
// Reviews carry GitHub tokens and Google Cloud credentials through the
// configuration, so every logger the application builds wraps its handler in
// a SecureHandler. Values are masked when the attribute key names a secret
// (token, authorization, api_key, ...) or when the value itself looks like
// one (GitHub PATs, Google API keys, bearer strings, PEM private keys).
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("posting comment", "repository", repo, "github_token", tok) // token masked
//
// WithContext installs the logger into a context for packages that log
// through github.com/chainguard-dev/clog.
package log
