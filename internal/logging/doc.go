// Package logging configures structured logging for the daemon and CLI.
//
// Output is log/slog with either a human-oriented console handler (ANSI color
// when attached to a terminal) or a JSON handler for ingestion. Helpers in
// attrs.go keep attribute construction terse and field names consistent
// across packages.
package logging
