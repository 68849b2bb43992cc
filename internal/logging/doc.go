// Package logging assembles the structured slog loggers used across
// PixelTerm.
//
// It owns the console and JSON handlers, level parsing, output routing, and
// the standard attribute keys (component, event_type, error_hint, impact,
// session_id) so cache, preload, and renderer code emit lines of the same
// shape. The interactive viewer owns the terminal, so NewFromConfig routes
// output to a log file instead of stdout.
//
// A no-op logger is provided for tests and for wiring code that cannot fail.
package logging
