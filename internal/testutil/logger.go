package testutil

import "log/slog"

// NewNopLogger returns a slog.Logger that discards all output. Use it
// in tests to keep output quiet.
func NewNopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
