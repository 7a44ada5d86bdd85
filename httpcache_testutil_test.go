package httpcache

import (
	"io"
	"log/slog"
	"time"
)

// time0 is a fixed reference instant used across the core package's tests so
// age/freshness arithmetic doesn't depend on wall-clock time.
var time0 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// discardLogger returns a *slog.Logger that writes nowhere, for tests that
// need to satisfy a *slog.Logger parameter without asserting on log output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
