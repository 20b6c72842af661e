package fracture

import (
	"log/slog"

	"github.com/gogpu/fracture/internal/logging"
)

// SetLogger configures the logger for fracture and all its sub-packages.
// By default the package produces no log output.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically. Pass nil to restore the default silent behavior.
//
// Log levels used:
//   - [slog.LevelDebug]: per-pass diagnostics (triangle counts, buffer sizes)
//   - [slog.LevelInfo]: lifecycle events (device selected, adapter name)
//   - [slog.LevelWarn]: non-fatal issues (resource release errors)
//
// Example:
//
//	fracture.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger. Sub-packages share the same logger
// through internal/logging, so device implementations pick up SetLogger
// calls without import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
