package deepzoom

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. It is swapped atomically so the
// remote gesture endpoint can log from its own goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for deepzoom and its backends.
// By default nothing is logged. Pass nil to restore silent behavior.
//
// Log levels used by deepzoom:
//   - [slog.LevelDebug]: rebase decisions, reference picks, quality controller steps
//   - [slog.LevelInfo]: backend selection, mode switches, program builds
//   - [slog.LevelWarn]: device loss, discarded timer samples, malformed presets
//   - [slog.LevelError]: shader compile failures
//
// Example:
//
//	deepzoom.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	backendMu.RLock()
	live := make([]Backend, 0, len(liveBackends))
	for b := range liveBackends {
		live = append(live, b)
	}
	backendMu.RUnlock()
	for _, b := range live {
		propagateLogger(b, l)
	}
}

// Logger returns the current logger used by deepzoom.
// Backend packages call this to share the logger configuration without
// introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(b Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
