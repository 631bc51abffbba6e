package fractal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for fractal and its compute devices.
// By default, fractal produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent default.
// The logger also reaches every device currently open in a Pipeline, and
// devices opened later receive it from Pipeline.Initialize.
//
// Log levels used by fractal:
//   - [slog.LevelDebug]: buffer sizes, dispatch details, palette rebuilds
//   - [slog.LevelInfo]: device selection
//   - [slog.LevelWarn]: GPU skipped during automatic selection, precision loss
//
// Example:
//
//	fractal.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	liveMu.Lock()
	defer liveMu.Unlock()
	loggerPtr.Store(l)
	for ls := range liveDevices {
		ls.SetLogger(l)
	}
}

// Logger returns the current logger used by fractal.
// Sub-packages (gpu/, config/) call this to share the same logger
// configuration without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// liveDevices holds the open pipeline devices that accept a logger.
var (
	liveMu      sync.Mutex
	liveDevices = make(map[loggerSetter]struct{})
)

// attachLogger hands the current logger to d and keeps d up to date with
// later SetLogger calls until detachLogger.
func attachLogger(d Device) {
	ls, ok := d.(loggerSetter)
	if !ok {
		return
	}
	liveMu.Lock()
	defer liveMu.Unlock()
	ls.SetLogger(Logger())
	liveDevices[ls] = struct{}{}
}

func detachLogger(d Device) {
	if ls, ok := d.(loggerSetter); ok {
		liveMu.Lock()
		delete(liveDevices, ls)
		liveMu.Unlock()
	}
}
