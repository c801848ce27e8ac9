package macro

import (
	"time"
)

// LogLevel classifies observer log events.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Observer receives playback events from the engine. Callbacks are
// invoked synchronously from the run goroutine (state changes may also
// come from the caller's goroutine during Start, Pause and Resume), so
// implementations must return quickly and must not call back into the
// engine.
type Observer interface {
	// OnStateChanged fires on every lifecycle transition.
	OnStateChanged(state State)

	// OnProgress fires after each executed step.
	OnProgress(cycle, step int, elapsed time.Duration)

	// OnLog carries human-readable playback messages.
	OnLog(level LogLevel, message string)

	// OnStatistics fires after each completed cycle and once more with
	// the final counters when the run terminates.
	OnStatistics(stats Stats)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) OnStateChanged(State)               {}
func (NopObserver) OnProgress(int, int, time.Duration) {}
func (NopObserver) OnLog(LogLevel, string)             {}
func (NopObserver) OnStatistics(Stats)                 {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnStateChanged(state State) {
	for _, o := range m {
		o.OnStateChanged(state)
	}
}

func (m MultiObserver) OnProgress(cycle, step int, elapsed time.Duration) {
	for _, o := range m {
		o.OnProgress(cycle, step, elapsed)
	}
}

func (m MultiObserver) OnLog(level LogLevel, message string) {
	for _, o := range m {
		o.OnLog(level, message)
	}
}

func (m MultiObserver) OnStatistics(stats Stats) {
	for _, o := range m {
		o.OnStatistics(stats)
	}
}

// LogObserver mirrors playback events onto a Logger. Progress events are
// logged at debug to keep long runs quiet at info level.
type LogObserver struct {
	Logger Logger
}

func (l LogObserver) OnStateChanged(state State) {
	l.Logger.Info("playback state changed", "state", state)
}

func (l LogObserver) OnProgress(cycle, step int, elapsed time.Duration) {
	l.Logger.Debug("playback progress", "cycle", cycle, "step", step, "elapsed_ms", elapsed.Milliseconds())
}

func (l LogObserver) OnLog(level LogLevel, message string) {
	switch level {
	case LevelDebug:
		l.Logger.Debug(message)
	case LevelWarn:
		l.Logger.Warn(message)
	case LevelError:
		l.Logger.Error(message)
	default:
		l.Logger.Info(message)
	}
}

func (l LogObserver) OnStatistics(stats Stats) {
	l.Logger.Info("playback statistics",
		"success", stats.SuccessCount,
		"errors", stats.ErrorCount,
		"cycles", stats.CyclesCompleted,
		"elapsed_ms", stats.ElapsedMS,
	)
}

// Logger is the minimal logging interface the macro package depends on.
// It matches infrastructure/logging.Logger so callers can pass one in
// directly without an adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}
