package telemetry

import (
	"time"

	"github.com/clickflow/clickflow-core/internal/macro"
)

// Writer is the subset of the InfluxDB client the sink needs.
// Implementations must be non-blocking.
type Writer interface {
	WriteRunProgress(runID string, cycle, step int, elapsedMS int64)
	WriteRunStats(runID string, successCount, errorCount, cyclesCompleted int, elapsedMS int64)
	WriteRunState(runID string, state string)
}

// RunIDSource yields the identifier of the current (or most recent) run.
// The engine satisfies this directly.
type RunIDSource interface {
	RunID() string
}

// Sink forwards playback events to a time-series writer. It implements
// macro.Observer and is safe to fan in alongside other observers.
//
// Log events are not recorded; they carry free text, not metrics.
type Sink struct {
	writer Writer
	runs   RunIDSource
}

// NewSink creates a telemetry sink backed by the given writer.
func NewSink(writer Writer, runs RunIDSource) *Sink {
	return &Sink{
		writer: writer,
		runs:   runs,
	}
}

// OnStateChanged records the lifecycle transition.
func (s *Sink) OnStateChanged(state macro.State) {
	s.writer.WriteRunState(s.runs.RunID(), string(state))
}

// OnProgress records one executed step.
func (s *Sink) OnProgress(cycle, step int, elapsed time.Duration) {
	s.writer.WriteRunProgress(s.runs.RunID(), cycle, step, elapsed.Milliseconds())
}

// OnLog is a no-op.
func (s *Sink) OnLog(level macro.LogLevel, msg string) {}

// OnStatistics records the cumulative run counters.
func (s *Sink) OnStatistics(stats macro.Stats) {
	s.writer.WriteRunStats(
		s.runs.RunID(),
		stats.SuccessCount,
		stats.ErrorCount,
		stats.CyclesCompleted,
		stats.ElapsedMS,
	)
}
