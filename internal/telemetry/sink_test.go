package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clickflow/clickflow-core/internal/macro"
)

// ─── Mocks ───

type mockWriter struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockWriter) WriteRunProgress(runID string, cycle, step int, elapsedMS int64) {
	m.record(fmt.Sprintf("progress(%s,%d,%d,%d)", runID, cycle, step, elapsedMS))
}

func (m *mockWriter) WriteRunStats(runID string, successCount, errorCount, cyclesCompleted int, elapsedMS int64) {
	m.record(fmt.Sprintf("stats(%s,%d,%d,%d,%d)", runID, successCount, errorCount, cyclesCompleted, elapsedMS))
}

func (m *mockWriter) WriteRunState(runID string, state string) {
	m.record(fmt.Sprintf("state(%s,%s)", runID, state))
}

func (m *mockWriter) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockWriter) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type fixedRunID string

func (f fixedRunID) RunID() string { return string(f) }

// ─── Tests ───

func TestSink_OnStateChanged(t *testing.T) {
	writer := &mockWriter{}
	sink := NewSink(writer, fixedRunID("run-1"))

	sink.OnStateChanged(macro.StateRunning)
	sink.OnStateChanged(macro.StateCompleted)

	calls := writer.snapshot()
	want := []string{"state(run-1,running)", "state(run-1,completed)"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestSink_OnProgress(t *testing.T) {
	writer := &mockWriter{}
	sink := NewSink(writer, fixedRunID("run-2"))

	sink.OnProgress(1, 3, 2500*time.Millisecond)

	calls := writer.snapshot()
	if len(calls) != 1 || calls[0] != "progress(run-2,1,3,2500)" {
		t.Errorf("calls = %v", calls)
	}
}

func TestSink_OnStatistics(t *testing.T) {
	writer := &mockWriter{}
	sink := NewSink(writer, fixedRunID("run-3"))

	sink.OnStatistics(macro.Stats{
		SuccessCount:    12,
		ErrorCount:      1,
		CyclesCompleted: 4,
		ElapsedMS:       9000,
	})

	calls := writer.snapshot()
	if len(calls) != 1 || calls[0] != "stats(run-3,12,1,4,9000)" {
		t.Errorf("calls = %v", calls)
	}
}

func TestSink_OnLogIgnored(t *testing.T) {
	writer := &mockWriter{}
	sink := NewSink(writer, fixedRunID("run-4"))

	sink.OnLog(macro.LevelError, "injection failed")

	if calls := writer.snapshot(); len(calls) != 0 {
		t.Errorf("log produced writes: %v", calls)
	}
}
