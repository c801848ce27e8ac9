package failsafe

import (
	"testing"
	"time"

	"github.com/clickflow/clickflow-core/internal/macro"
)

func TestGuard_ArmsMonitorFromRunConfig(t *testing.T) {
	monitor, stopper, pointer, _ := setupMonitor(t)
	guard := NewGuard(monitor, 5*time.Millisecond)

	guard.Arm(macro.RunConfig{
		FailsafeEnabled:        true,
		FailsafeHotkey:         "f9",
		FailsafeCornerMarginPx: 10,
	})
	defer guard.Disarm()

	if !monitor.Armed() {
		t.Fatal("expected monitor armed")
	}

	pointer.set(0, 0)
	waitForStops(t, stopper, 1)
}

func TestGuard_CornerAbortOffKeepsHotkey(t *testing.T) {
	monitor, stopper, pointer, hotkey := setupMonitor(t)
	guard := NewGuard(monitor, 5*time.Millisecond)

	guard.Arm(macro.RunConfig{
		FailsafeEnabled: false,
		FailsafeHotkey:  "f9",
	})
	defer guard.Disarm()

	pointer.set(0, 0)
	time.Sleep(60 * time.Millisecond)
	if stopper.stops.Load() != 0 {
		t.Fatalf("corner triggered while disabled: %d stops", stopper.stops.Load())
	}

	time.Sleep(20 * time.Millisecond)
	hotkey.press()
	waitForStops(t, stopper, 1)
}

func TestGuard_DisarmStopsMonitor(t *testing.T) {
	monitor, _, _, _ := setupMonitor(t)
	guard := NewGuard(monitor, 5*time.Millisecond)

	guard.Arm(macro.RunConfig{FailsafeEnabled: true, FailsafeHotkey: "f9"})
	guard.Disarm()

	if monitor.Armed() {
		t.Error("expected monitor disarmed")
	}
}
