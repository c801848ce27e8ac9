package failsafe

import (
	"time"

	"github.com/clickflow/clickflow-core/internal/macro"
)

// Guard adapts the monitor to the engine's per-run arming hook. Each
// run is armed with its own failsafe settings and disarmed when it
// terminates, so a profile can opt in or out of corner detection and
// carry its own abort hotkey. The poll interval is a daemon-level
// setting, not a per-run one.
type Guard struct {
	monitor      *Monitor
	pollInterval time.Duration
}

// NewGuard wraps a monitor for per-run arming. A zero pollInterval
// falls back to DefaultPollInterval.
func NewGuard(m *Monitor, pollInterval time.Duration) *Guard {
	return &Guard{monitor: m, pollInterval: pollInterval}
}

// Arm starts the abort triggers with the run's failsafe settings.
func (g *Guard) Arm(cfg macro.RunConfig) {
	g.monitor.Arm(Config{
		CornerAbort:    cfg.FailsafeEnabled,
		Hotkey:         cfg.FailsafeHotkey,
		CornerMarginPx: cfg.FailsafeCornerMarginPx,
		PollInterval:   g.pollInterval,
	})
}

// Disarm stops the triggers when the run terminates.
func (g *Guard) Disarm() {
	g.monitor.Disarm()
}
