package failsafe

import (
	"sync"
	"time"
)

// Stopper is the subset of the playback engine the monitor needs.
type Stopper interface {
	RequestStop()
}

// PointerSource reports the pointer position and display size. Satisfied
// by the robotgo-backed source; tests use a scripted fake.
type PointerSource interface {
	Location() (x, y int)
	ScreenSize() (w, h int)
}

// HotkeySource delivers global hotkey presses. Watch blocks until
// Close is called, invoking fn on every press of the named key.
type HotkeySource interface {
	Watch(key string, fn func()) error
	Close()
}

// Logger matches the logging interface used across the daemon.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config controls the abort triggers for one armed period.
type Config struct {
	// CornerAbort enables pointer-corner detection. The global hotkey
	// stays armed regardless, unless Hotkey is empty.
	CornerAbort bool

	// Hotkey is the global abort key. Empty disarms the hotkey trigger.
	Hotkey string

	// CornerMarginPx is the guarded square at each corner of the
	// primary display.
	CornerMarginPx int

	// PollInterval is the pointer sampling rate for corner detection.
	PollInterval time.Duration
}

// Default trigger parameters, applied when Config fields are zero.
const (
	DefaultCornerMarginPx = 10
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultHotkey         = "f9"
)

// Monitor watches for operator abort signals while playback is active:
// the global hotkey and the pointer entering a screen corner. On either
// trigger it requests an engine stop; playback input can fight the
// operator for the pointer, so the monitor is their guaranteed way out.
//
// Arm and Disarm bracket a playback run. All methods are safe for
// concurrent use.
type Monitor struct {
	stopper Stopper
	pointer PointerSource
	hotkey  HotkeySource
	logger  Logger

	mu      sync.Mutex
	armed   bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	onAbort func(reason string)
}

// NewMonitor creates a failsafe monitor. pointer and hotkey may be nil,
// disabling the corresponding trigger.
func NewMonitor(stopper Stopper, pointer PointerSource, hotkey HotkeySource, logger Logger) *Monitor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Monitor{
		stopper: stopper,
		pointer: pointer,
		hotkey:  hotkey,
		logger:  logger,
	}
}

// SetAbortHandler registers a callback invoked with the trigger reason
// ("hotkey" or "corner") after the stop request. Used to surface aborts
// to observers.
func (m *Monitor) SetAbortHandler(fn func(reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAbort = fn
}

// Arm starts the abort triggers for a run. Arming while armed re-arms
// with the new configuration.
func (m *Monitor) Arm(cfg Config) {
	m.Disarm()

	if cfg.CornerMarginPx <= 0 {
		cfg.CornerMarginPx = DefaultCornerMarginPx
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.armed = true
	m.stopCh = make(chan struct{})

	if m.hotkey != nil && cfg.Hotkey != "" {
		m.wg.Add(1)
		go m.watchHotkey(cfg.Hotkey)
	}

	if m.pointer != nil && cfg.CornerAbort {
		m.wg.Add(1)
		go m.pollCorners(m.stopCh, cfg.CornerMarginPx, cfg.PollInterval)
	}

	m.logger.Debug("failsafe armed",
		"hotkey", cfg.Hotkey,
		"corner_abort", cfg.CornerAbort,
		"corner_margin_px", cfg.CornerMarginPx,
	)
}

// Disarm stops all triggers and waits for their goroutines to exit.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	close(m.stopCh)
	if m.hotkey != nil {
		m.hotkey.Close()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Debug("failsafe disarmed")
}

// Armed reports whether any trigger is active.
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// watchHotkey blocks on the hotkey source until Disarm closes it.
func (m *Monitor) watchHotkey(key string) {
	defer m.wg.Done()
	err := m.hotkey.Watch(key, func() {
		m.trigger("hotkey")
	})
	if err != nil {
		m.logger.Error("failsafe hotkey watch failed", "key", key, "error", err)
	}
}

// pollCorners samples the pointer position and triggers when it enters
// the guarded square at any corner of the primary display. Polling
// continues for the whole armed period: the trigger is edge-detected,
// firing once per corner entry, so the pointer leaving and re-entering
// a corner aborts again.
func (m *Monitor) pollCorners(stopCh chan struct{}, margin int, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	inside := false
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			x, y := m.pointer.Location()
			w, h := m.pointer.ScreenSize()
			now := inCorner(x, y, w, h, margin)
			if now && !inside {
				m.trigger("corner")
			}
			inside = now
		}
	}
}

// inCorner reports whether (x, y) lies within margin pixels of any
// corner of a w×h display.
func inCorner(x, y, w, h, margin int) bool {
	nearLeft := x < margin
	nearRight := x >= w-margin
	nearTop := y < margin
	nearBottom := y >= h-margin
	return (nearLeft || nearRight) && (nearTop || nearBottom)
}

// trigger requests an engine stop exactly once per cause.
func (m *Monitor) trigger(reason string) {
	m.logger.Warn("failsafe triggered", "reason", reason)
	m.stopper.RequestStop()

	m.mu.Lock()
	fn := m.onAbort
	m.mu.Unlock()
	if fn != nil {
		fn(reason)
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
