package failsafe

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockStopper counts stop requests.
type mockStopper struct {
	stops atomic.Int32
}

func (m *mockStopper) RequestStop() {
	m.stops.Add(1)
}

// mockPointer reports a scripted pointer position on a 1920x1080 display.
type mockPointer struct {
	mu   sync.Mutex
	x, y int
}

func (m *mockPointer) set(x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.x, m.y = x, y
}

func (m *mockPointer) Location() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

func (m *mockPointer) ScreenSize() (int, int) {
	return 1920, 1080
}

// mockHotkey delivers presses on demand.
type mockHotkey struct {
	mu     sync.Mutex
	key    string
	fn     func()
	closed chan struct{}
}

func newMockHotkey() *mockHotkey {
	return &mockHotkey{closed: make(chan struct{})}
}

func (m *mockHotkey) Watch(key string, fn func()) error {
	m.mu.Lock()
	m.key = key
	m.fn = fn
	closed := m.closed
	m.mu.Unlock()
	<-closed
	return nil
}

func (m *mockHotkey) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

func (m *mockHotkey) press() {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func setupMonitor(t *testing.T) (*Monitor, *mockStopper, *mockPointer, *mockHotkey) {
	t.Helper()
	stopper := &mockStopper{}
	pointer := &mockPointer{x: 960, y: 540} // screen centre
	hotkey := newMockHotkey()
	monitor := NewMonitor(stopper, pointer, hotkey, nil)
	return monitor, stopper, pointer, hotkey
}

func waitForStops(t *testing.T, stopper *mockStopper, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if stopper.stops.Load() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d stop requests, got %d", want, stopper.stops.Load())
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestMonitor_HotkeyTriggersStop(t *testing.T) {
	monitor, stopper, _, hotkey := setupMonitor(t)

	monitor.Arm(Config{Hotkey: "f9"})
	defer monitor.Disarm()

	time.Sleep(20 * time.Millisecond) // let the watch goroutine register
	hotkey.press()

	waitForStops(t, stopper, 1)
}

func TestMonitor_CornerTriggersStop(t *testing.T) {
	monitor, stopper, pointer, _ := setupMonitor(t)

	monitor.Arm(Config{
		CornerAbort:    true,
		Hotkey:         "f9",
		CornerMarginPx: 10,
		PollInterval:   5 * time.Millisecond,
	})
	defer monitor.Disarm()

	pointer.set(3, 2) // top-left corner
	waitForStops(t, stopper, 1)
}

func TestMonitor_AllCornersTrigger(t *testing.T) {
	corners := []struct {
		name string
		x, y int
	}{
		{"top-left", 0, 0},
		{"top-right", 1919, 0},
		{"bottom-left", 0, 1079},
		{"bottom-right", 1919, 1079},
	}

	for _, c := range corners {
		t.Run(c.name, func(t *testing.T) {
			monitor, stopper, pointer, _ := setupMonitor(t)
			monitor.Arm(Config{
				CornerAbort:    true,
				CornerMarginPx: 10,
				PollInterval:   5 * time.Millisecond,
			})
			defer monitor.Disarm()

			pointer.set(c.x, c.y)
			waitForStops(t, stopper, 1)
		})
	}
}

func TestMonitor_CornerRetriggersAfterLeaving(t *testing.T) {
	monitor, stopper, pointer, _ := setupMonitor(t)

	monitor.Arm(Config{
		CornerAbort:    true,
		CornerMarginPx: 10,
		PollInterval:   5 * time.Millisecond,
	})
	defer monitor.Disarm()

	// Detection must survive its own trigger: leave the corner, come
	// back, and the abort fires again within the same armed period.
	pointer.set(3, 2)
	waitForStops(t, stopper, 1)

	pointer.set(960, 540)
	time.Sleep(60 * time.Millisecond)

	pointer.set(1919, 1079)
	waitForStops(t, stopper, 2)

	if !monitor.Armed() {
		t.Error("expected monitor to stay armed across triggers")
	}
}

func TestMonitor_CornerDwellTriggersOnce(t *testing.T) {
	monitor, stopper, pointer, _ := setupMonitor(t)

	monitor.Arm(Config{
		CornerAbort:    true,
		CornerMarginPx: 10,
		PollInterval:   5 * time.Millisecond,
	})
	defer monitor.Disarm()

	// A pointer parked in the corner is one entry, not one abort per
	// poll tick.
	pointer.set(0, 0)
	waitForStops(t, stopper, 1)
	time.Sleep(60 * time.Millisecond)

	if got := stopper.stops.Load(); got != 1 {
		t.Errorf("expected 1 stop request while dwelling, got %d", got)
	}
}

func TestMonitor_CentreDoesNotTrigger(t *testing.T) {
	monitor, stopper, pointer, _ := setupMonitor(t)

	monitor.Arm(Config{
		CornerAbort:    true,
		CornerMarginPx: 10,
		PollInterval:   5 * time.Millisecond,
	})
	defer monitor.Disarm()

	pointer.set(960, 540)
	time.Sleep(100 * time.Millisecond)
	if stopper.stops.Load() != 0 {
		t.Errorf("expected no stop requests, got %d", stopper.stops.Load())
	}
}

func TestMonitor_EdgeMidpointsDoNotTrigger(t *testing.T) {
	// Mid-edge positions are legitimate playback territory; only the
	// corner squares abort.
	edges := []struct {
		name string
		x, y int
	}{
		{"top edge", 960, 0},
		{"left edge", 0, 540},
		{"bottom edge", 960, 1079},
		{"right edge", 1919, 540},
	}

	for _, e := range edges {
		t.Run(e.name, func(t *testing.T) {
			monitor, stopper, pointer, _ := setupMonitor(t)
			monitor.Arm(Config{
				CornerAbort:    true,
				CornerMarginPx: 10,
				PollInterval:   5 * time.Millisecond,
			})
			defer monitor.Disarm()

			pointer.set(e.x, e.y)
			time.Sleep(60 * time.Millisecond)
			if stopper.stops.Load() != 0 {
				t.Errorf("expected no stop requests, got %d", stopper.stops.Load())
			}
		})
	}
}

func TestMonitor_HotkeyArmedWithoutCornerAbort(t *testing.T) {
	monitor, stopper, pointer, hotkey := setupMonitor(t)

	// Corner detection off: moving into a corner must not stop, but the
	// hotkey still must.
	monitor.Arm(Config{
		CornerAbort:  false,
		Hotkey:       "f9",
		PollInterval: 5 * time.Millisecond,
	})
	defer monitor.Disarm()

	pointer.set(0, 0)
	time.Sleep(60 * time.Millisecond)
	if stopper.stops.Load() != 0 {
		t.Fatalf("corner triggered while disabled: %d stops", stopper.stops.Load())
	}

	hotkey.press()
	waitForStops(t, stopper, 1)
}

func TestMonitor_EmptyHotkeyDisarmsHotkey(t *testing.T) {
	monitor, stopper, _, hotkey := setupMonitor(t)

	monitor.Arm(Config{Hotkey: ""})
	defer monitor.Disarm()

	time.Sleep(20 * time.Millisecond)
	hotkey.press() // nothing registered, fn is nil
	time.Sleep(20 * time.Millisecond)
	if stopper.stops.Load() != 0 {
		t.Errorf("expected no stop requests, got %d", stopper.stops.Load())
	}
}

func TestMonitor_DisarmStopsTriggers(t *testing.T) {
	monitor, stopper, pointer, _ := setupMonitor(t)

	monitor.Arm(Config{
		CornerAbort:    true,
		Hotkey:         "f9",
		CornerMarginPx: 10,
		PollInterval:   5 * time.Millisecond,
	})
	monitor.Disarm()

	if monitor.Armed() {
		t.Error("expected disarmed state")
	}

	pointer.set(0, 0)
	time.Sleep(60 * time.Millisecond)
	if stopper.stops.Load() != 0 {
		t.Errorf("trigger fired after disarm: %d stops", stopper.stops.Load())
	}
}

func TestMonitor_DisarmIdempotent(t *testing.T) {
	monitor, _, _, _ := setupMonitor(t)

	monitor.Arm(Config{Hotkey: "f9"})
	monitor.Disarm()
	monitor.Disarm()
	monitor.Disarm()
}

func TestMonitor_Rearm(t *testing.T) {
	monitor, stopper, pointer, _ := setupMonitor(t)

	monitor.Arm(Config{CornerAbort: true, PollInterval: 5 * time.Millisecond})
	monitor.Disarm()

	// Second armed period works with fresh configuration
	monitor.Arm(Config{CornerAbort: true, CornerMarginPx: 50, PollInterval: 5 * time.Millisecond})
	defer monitor.Disarm()

	pointer.set(1900, 40) // inside the wider margin
	waitForStops(t, stopper, 1)
}

func TestMonitor_AbortHandler(t *testing.T) {
	monitor, _, pointer, _ := setupMonitor(t)

	var reason atomic.Value
	monitor.SetAbortHandler(func(r string) {
		reason.Store(r)
	})

	monitor.Arm(Config{CornerAbort: true, CornerMarginPx: 10, PollInterval: 5 * time.Millisecond})
	defer monitor.Disarm()

	pointer.set(0, 0)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := reason.Load().(string); ok {
			if r != "corner" {
				t.Errorf("expected reason corner, got %q", r)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("abort handler never invoked")
}

func TestInCorner(t *testing.T) {
	tests := []struct {
		name         string
		x, y, margin int
		want         bool
	}{
		{"origin", 0, 0, 10, true},
		{"just inside", 9, 9, 10, true},
		{"just outside", 10, 10, 10, false},
		{"x inside y outside", 5, 500, 10, false},
		{"bottom right boundary", 1910, 1070, 10, true},
		{"zero margin", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inCorner(tt.x, tt.y, 1920, 1080, tt.margin); got != tt.want {
				t.Errorf("inCorner(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}
