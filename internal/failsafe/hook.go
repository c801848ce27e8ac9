package failsafe

import (
	"strings"
	"sync"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"
)

// RobotgoPointer reads the live pointer position from the host desktop.
type RobotgoPointer struct{}

func (RobotgoPointer) Location() (x, y int) {
	return robotgo.Location()
}

func (RobotgoPointer) ScreenSize() (w, h int) {
	return robotgo.GetScreenSize()
}

// HookSource delivers global hotkey presses via the gohook event tap.
// One Watch may be active at a time; Close ends it and a new Watch may
// follow for the next armed period.
type HookSource struct {
	mu     sync.Mutex
	active bool
}

// NewHookSource creates a gohook-backed hotkey source.
func NewHookSource() *HookSource {
	return &HookSource{}
}

// Watch registers fn on the named key and pumps the global event tap
// until Close. The tap sees keystrokes in every application, which is
// exactly what a playback abort key needs.
func (s *HookSource) Watch(key string, fn func()) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.mu.Unlock()

	hook.Register(hook.KeyDown, []string{strings.ToLower(key)}, func(_ hook.Event) {
		fn()
	})

	events := hook.Start()
	<-hook.Process(events)
	return nil
}

// Close ends the active event tap, unblocking Watch.
func (s *HookSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	hook.End()
}
