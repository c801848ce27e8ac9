package input

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
)

// ErrOffScreen is returned when a target position lies outside the
// primary display.
var ErrOffScreen = errors.New("input: position outside screen bounds")

// moveSteps is the interpolation rate for smooth pointer travel.
const moveSteps = 60 // per second

// Robotgo synthesizes real pointer and keyboard input on the host
// desktop via the robotgo toolkit.
//
// The toolkit panics on some platform errors rather than returning them,
// so every method runs under a recover guard and converts panics into
// errors the engine can absorb as step failures.
type Robotgo struct{}

// NewRobotgo creates the host input driver.
func NewRobotgo() *Robotgo {
	return &Robotgo{}
}

// guard converts toolkit panics into errors.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("input: %s: %v", op, r)
		}
	}()
	return fn()
}

// MoveTo moves the pointer to (x, y), interpolating intermediate
// positions across the travel duration so the motion is visible and
// target applications register hover events along the way.
func (d *Robotgo) MoveTo(x, y int, travel time.Duration) error {
	return guard("move", func() error {
		w, h := robotgo.GetScreenSize()
		if x < 0 || y < 0 || x >= w || y >= h {
			return fmt.Errorf("%w: (%d,%d) on %dx%d display", ErrOffScreen, x, y, w, h)
		}

		steps := int(travel.Seconds() * moveSteps)
		if steps < 2 {
			robotgo.Move(x, y)
			return nil
		}

		sx, sy := robotgo.Location()
		interval := travel / time.Duration(steps)
		for i := 1; i <= steps; i++ {
			nx := sx + (x-sx)*i/steps
			ny := sy + (y-sy)*i/steps
			robotgo.Move(nx, ny)
			time.Sleep(interval)
		}
		return nil
	})
}

// Click presses and releases the given button at (x, y). The pointer is
// expected to already be at the position; the coordinates are a final
// correction for displays that drop move events.
func (d *Robotgo) Click(button string, x, y int) error {
	return guard("click", func() error {
		robotgo.Move(x, y)
		robotgo.Click(button, false)
		return nil
	})
}

// DoubleClick double-clicks the left button at (x, y).
func (d *Robotgo) DoubleClick(x, y int) error {
	return guard("double click", func() error {
		robotgo.Move(x, y)
		robotgo.Click("left", true)
		return nil
	})
}

// HoldDown presses and holds a button at (x, y), for drag gestures.
func (d *Robotgo) HoldDown(button string, x, y int) error {
	return guard("hold", func() error {
		robotgo.Move(x, y)
		return robotgo.Toggle(button, "down")
	})
}

// Release releases a held button at the pointer's current position.
func (d *Robotgo) Release(button string) error {
	return guard("release", func() error {
		return robotgo.Toggle(button, "up")
	})
}

// KeyDown presses and holds a key.
func (d *Robotgo) KeyDown(key string) error {
	k := NormalizeKey(key)
	if !ValidKey(k) {
		return fmt.Errorf("input: unknown key %q", key)
	}
	return guard("key down", func() error {
		return robotgo.KeyToggle(k, "down")
	})
}

// KeyUp releases a held key.
func (d *Robotgo) KeyUp(key string) error {
	k := NormalizeKey(key)
	if !ValidKey(k) {
		return fmt.Errorf("input: unknown key %q", key)
	}
	return guard("key up", func() error {
		return robotgo.KeyToggle(k, "up")
	})
}

// PressKey taps a single key.
func (d *Robotgo) PressKey(key string) error {
	k := NormalizeKey(key)
	if !ValidKey(k) {
		return fmt.Errorf("input: unknown key %q", key)
	}
	return guard("key press", func() error {
		return robotgo.KeyTap(k)
	})
}

// TypeText types a string of text using the host keyboard layout.
func (d *Robotgo) TypeText(text string) error {
	return guard("type", func() error {
		robotgo.TypeStr(text)
		return nil
	})
}

// Hotkey taps a key combination. The last name is the key; the rest are
// modifiers normalized to toolkit spellings.
func (d *Robotgo) Hotkey(keys ...string) error {
	if len(keys) == 0 {
		return errors.New("input: empty hotkey")
	}

	key := NormalizeKey(keys[len(keys)-1])
	if !ValidKey(key) {
		return fmt.Errorf("input: unknown key %q", keys[len(keys)-1])
	}
	mods := make([]any, len(keys)-1)
	for i, m := range keys[:len(keys)-1] {
		mods[i] = NormalizeModifier(m)
	}

	return guard("hotkey", func() error {
		return robotgo.KeyTap(key, mods...)
	})
}

// Location returns the pointer's current position on the primary display.
func (d *Robotgo) Location() (x, y int) {
	return robotgo.Location()
}
