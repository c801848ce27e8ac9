// Package failsafe gives the operator a guaranteed way to abort
// playback.
//
// While the engine is injecting input, the operator may be unable to
// reach a stop button: the pointer moves on its own and keystrokes land
// in whatever window has focus. The monitor therefore watches two
// out-of-band channels:
//
//   - A global hotkey (default F9), seen regardless of window focus.
//   - The pointer entering a corner of the primary display, the
//     classic "slam the mouse into the corner" escape.
//
// Either trigger requests an engine stop. The hotkey stays armed even
// when corner detection is disabled in configuration; only an empty
// hotkey removes it.
//
// Corner detection covers the primary display only. Trigger sources are
// behind small interfaces (PointerSource, HotkeySource) so the monitor
// logic is tested without a real desktop.
package failsafe
