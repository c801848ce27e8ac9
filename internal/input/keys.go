package input

import "strings"

// specialKeys are the multi-character key names accepted by the
// underlying toolkit. Single characters are always passed through.
var specialKeys = map[string]struct{}{
	"enter": {}, "return": {}, "tab": {}, "space": {}, "backspace": {},
	"delete": {}, "escape": {}, "up": {}, "down": {}, "left": {}, "right": {},
	"home": {}, "end": {}, "page_up": {}, "page_down": {}, "insert": {},
	"f1": {}, "f2": {}, "f3": {}, "f4": {}, "f5": {},
	"f6": {}, "f7": {}, "f8": {}, "f9": {}, "f10": {},
	"f11": {}, "f12": {}, "f13": {}, "f14": {}, "f15": {},
	"f16": {}, "f17": {}, "f18": {}, "f19": {}, "f20": {},
	"cmd": {}, "lcmd": {}, "rcmd": {}, "alt": {}, "lalt": {}, "ralt": {},
	"ctrl": {}, "lctrl": {}, "rctrl": {}, "shift": {}, "lshift": {}, "rshift": {},
	"capslock": {}, "numpad_0": {}, "numpad_1": {}, "numpad_2": {},
	"numpad_3": {}, "numpad_4": {}, "numpad_5": {}, "numpad_6": {},
	"numpad_7": {}, "numpad_8": {}, "numpad_9": {},
	"audio_mute": {}, "audio_vol_down": {}, "audio_vol_up": {},
	"audio_play": {}, "audio_stop": {}, "audio_pause": {},
	"audio_prev": {}, "audio_next": {},
}

// keyAliases maps recorder key names onto toolkit names.
var keyAliases = map[string]string{
	"esc":      "escape",
	"pageup":   "page_up",
	"pagedown": "page_down",
	"del":      "delete",
	"ins":      "insert",
	"caps":     "capslock",
}

// NormalizeKey lowercases a key name and resolves common aliases.
// Single characters pass through unchanged apart from case.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// ValidKey reports whether a normalized key name can be dispatched:
// either a single character or one of the known special keys.
func ValidKey(key string) bool {
	if len(key) == 1 {
		return true
	}
	_, ok := specialKeys[key]
	return ok
}

// NormalizeModifier maps the modifier spellings recorders produce onto
// the names the toolkit expects.
func NormalizeModifier(mod string) string {
	switch strings.ToLower(strings.TrimSpace(mod)) {
	case "command", "cmd", "super", "win", "meta":
		return "command"
	case "control", "ctrl":
		return "control"
	case "alt", "option":
		return "alt"
	case "shift":
		return "shift"
	default:
		return strings.ToLower(strings.TrimSpace(mod))
	}
}
