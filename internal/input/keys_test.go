package input

import "testing"

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Enter", "enter"},
		{"ESC", "escape"},
		{"esc", "escape"},
		{"PageUp", "page_up"},
		{"pagedown", "page_down"},
		{"del", "delete"},
		{"  f9  ", "f9"},
		{"a", "a"},
		{"A", "a"},
	}

	for _, tt := range tests {
		if got := NormalizeKey(tt.input); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidKey(t *testing.T) {
	valid := []string{"a", "z", "1", "enter", "escape", "f12", "page_up", "space", "numpad_5"}
	for _, k := range valid {
		if !ValidKey(k) {
			t.Errorf("expected %q to be valid", k)
		}
	}

	invalid := []string{"", "notakey", "f21", "page up"}
	for _, k := range invalid {
		if ValidKey(k) {
			t.Errorf("expected %q to be invalid", k)
		}
	}
}

func TestNormalizeModifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ctrl", "control"},
		{"Control", "control"},
		{"cmd", "command"},
		{"super", "command"},
		{"win", "command"},
		{"option", "alt"},
		{"alt", "alt"},
		{"Shift", "shift"},
		{"fn", "fn"},
	}

	for _, tt := range tests {
		if got := NormalizeModifier(tt.input); got != tt.want {
			t.Errorf("NormalizeModifier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
