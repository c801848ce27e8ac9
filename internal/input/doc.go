// Package input synthesizes pointer and keyboard events on the host
// desktop.
//
// Robotgo implements the macro engine's Driver interface on top of the
// robotgo toolkit. Key names are normalized before dispatch so sequences
// recorded with common alias spellings (esc, ctrl, cmd) play back
// unchanged across platforms.
//
// The toolkit touches the real desktop, so this package stays thin:
// everything testable (normalization, validation) lives in pure
// functions, and the engine is tested against a mock driver instead.
package input
