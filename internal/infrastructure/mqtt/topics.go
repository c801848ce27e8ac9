package mqtt

import "fmt"

// Topic prefixes for the ClickFlow remote control surface.
//
// Commands flow in (clickflow/command/{verb}), playback events flow out
// (clickflow/event/{kind}). The system prefix carries online/offline
// status via LWT.
const (
	// TopicPrefixCommand is the base for inbound remote commands.
	TopicPrefixCommand = "clickflow/command"

	// TopicPrefixEvent is the base for outbound playback events.
	TopicPrefixEvent = "clickflow/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "clickflow/system"
)

// Topics provides builders for ClickFlow MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EventState()
//	// Returns: "clickflow/event/state"
type Topics struct{}

// =============================================================================
// Command Topics (inbound)
// =============================================================================

// CommandRun returns the topic that starts playback of a profile.
// The payload names the profile and optional config overrides.
//
// Example: clickflow/command/run
func (Topics) CommandRun() string {
	return fmt.Sprintf("%s/run", TopicPrefixCommand)
}

// CommandStop returns the topic that aborts the active run.
//
// Example: clickflow/command/stop
func (Topics) CommandStop() string {
	return fmt.Sprintf("%s/stop", TopicPrefixCommand)
}

// CommandPause returns the topic that pauses the active run.
//
// Example: clickflow/command/pause
func (Topics) CommandPause() string {
	return fmt.Sprintf("%s/pause", TopicPrefixCommand)
}

// CommandResume returns the topic that resumes a paused run.
//
// Example: clickflow/command/resume
func (Topics) CommandResume() string {
	return fmt.Sprintf("%s/resume", TopicPrefixCommand)
}

// =============================================================================
// Event Topics (outbound)
// =============================================================================

// EventState returns the topic for engine state transitions.
// Published retained so late subscribers see the current state.
//
// Example: clickflow/event/state
func (Topics) EventState() string {
	return fmt.Sprintf("%s/state", TopicPrefixEvent)
}

// EventProgress returns the topic for per-step progress updates.
//
// Example: clickflow/event/progress
func (Topics) EventProgress() string {
	return fmt.Sprintf("%s/progress", TopicPrefixEvent)
}

// EventStats returns the topic for per-cycle run statistics.
//
// Example: clickflow/event/stats
func (Topics) EventStats() string {
	return fmt.Sprintf("%s/stats", TopicPrefixEvent)
}

// EventLog returns the topic for playback log messages.
//
// Example: clickflow/event/log
func (Topics) EventLog() string {
	return fmt.Sprintf("%s/log", TopicPrefixEvent)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic carrying online/offline
// payloads, including the broker-published LWT on unexpected disconnect.
//
// Example: clickflow/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllCommands returns a pattern matching every inbound command.
//
// Pattern: clickflow/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/+", TopicPrefixCommand)
}

// AllEvents returns a pattern matching every outbound event.
//
// Pattern: clickflow/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvent)
}

// AllTopics returns a pattern matching all ClickFlow topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: clickflow/#
func (Topics) AllTopics() string {
	return "clickflow/#"
}
