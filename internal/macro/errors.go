package macro

import "errors"

// Domain errors for the macro package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, macro.ErrProfileNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRunInProgress is returned when Start is called while a run is active.
	ErrRunInProgress = errors.New("macro: run already in progress")

	// ErrEmptySequence is returned when starting with no actions.
	ErrEmptySequence = errors.New("macro: empty sequence")

	// ErrInvalidConfig is returned when run configuration validation fails.
	ErrInvalidConfig = errors.New("macro: invalid run configuration")

	// ErrInvalidAction is returned when an action's fields don't match its kind.
	ErrInvalidAction = errors.New("macro: invalid action")

	// ErrNotRunning is returned by pause/resume/stop when no run is active.
	ErrNotRunning = errors.New("macro: no active run")

	// ErrNotPaused is returned by Resume when the run is not paused.
	ErrNotPaused = errors.New("macro: run not paused")

	// ErrInternalFault wraps a panic recovered from the run loop.
	ErrInternalFault = errors.New("macro: internal fault")

	// ErrProfileNotFound is returned when a profile ID does not exist.
	ErrProfileNotFound = errors.New("macro: profile not found")

	// ErrProfileExists is returned when creating a profile with an ID that already exists.
	ErrProfileExists = errors.New("macro: profile already exists")

	// ErrProfileDisabled is returned when running a disabled profile.
	ErrProfileDisabled = errors.New("macro: profile disabled")

	// ErrInvalidProfile is returned when profile validation fails.
	ErrInvalidProfile = errors.New("macro: invalid profile")

	// ErrInvalidName is returned when a profile name is empty or too long.
	ErrInvalidName = errors.New("macro: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("macro: invalid slug")

	// ErrRunNotFound is returned when a run record ID does not exist.
	ErrRunNotFound = errors.New("macro: run not found")
)

// errRunStopped is the internal signal that the cancellation flag fired
// mid-action. It never escapes the engine.
var errRunStopped = errors.New("macro: stop requested")
