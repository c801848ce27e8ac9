package macro

import "time"

// Kind identifies the primitive operation an Action performs.
type Kind string

// Action kinds. These match the step types the ClickFlow recorder produces.
const (
	KindLeftClick   Kind = "left_click"
	KindRightClick  Kind = "right_click"
	KindDoubleClick Kind = "double_click"
	KindHoldStart   Kind = "hold_start"
	KindHoldRelease Kind = "hold_release"
	KindTypeText    Kind = "type_text"
	KindKeyPress    Kind = "key_press"
	KindKeyDown     Kind = "key_down"
	KindKeyUp       Kind = "key_up"
	KindHotkey      Kind = "hotkey"
	KindWait        Kind = "wait"
	KindMoveOnly    Kind = "move_only"
)

// AllKinds returns every valid action kind.
func AllKinds() []Kind {
	return []Kind{
		KindLeftClick,
		KindRightClick,
		KindDoubleClick,
		KindHoldStart,
		KindHoldRelease,
		KindTypeText,
		KindKeyPress,
		KindKeyDown,
		KindKeyUp,
		KindHotkey,
		KindWait,
		KindMoveOnly,
	}
}

// RequiresPosition reports whether actions of this kind must carry screen
// coordinates. The engine moves the pointer to the position before
// dispatching the action itself.
func (k Kind) RequiresPosition() bool {
	switch k {
	case KindLeftClick, KindRightClick, KindDoubleClick, KindHoldStart, KindMoveOnly:
		return true
	default:
		return false
	}
}

// RequiresKeys reports whether actions of this kind must carry key names.
func (k Kind) RequiresKeys() bool {
	switch k {
	case KindKeyPress, KindKeyDown, KindKeyUp, KindHotkey:
		return true
	default:
		return false
	}
}

// Position is a screen coordinate in pixels, origin top-left of the
// primary display.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Action describes one primitive recorded operation.
//
// Actions are value objects: the engine executes a cloned snapshot, so a
// sequence being edited in a UI never changes under a running playback.
// Exactly the fields relevant to Kind are populated; the rest are zero
// and ignored.
type Action struct {
	// Kind selects the operation.
	Kind Kind `json:"kind"`

	// Name is the operator's label for the step (optional).
	Name string `json:"name,omitempty"`

	// Position is required for click/move kinds, absent otherwise.
	Position *Position `json:"position,omitempty"`

	// Button is the mouse button for hold kinds: left, right, center.
	// Empty defaults to left.
	Button string `json:"button,omitempty"`

	// Text is the input for type_text.
	Text string `json:"text,omitempty"`

	// Keys are the key names for key_press, key_down, key_up and hotkey.
	// For hotkey the last entry is the key, the rest are modifiers.
	Keys []string `json:"keys,omitempty"`

	// DurationMS is the pause length for wait actions (milliseconds).
	DurationMS int `json:"duration_ms,omitempty"`
}

// Clone returns an independent copy of the action.
func (a Action) Clone() Action {
	cpy := a
	if a.Position != nil {
		p := *a.Position
		cpy.Position = &p
	}
	if a.Keys != nil {
		cpy.Keys = make([]string, len(a.Keys))
		copy(cpy.Keys, a.Keys)
	}
	return cpy
}

// Sequence is an ordered list of actions forming one playback pass.
// Insertion order is execution order.
type Sequence []Action

// Clone returns a deep copy of the sequence. The engine snapshots the
// sequence at start so mid-run edits are never observed.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	cpy := make(Sequence, len(s))
	for i, a := range s {
		cpy[i] = a.Clone()
	}
	return cpy
}

// RunConfig controls timing, looping and failsafe behaviour for a run.
type RunConfig struct {
	// Cycles is the number of full sequence traversals. 0 means run
	// until stopped.
	Cycles int `json:"cycles"`

	// InterStepDelayMS is the pause after each action (milliseconds).
	// Not applied after wait actions, which carry their own duration,
	// nor after the final action of a bounded run.
	InterStepDelayMS int `json:"inter_step_delay_ms"`

	// MoveDurationMS is the base pointer travel time for positional
	// actions before MoveSpeed scaling.
	MoveDurationMS int `json:"move_duration_ms"`

	// MoveSpeed scales pointer travel time; 2.0 halves it. Travel is
	// clamped to a floor so clicks never teleport (some applications
	// drop zero-travel clicks).
	MoveSpeed float64 `json:"move_speed"`

	// InitialDelayMS is the countdown before the first cycle.
	InitialDelayMS int `json:"initial_delay_ms"`

	// StopOnError aborts the run on the first failed action.
	StopOnError bool `json:"stop_on_error"`

	// FailsafeEnabled controls pointer-corner abort detection for this
	// run. Consumed by the failsafe monitor, not the engine.
	FailsafeEnabled bool `json:"failsafe_enabled"`

	// FailsafeHotkey is the global abort key (default f9).
	FailsafeHotkey string `json:"failsafe_hotkey,omitempty"`

	// FailsafeCornerMarginPx is the guarded square at each screen corner.
	FailsafeCornerMarginPx int `json:"failsafe_corner_margin_px,omitempty"`
}

// Timing defaults and bounds.
const (
	// DefaultMoveDurationMS is the base pointer travel time.
	DefaultMoveDurationMS = 300

	// minTravel is the pointer travel floor after MoveSpeed scaling.
	minTravel = 50 * time.Millisecond

	// sleepSlice bounds a single sub-sleep so cancellation latency never
	// depends on a wait's configured duration.
	sleepSlice = 100 * time.Millisecond
)

// withDefaults fills zero-valued timing fields.
func (c RunConfig) withDefaults() RunConfig {
	if c.MoveDurationMS <= 0 {
		c.MoveDurationMS = DefaultMoveDurationMS
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = 1.0
	}
	if c.FailsafeHotkey == "" {
		c.FailsafeHotkey = "f9"
	}
	return c
}

// travelDuration returns the pointer travel time for positional actions:
// base duration scaled down by MoveSpeed, clamped to the floor.
func (c RunConfig) travelDuration() time.Duration {
	d := time.Duration(float64(c.MoveDurationMS)/c.MoveSpeed) * time.Millisecond
	if d < minTravel {
		d = minTravel
	}
	return d
}

// State is the engine lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateFailed    State = "failed"
)

// Terminal reports whether the state ends a run. Start is valid from
// idle or any terminal state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateAborted, StateFailed:
		return true
	default:
		return false
	}
}

// Stats are cumulative run counters. They are monotonically
// non-decreasing within a run and reset when a new run starts.
type Stats struct {
	SuccessCount    int   `json:"success_count"`
	ErrorCount      int   `json:"error_count"`
	CyclesCompleted int   `json:"cycles_completed"`
	ElapsedMS       int64 `json:"elapsed_ms"`
}

// Profile is a named, persisted sequence plus its run configuration.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	Sequence    Sequence  `json:"sequence"`
	Config      RunConfig `json:"config"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the profile.
// Required for cache isolation in the registry.
func (p *Profile) DeepCopy() *Profile {
	if p == nil {
		return nil
	}
	cpy := *p
	if p.Description != nil {
		d := *p.Description
		cpy.Description = &d
	}
	cpy.Sequence = p.Sequence.Clone()
	return &cpy
}

// RunRecord is the audit record of a single engine run.
type RunRecord struct {
	ID              string     `json:"id"`
	ProfileID       *string    `json:"profile_id,omitempty"`
	TriggerSource   string     `json:"trigger_source"`
	Status          State      `json:"status"`
	CyclesRequested int        `json:"cycles_requested"`
	CyclesCompleted int        `json:"cycles_completed"`
	StepsExecuted   int        `json:"steps_executed"`
	StepsFailed     int        `json:"steps_failed"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationMS      *int       `json:"duration_ms,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`
}
