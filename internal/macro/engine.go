package macro

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Driver is the input-synthesis capability the engine consumes. The
// engine treats it as an external collaborator: any error from a call is
// an injection error, absorbed into statistics rather than propagated.
//
// Implementations live in internal/input; tests use mocks.
type Driver interface {
	// MoveTo moves the pointer to (x, y) over the given travel duration.
	MoveTo(x, y int, travel time.Duration) error

	// Click presses and releases the given button at (x, y).
	Click(button string, x, y int) error

	// DoubleClick double-clicks the left button at (x, y).
	DoubleClick(x, y int) error

	// HoldDown presses and holds the given button at (x, y).
	HoldDown(button string, x, y int) error

	// Release releases a held button.
	Release(button string) error

	// KeyDown presses and holds a key.
	KeyDown(key string) error

	// KeyUp releases a held key.
	KeyUp(key string) error

	// PressKey taps a single key.
	PressKey(key string) error

	// TypeText types a string of text.
	TypeText(text string) error

	// Hotkey taps a key combination; the last name is the key, the rest
	// are modifiers.
	Hotkey(keys ...string) error
}

// dbWriteTimeout bounds run-record writes so a slow disk never stalls
// playback.
const dbWriteTimeout = 5 * time.Second

// RunGuard brackets each run with that run's failsafe settings. The
// engine arms it once a run is accepted, with the effective RunConfig,
// and disarms it when the run reaches a terminal state.
//
// Implemented by the failsafe monitor adapter; may be nil.
type RunGuard interface {
	Arm(cfg RunConfig)
	Disarm()
}

// Engine drives real-time playback of a sequence under a run
// configuration.
//
// It is a state machine (idle → running ↔ paused → completed | aborted |
// failed). One run is active at a time; a fresh run state is created per
// Start. Playback executes on its own goroutine; the caller observes
// progress exclusively through the Observer.
//
// Thread Safety: all public methods are safe for concurrent use. The
// cancellation flag is a close-once channel, so a stop requested by the
// failsafe monitor is visible to the run goroutine immediately.
type Engine struct {
	driver Driver
	repo   Repository // optional, for run history
	logger Logger
	guard  RunGuard // optional, armed per run

	mu       sync.Mutex
	state    State
	runID    string
	stop     chan struct{}
	stopOnce *sync.Once
	paused   bool
	resume   chan struct{}
	done     chan struct{}

	statsMu sync.RWMutex
	stats   Stats
}

// RunRequest describes a run to start.
type RunRequest struct {
	// ProfileID tags the run record when playback came from a stored
	// profile (optional).
	ProfileID string

	// Trigger records where the run was requested from: api, mqtt, cli.
	// Empty defaults to "local".
	Trigger string

	// Sequence is the ordered step list. Snapshotted at start.
	Sequence Sequence

	// Config controls timing, looping and error policy.
	Config RunConfig

	// Observer receives progress, log, statistics and state events.
	// May be nil.
	Observer Observer
}

// NewEngine creates a playback engine.
//
// Parameters:
//   - driver: Input driver for pointer/keyboard synthesis
//   - repo: Repository for run history (may be nil)
//   - logger: Logger instance (may be nil)
func NewEngine(driver Driver, repo Repository, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		driver: driver,
		repo:   repo,
		logger: logger,
		state:  StateIdle,
	}
}

// SetGuard registers the failsafe guard. Call before the first run; the
// engine arms it with each run's effective configuration.
func (e *Engine) SetGuard(g RunGuard) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guard = g
}

// Start begins playback of a sequence and returns immediately.
// See StartRun for accepted-run semantics.
func (e *Engine) Start(seq Sequence, cfg RunConfig, obs Observer) (string, error) {
	return e.StartRun(RunRequest{Sequence: seq, Config: cfg, Observer: obs})
}

// StartRun begins playback and returns the run ID immediately; the run
// executes on its own goroutine and reports through the observer.
//
// Valid from idle or any terminal state. Rejects with ErrRunInProgress
// while a run is active. Validation failures (empty sequence, bad
// config) transition to failed with zero driver calls and are reported
// both as the returned error and through the observer.
func (e *Engine) StartRun(req RunRequest) (string, error) {
	obs := req.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	if req.Trigger == "" {
		req.Trigger = "local"
	}

	e.mu.Lock()
	if e.state == StateRunning || e.state == StatePaused {
		e.mu.Unlock()
		return "", ErrRunInProgress
	}

	if err := e.validateRequest(req); err != nil {
		e.state = StateFailed
		e.mu.Unlock()
		e.logger.Warn("run rejected", "error", err)
		obs.OnLog(LevelError, "run rejected: "+err.Error())
		obs.OnStateChanged(StateFailed)
		return "", err
	}

	runID := GenerateID()
	stop := make(chan struct{})
	done := make(chan struct{})
	e.runID = runID
	e.state = StateRunning
	e.stop = stop
	e.stopOnce = new(sync.Once)
	e.paused = false
	e.resume = nil
	e.done = done
	e.mu.Unlock()

	e.setStats(Stats{})

	cfg := req.Config.withDefaults()
	snapshot := req.Sequence.Clone()

	// Arm the failsafe with this run's settings before the first
	// injection; finish disarms it.
	if g := e.runGuard(); g != nil {
		g.Arm(cfg)
	}

	e.logger.Info("run started",
		"run_id", runID,
		"trigger", req.Trigger,
		"steps", len(snapshot),
		"cycles", cfg.Cycles,
	)
	obs.OnStateChanged(StateRunning)

	go e.run(runID, req, snapshot, cfg, obs, stop, done)
	return runID, nil
}

// validateRequest checks the sequence and config before any side effect.
func (e *Engine) validateRequest(req RunRequest) error {
	if err := ValidateSequence(req.Sequence); err != nil {
		return err
	}
	return ValidateRunConfig(req.Config)
}

// RequestStop sets the cancellation flag. Safe to call from any
// goroutine, including the failsafe monitor; calling it repeatedly has
// the same effect as once. The run transitions to aborted when the run
// goroutine observes the flag, within one sub-sleep interval.
func (e *Engine) RequestStop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning && e.state != StatePaused {
		return
	}
	e.stopOnce.Do(func() { close(e.stop) })
}

// Pause suspends playback before the next action. Cancellation is still
// observed while paused.
func (e *Engine) Pause(obs Observer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return ErrNotRunning
	}
	e.state = StatePaused
	e.paused = true
	e.resume = make(chan struct{})
	if obs != nil {
		obs.OnStateChanged(StatePaused)
	}
	e.logger.Info("run paused", "run_id", e.runID)
	return nil
}

// Resume continues a paused run.
func (e *Engine) Resume(obs Observer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return ErrNotPaused
	}
	e.state = StateRunning
	e.paused = false
	close(e.resume)
	if obs != nil {
		obs.OnStateChanged(StateRunning)
	}
	e.logger.Info("run resumed", "run_id", e.runID)
	return nil
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// RunID returns the identifier of the current or most recent run.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// Stats returns a snapshot of the current run counters.
func (e *Engine) Stats() Stats {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	return e.stats
}

// Wait blocks until the active run terminates. Returns immediately when
// no run is active.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

func (e *Engine) runGuard() RunGuard {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.guard
}

func (e *Engine) setStats(s Stats) {
	e.statsMu.Lock()
	e.stats = s
	e.statsMu.Unlock()
}

// run is the playback loop. It owns all run-state mutation; other
// goroutines only read statistics and the cancellation flag. The stop
// and done channels belong to this run; the struct fields may already
// point at a newer run's channels by the time this goroutine winds down.
func (e *Engine) run(runID string, req RunRequest, seq Sequence, cfg RunConfig, obs Observer, stop, done chan struct{}) {
	defer close(done)

	rec := &RunRecord{
		ID:              runID,
		TriggerSource:   req.Trigger,
		Status:          StateRunning,
		CyclesRequested: cfg.Cycles,
		StartedAt:       time.Now().UTC(),
	}
	if req.ProfileID != "" {
		id := req.ProfileID
		rec.ProfileID = &id
	}
	e.createRecord(rec)

	stats := Stats{}

	// A panic anywhere in dispatch must surface as a failed run, never
	// crash the process.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine fault", "run_id", runID, "panic", r)
			obs.OnLog(LevelError, fmt.Sprintf("internal fault: %v", r))
			e.finish(rec, obs, StateFailed, stats, fmt.Errorf("%w: %v", ErrInternalFault, r))
		}
	}()

	// Countdown before the first cycle, giving the operator time to
	// focus the target application.
	if cfg.InitialDelayMS > 0 {
		obs.OnLog(LevelInfo, fmt.Sprintf("starting in %d ms", cfg.InitialDelayMS))
		if !e.sleep(stop, time.Duration(cfg.InitialDelayMS)*time.Millisecond) {
			e.finish(rec, obs, StateAborted, stats, nil)
			return
		}
	}

	started := time.Now()

	for cycle := 0; cfg.Cycles == 0 || cycle < cfg.Cycles; cycle++ {
		for step, action := range seq {
			// Cancellation check before every dispatch; a partial
			// cycle is not completed.
			if !e.gate(stop) {
				e.finish(rec, obs, StateAborted, stats, nil)
				return
			}

			err := e.dispatch(action, cfg, stop)
			if err == errRunStopped {
				e.finish(rec, obs, StateAborted, stats, nil)
				return
			}

			rec.StepsExecuted++
			if err != nil {
				// Injection errors are non-fatal by policy: a single
				// bad step must not halt a long unattended run.
				stats.ErrorCount++
				rec.StepsFailed++
				msg := fmt.Sprintf("step %d (%s) failed: %v", step, action.Kind, err)
				e.logger.Warn("step failed", "run_id", runID, "cycle", cycle, "step", step, "kind", action.Kind, "error", err)
				obs.OnLog(LevelError, msg)
				if cfg.StopOnError {
					e.finish(rec, obs, StateFailed, stats, err)
					return
				}
			} else {
				stats.SuccessCount++
			}

			stats.ElapsedMS = time.Since(started).Milliseconds()
			e.setStats(stats)
			obs.OnProgress(cycle, step, time.Since(started))

			// Inter-step delay: skipped after waits (which carry their
			// own duration) and after the final action of a bounded run.
			last := cfg.Cycles != 0 && cycle == cfg.Cycles-1 && step == len(seq)-1
			if cfg.InterStepDelayMS > 0 && action.Kind != KindWait && !last {
				if !e.sleep(stop, time.Duration(cfg.InterStepDelayMS)*time.Millisecond) {
					e.finish(rec, obs, StateAborted, stats, nil)
					return
				}
			}
		}

		stats.CyclesCompleted++
		rec.CyclesCompleted++
		stats.ElapsedMS = time.Since(started).Milliseconds()
		e.setStats(stats)
		obs.OnStatistics(stats)
		e.logger.Debug("cycle complete", "run_id", runID, "cycle", cycle+1)
	}

	e.finish(rec, obs, StateCompleted, stats, nil)
}

// dispatch executes a single action against the driver.
// Returns errRunStopped when cancellation fired during a wait.
func (e *Engine) dispatch(a Action, cfg RunConfig, stop chan struct{}) error {
	// Positional actions move the pointer first, at the configured
	// travel speed.
	if a.Kind.RequiresPosition() {
		if err := e.driver.MoveTo(a.Position.X, a.Position.Y, cfg.travelDuration()); err != nil {
			return err
		}
	}

	switch a.Kind {
	case KindLeftClick:
		return e.driver.Click("left", a.Position.X, a.Position.Y)
	case KindRightClick:
		return e.driver.Click("right", a.Position.X, a.Position.Y)
	case KindDoubleClick:
		return e.driver.DoubleClick(a.Position.X, a.Position.Y)
	case KindHoldStart:
		return e.driver.HoldDown(buttonOrLeft(a.Button), a.Position.X, a.Position.Y)
	case KindHoldRelease:
		return e.driver.Release(buttonOrLeft(a.Button))
	case KindTypeText:
		return e.driver.TypeText(a.Text)
	case KindKeyPress:
		return e.driver.PressKey(a.Keys[0])
	case KindKeyDown:
		return e.driver.KeyDown(a.Keys[0])
	case KindKeyUp:
		return e.driver.KeyUp(a.Keys[0])
	case KindHotkey:
		return e.driver.Hotkey(a.Keys...)
	case KindWait:
		if !e.sleep(stop, time.Duration(a.DurationMS)*time.Millisecond) {
			return errRunStopped
		}
		return nil
	case KindMoveOnly:
		return nil // MoveTo above is the whole action
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
}

func buttonOrLeft(button string) string {
	if button == "" {
		return "left"
	}
	return button
}

// sleep waits for d in bounded sub-slices so cancellation latency never
// depends on d. Returns false if the cancellation flag fired.
func (e *Engine) sleep(stop chan struct{}, d time.Duration) bool {
	for d > 0 {
		if !e.gate(stop) {
			return false
		}
		slice := d
		if slice > sleepSlice {
			slice = sleepSlice
		}
		select {
		case <-stop:
			return false
		case <-time.After(slice):
		}
		d -= slice
	}
	return e.gate(stop)
}

// gate blocks while the run is paused and reports whether execution may
// proceed. Returns false once the cancellation flag is set; stop is
// observed even while paused.
func (e *Engine) gate(stop chan struct{}) bool {
	for {
		select {
		case <-stop:
			return false
		default:
		}

		e.mu.Lock()
		if !e.paused {
			e.mu.Unlock()
			return true
		}
		resume := e.resume
		e.mu.Unlock()

		select {
		case <-resume:
		case <-stop:
			return false
		}
	}
}

// finish records the terminal state and emits the final statistics and
// state-change events, in that order.
func (e *Engine) finish(rec *RunRecord, obs Observer, state State, stats Stats, runErr error) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	if g := e.runGuard(); g != nil {
		g.Disarm()
	}

	now := time.Now().UTC()
	rec.Status = state
	rec.CompletedAt = &now
	duration := int(now.Sub(rec.StartedAt).Milliseconds())
	rec.DurationMS = &duration
	if runErr != nil {
		msg := runErr.Error()
		rec.LastError = &msg
	}
	e.updateRecord(rec)

	e.setStats(stats)
	obs.OnStatistics(stats)
	obs.OnStateChanged(state)

	e.logger.Info("run finished",
		"run_id", rec.ID,
		"status", state,
		"cycles_completed", rec.CyclesCompleted,
		"steps_executed", rec.StepsExecuted,
		"steps_failed", rec.StepsFailed,
		"duration_ms", duration,
	)
}

// createRecord persists the initial run record. Playback continues even
// if history writes fail.
func (e *Engine) createRecord(rec *RunRecord) {
	if e.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbWriteTimeout)
	defer cancel()
	if err := e.repo.CreateRun(ctx, rec); err != nil {
		e.logger.Error("failed to create run record", "run_id", rec.ID, "error", err)
	}
}

// updateRecord persists the final run record.
func (e *Engine) updateRecord(rec *RunRecord) {
	if e.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbWriteTimeout)
	defer cancel()
	if err := e.repo.UpdateRun(ctx, rec); err != nil {
		e.logger.Error("failed to update run record", "run_id", rec.ID, "error", err)
	}
}
