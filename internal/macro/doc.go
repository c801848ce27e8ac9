// Package macro provides the playback engine for ClickFlow Core.
//
// Profiles are named input sequences (clicks, keystrokes, waits) that
// play back against the desktop in real time. Each profile carries its
// own run configuration: cycle count, inter-step delay, pointer travel
// speed and error policy.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│                  Engine (engine.go)                    │
//	│  Plays sequences with pause/resume and cancellation    │
//	│  ┌──────────────┐    ┌──────────────┐                │
//	│  │   Registry   │───▶│  Repository  │                │
//	│  │(registry.go) │    │(repository.go)│               │
//	│  └──────────────┘    └──────────────┘                │
//	│        │                                              │
//	│        ▼                                              │
//	│  ┌──────────────────────────────────────────────┐    │
//	│  │  Playback Pipeline                            │    │
//	│  │  1. Validate sequence and config              │    │
//	│  │  2. Snapshot the sequence for the run         │    │
//	│  │  3. Dispatch actions via Driver per cycle     │    │
//	│  │  4. Report events through the Observer        │    │
//	│  │  5. Persist the run record                    │    │
//	│  └──────────────────────────────────────────────┘    │
//	└───────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Action: Single input step (kind, position, keys, text, duration)
//   - Sequence: Ordered list of actions
//   - Profile: Named sequence with run configuration and metadata
//   - RunRecord: Audit record of a playback run
//   - Engine: State machine that plays sequences via a Driver
//   - Registry: Thread-safe in-memory cache wrapping Repository
//
// # Thread Safety
//
// Registry and Engine are safe for concurrent use from multiple goroutines.
// RequestStop in particular may be called from any goroutine, including
// signal handlers and the failsafe monitor.
//
// # Usage
//
//	repo := macro.NewSQLiteRepository(db)
//	registry := macro.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	engine := macro.NewEngine(driver, repo, log)
//	runID, err := engine.StartRun(macro.RunRequest{
//	    Sequence: profile.Sequence,
//	    Config:   profile.Config,
//	    Observer: obs,
//	})
package macro
