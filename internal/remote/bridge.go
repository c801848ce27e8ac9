package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/clickflow/clickflow-core/internal/infrastructure/mqtt"
	"github.com/clickflow/clickflow-core/internal/macro"
)

// Broker is the MQTT surface the bridge consumes. Satisfied by
// *mqtt.Client; tests use a mock.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Engine is the playback control surface the bridge drives.
type Engine interface {
	StartRun(req macro.RunRequest) (string, error)
	RequestStop()
	Pause(obs macro.Observer) error
	Resume(obs macro.Observer) error
	State() macro.State
}

// ProfileSource resolves profile references from run commands.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (*macro.Profile, error)
	GetProfileBySlug(ctx context.Context, slug string) (*macro.Profile, error)
}

// Logger matches the logging interface used across the daemon.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// commandQoS is the subscription QoS for inbound commands. At-least-once
// is right for control messages; handlers tolerate duplicates (stop and
// pause are idempotent, run rejects overlap).
const commandQoS = 1

// runCommand is the payload of clickflow/command/run.
type runCommand struct {
	// Profile is the profile ID or slug to play.
	Profile string `json:"profile"`

	// Cycles overrides the stored cycle count when positive.
	Cycles int `json:"cycles,omitempty"`
}

// Bridge connects a remote MQTT controller to the playback engine.
// Inbound commands start, stop, pause, and resume runs; the paired
// Publisher streams playback events back out.
type Bridge struct {
	broker   Broker
	engine   Engine
	profiles ProfileSource
	events   *Publisher
	logger   Logger

	mu       sync.RWMutex
	observer macro.Observer
}

// NewBridge creates the remote control bridge.
func NewBridge(broker Broker, engine Engine, profiles ProfileSource, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	b := &Bridge{
		broker:   broker,
		engine:   engine,
		profiles: profiles,
		events:   NewPublisher(broker, logger),
		logger:   logger,
	}
	b.observer = b.events
	return b
}

// Events returns the observer that mirrors playback onto MQTT. Attach it
// to runs started from any surface so remote subscribers see local runs
// too.
func (b *Bridge) Events() macro.Observer {
	return b.events
}

// SetObserver replaces the observer attached to remote-triggered runs.
// The composition root points this at the daemon's full observer chain
// so remote runs reach the WebSocket hub, the log and telemetry exactly
// like local runs. The chain is expected to include Events(); a nil
// observer restores the MQTT publisher alone.
func (b *Bridge) SetObserver(obs macro.Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if obs == nil {
		b.observer = b.events
		return
	}
	b.observer = obs
}

// runObserver returns the observer for command-triggered engine calls.
func (b *Bridge) runObserver() macro.Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.observer
}

// Start subscribes to the command topics. Call once after the broker
// connection is up; the mqtt client restores subscriptions on reconnect.
func (b *Bridge) Start() error {
	topics := mqtt.Topics{}

	subs := map[string]mqtt.MessageHandler{
		topics.CommandRun():    b.handleRun,
		topics.CommandStop():   b.handleStop,
		topics.CommandPause():  b.handlePause,
		topics.CommandResume(): b.handleResume,
	}
	for topic, handler := range subs {
		if err := b.broker.Subscribe(topic, commandQoS, handler); err != nil {
			return fmt.Errorf("subscribing %s: %w", topic, err)
		}
	}

	b.logger.Info("remote bridge started", "topics", len(subs))
	return nil
}

// handleRun resolves the referenced profile and starts playback.
func (b *Bridge) handleRun(_ string, payload []byte) error {
	var cmd runCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parsing run command: %w", err)
	}
	if cmd.Profile == "" {
		return fmt.Errorf("run command missing profile")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := b.profiles.GetProfile(ctx, cmd.Profile)
	if err != nil {
		profile, err = b.profiles.GetProfileBySlug(ctx, cmd.Profile)
	}
	if err != nil {
		b.logger.Warn("remote run for unknown profile", "profile", cmd.Profile)
		return err
	}
	if !profile.Enabled {
		b.logger.Warn("remote run for disabled profile", "profile", profile.Slug)
		return macro.ErrProfileDisabled
	}

	cfg := profile.Config
	if cmd.Cycles > 0 {
		cfg.Cycles = cmd.Cycles
	}

	runID, err := b.engine.StartRun(macro.RunRequest{
		ProfileID: profile.ID,
		Trigger:   "mqtt",
		Sequence:  profile.Sequence,
		Config:    cfg,
		Observer:  b.runObserver(),
	})
	if err != nil {
		b.logger.Warn("remote run rejected", "profile", profile.Slug, "error", err)
		return err
	}

	b.logger.Info("remote run started", "profile", profile.Slug, "run_id", runID)
	return nil
}

func (b *Bridge) handleStop(_ string, _ []byte) error {
	b.engine.RequestStop()
	b.logger.Info("remote stop requested")
	return nil
}

func (b *Bridge) handlePause(_ string, _ []byte) error {
	if err := b.engine.Pause(b.runObserver()); err != nil {
		b.logger.Debug("remote pause ignored", "error", err)
		return err
	}
	return nil
}

func (b *Bridge) handleResume(_ string, _ []byte) error {
	if err := b.engine.Resume(b.runObserver()); err != nil {
		b.logger.Debug("remote resume ignored", "error", err)
		return err
	}
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
