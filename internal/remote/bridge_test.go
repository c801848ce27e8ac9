package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clickflow/clickflow-core/internal/infrastructure/mqtt"
	"github.com/clickflow/clickflow-core/internal/macro"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockBroker captures publishes and lets tests inject inbound messages.
type mockBroker struct {
	mu        sync.Mutex
	published []brokerMessage
	handlers  map[string]mqtt.MessageHandler
}

type brokerMessage struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func newMockBroker() *mockBroker {
	return &mockBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, brokerMessage{topic, payload, qos, retained})
	return nil
}

func (m *mockBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

// deliver simulates an inbound broker message.
func (m *mockBroker) deliver(topic string, payload string) error {
	m.mu.Lock()
	handler := m.handlers[topic]
	m.mu.Unlock()
	if handler == nil {
		return errors.New("no handler for topic " + topic)
	}
	return handler(topic, []byte(payload))
}

func (m *mockBroker) messagesOn(topic string) []brokerMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []brokerMessage
	for _, msg := range m.published {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

// mockEngine records control calls.
type mockEngine struct {
	mu       sync.Mutex
	requests []macro.RunRequest
	stops    int
	pauses   int
	resumes  int
	pauseObs macro.Observer
	startErr error
}

func (m *mockEngine) StartRun(req macro.RunRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return "", m.startErr
	}
	m.requests = append(m.requests, req)
	return "run-1", nil
}

func (m *mockEngine) RequestStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func (m *mockEngine) Pause(obs macro.Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	m.pauseObs = obs
	return nil
}

func (m *mockEngine) Resume(macro.Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
	return nil
}

func (m *mockEngine) State() macro.State { return macro.StateIdle }

func (m *mockEngine) lastRequest() *macro.RunRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}

// mockProfiles serves fixed profiles by ID and slug.
type mockProfiles struct {
	byID map[string]*macro.Profile
}

func (m *mockProfiles) GetProfile(_ context.Context, id string) (*macro.Profile, error) {
	if p, ok := m.byID[id]; ok {
		return p.DeepCopy(), nil
	}
	return nil, macro.ErrProfileNotFound
}

func (m *mockProfiles) GetProfileBySlug(_ context.Context, slug string) (*macro.Profile, error) {
	for _, p := range m.byID {
		if p.Slug == slug {
			return p.DeepCopy(), nil
		}
	}
	return nil, macro.ErrProfileNotFound
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func setupBridge(t *testing.T) (*Bridge, *mockBroker, *mockEngine) {
	t.Helper()

	profiles := &mockProfiles{byID: map[string]*macro.Profile{
		"p1": {
			ID:      "p1",
			Name:    "Login Flow",
			Slug:    "login-flow",
			Enabled: true,
			Sequence: macro.Sequence{
				{Kind: macro.KindLeftClick, Position: &macro.Position{X: 1, Y: 1}},
			},
			Config: macro.RunConfig{Cycles: 3},
		},
		"p2": {
			ID:      "p2",
			Name:    "Disabled",
			Slug:    "disabled",
			Enabled: false,
			Sequence: macro.Sequence{
				{Kind: macro.KindWait, DurationMS: 10},
			},
		},
	}}

	broker := newMockBroker()
	engine := &mockEngine{}
	bridge := NewBridge(broker, engine, profiles, nil)
	if err := bridge.Start(); err != nil {
		t.Fatalf("bridge start failed: %v", err)
	}
	return bridge, broker, engine
}

// ─── Command Tests ──────────────────────────────────────────────────────────

func TestBridge_RunBySlug(t *testing.T) {
	_, broker, engine := setupBridge(t)

	err := broker.deliver("clickflow/command/run", `{"profile":"login-flow"}`)
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	req := engine.lastRequest()
	if req == nil {
		t.Fatal("engine never started")
	}
	if req.ProfileID != "p1" {
		t.Errorf("expected profile p1, got %s", req.ProfileID)
	}
	if req.Trigger != "mqtt" {
		t.Errorf("expected mqtt trigger, got %s", req.Trigger)
	}
	if req.Config.Cycles != 3 {
		t.Errorf("expected stored cycles 3, got %d", req.Config.Cycles)
	}
}

func TestBridge_RunByID(t *testing.T) {
	_, broker, engine := setupBridge(t)

	if err := broker.deliver("clickflow/command/run", `{"profile":"p1"}`); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if engine.lastRequest() == nil {
		t.Fatal("engine never started")
	}
}

func TestBridge_RunCyclesOverride(t *testing.T) {
	_, broker, engine := setupBridge(t)

	if err := broker.deliver("clickflow/command/run", `{"profile":"login-flow","cycles":10}`); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if got := engine.lastRequest().Config.Cycles; got != 10 {
		t.Errorf("expected cycle override 10, got %d", got)
	}
}

func TestBridge_RunUnknownProfile(t *testing.T) {
	_, broker, engine := setupBridge(t)

	err := broker.deliver("clickflow/command/run", `{"profile":"missing"}`)
	if !errors.Is(err, macro.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
	if engine.lastRequest() != nil {
		t.Error("engine started for unknown profile")
	}
}

func TestBridge_RunDisabledProfile(t *testing.T) {
	_, broker, engine := setupBridge(t)

	err := broker.deliver("clickflow/command/run", `{"profile":"disabled"}`)
	if !errors.Is(err, macro.ErrProfileDisabled) {
		t.Errorf("expected ErrProfileDisabled, got %v", err)
	}
	if engine.lastRequest() != nil {
		t.Error("engine started for disabled profile")
	}
}

func TestBridge_RunMalformedPayload(t *testing.T) {
	_, broker, engine := setupBridge(t)

	if err := broker.deliver("clickflow/command/run", `{not json`); err == nil {
		t.Error("expected error for malformed payload")
	}
	if err := broker.deliver("clickflow/command/run", `{}`); err == nil {
		t.Error("expected error for missing profile")
	}
	if engine.lastRequest() != nil {
		t.Error("engine started from malformed command")
	}
}

func TestBridge_StopPauseResume(t *testing.T) {
	_, broker, engine := setupBridge(t)

	if err := broker.deliver("clickflow/command/stop", ``); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := broker.deliver("clickflow/command/pause", ``); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := broker.deliver("clickflow/command/resume", ``); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.stops != 1 || engine.pauses != 1 || engine.resumes != 1 {
		t.Errorf("expected 1 of each, got stops=%d pauses=%d resumes=%d",
			engine.stops, engine.pauses, engine.resumes)
	}
}

func TestBridge_RunDefaultsToEventsObserver(t *testing.T) {
	bridge, broker, engine := setupBridge(t)

	if err := broker.deliver("clickflow/command/run", `{"profile":"login-flow"}`); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if got := engine.lastRequest().Observer; got != bridge.Events() {
		t.Errorf("expected the MQTT publisher as observer, got %T", got)
	}
}

func TestBridge_RunUsesConfiguredObserver(t *testing.T) {
	bridge, broker, engine := setupBridge(t)

	// Remote runs must flow through the same chain as local ones once
	// the composition root hands it over.
	chain := macro.MultiObserver{bridge.Events()}
	bridge.SetObserver(chain)

	if err := broker.deliver("clickflow/command/run", `{"profile":"login-flow"}`); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	req := engine.lastRequest()
	if req == nil {
		t.Fatal("engine never started")
	}
	if _, ok := req.Observer.(macro.MultiObserver); !ok {
		t.Errorf("expected the configured chain as observer, got %T", req.Observer)
	}

	if err := broker.deliver("clickflow/command/pause", ``); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	engine.mu.Lock()
	pauseObs := engine.pauseObs
	engine.mu.Unlock()
	if _, ok := pauseObs.(macro.MultiObserver); !ok {
		t.Errorf("expected pause to carry the configured chain, got %T", pauseObs)
	}
}

// ─── Publisher Tests ────────────────────────────────────────────────────────

func TestPublisher_StateRetained(t *testing.T) {
	broker := newMockBroker()
	pub := NewPublisher(broker, nil)

	pub.OnStateChanged(macro.StateRunning)

	msgs := broker.messagesOn("clickflow/event/state")
	if len(msgs) != 1 {
		t.Fatalf("expected 1 state event, got %d", len(msgs))
	}
	if !msgs[0].Retained {
		t.Error("expected state event retained")
	}

	var ev stateEvent
	if err := json.Unmarshal(msgs[0].Payload, &ev); err != nil {
		t.Fatalf("unmarshalling state event: %v", err)
	}
	if ev.State != macro.StateRunning {
		t.Errorf("expected running, got %s", ev.State)
	}
}

func TestPublisher_ProgressAndStats(t *testing.T) {
	broker := newMockBroker()
	pub := NewPublisher(broker, nil)

	pub.OnProgress(2, 5, 1500*time.Millisecond)
	pub.OnStatistics(macro.Stats{SuccessCount: 7, CyclesCompleted: 2})
	pub.OnLog(macro.LevelWarn, "step 3 failed")

	progress := broker.messagesOn("clickflow/event/progress")
	if len(progress) != 1 {
		t.Fatalf("expected 1 progress event, got %d", len(progress))
	}
	var pe progressEvent
	if err := json.Unmarshal(progress[0].Payload, &pe); err != nil {
		t.Fatalf("unmarshalling progress: %v", err)
	}
	if pe.Cycle != 2 || pe.Step != 5 || pe.ElapsedMS != 1500 {
		t.Errorf("unexpected progress event: %+v", pe)
	}

	stats := broker.messagesOn("clickflow/event/stats")
	if len(stats) != 1 {
		t.Fatalf("expected 1 stats event, got %d", len(stats))
	}
	var se macro.Stats
	if err := json.Unmarshal(stats[0].Payload, &se); err != nil {
		t.Fatalf("unmarshalling stats: %v", err)
	}
	if se.SuccessCount != 7 {
		t.Errorf("expected 7 successes, got %d", se.SuccessCount)
	}

	logs := broker.messagesOn("clickflow/event/log")
	if len(logs) != 1 {
		t.Fatalf("expected 1 log event, got %d", len(logs))
	}
}
