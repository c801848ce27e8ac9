package remote

import (
	"encoding/json"
	"time"

	"github.com/clickflow/clickflow-core/internal/infrastructure/mqtt"
	"github.com/clickflow/clickflow-core/internal/macro"
)

// eventQoS is the publish QoS for outbound events. Progress updates are
// frequent and loss-tolerant; state changes are retained instead.
const eventQoS = 0

// Publisher mirrors playback events onto the MQTT event topics. It is a
// macro.Observer, so it attaches directly to engine runs.
//
// State events are published retained at QoS 1 so a controller that
// connects mid-run immediately sees the current state. Progress, stats,
// and log events are fire-and-forget.
type Publisher struct {
	broker Broker
	topics mqtt.Topics
	logger Logger
}

// NewPublisher creates an MQTT-backed playback observer.
func NewPublisher(broker Broker, logger Logger) *Publisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{broker: broker, logger: logger}
}

type stateEvent struct {
	State     macro.State `json:"state"`
	Timestamp time.Time   `json:"timestamp"`
}

type progressEvent struct {
	Cycle     int   `json:"cycle"`
	Step      int   `json:"step"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

type logEvent struct {
	Level   macro.LogLevel `json:"level"`
	Message string         `json:"message"`
}

// OnStateChanged publishes lifecycle transitions, retained.
func (p *Publisher) OnStateChanged(state macro.State) {
	p.publish(p.topics.EventState(), stateEvent{
		State:     state,
		Timestamp: time.Now().UTC(),
	}, 1, true)
}

// OnProgress publishes per-step progress.
func (p *Publisher) OnProgress(cycle, step int, elapsed time.Duration) {
	p.publish(p.topics.EventProgress(), progressEvent{
		Cycle:     cycle,
		Step:      step,
		ElapsedMS: elapsed.Milliseconds(),
	}, eventQoS, false)
}

// OnLog publishes playback log messages.
func (p *Publisher) OnLog(level macro.LogLevel, message string) {
	p.publish(p.topics.EventLog(), logEvent{
		Level:   level,
		Message: message,
	}, eventQoS, false)
}

// OnStatistics publishes run counters after each cycle and at the end of
// the run.
func (p *Publisher) OnStatistics(stats macro.Stats) {
	p.publish(p.topics.EventStats(), stats, eventQoS, false)
}

// publish marshals and sends one event. Publish failures are logged,
// never propagated: observer callbacks must not disturb playback.
func (p *Publisher) publish(topic string, payload any, qos byte, retained bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshalling event", "topic", topic, "error", err)
		return
	}
	if err := p.broker.Publish(topic, data, qos, retained); err != nil {
		p.logger.Debug("publishing event failed", "topic", topic, "error", err)
	}
}
