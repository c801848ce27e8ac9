// Package mqtt provides MQTT client connectivity for ClickFlow Core.
//
// This package manages:
//   - Connection to a broker (Mosquitto or similar) with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is ClickFlow's optional remote control surface: an operator's
// broker can trigger, pause, and stop playback on this machine and
// observe its progress from elsewhere on the network.
//
//	Remote controller ↔ MQTT Broker ↔ ClickFlow Core
//
// Commands arrive on clickflow/command/{run,stop,pause,resume}; playback
// events leave on clickflow/event/{state,progress,stats,log}.
//
// # Security Considerations
//
//   - TLS is required when the broker is not on the local machine
//     (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Anyone who can publish to the command topics can drive this
//     desktop; scope broker ACLs accordingly
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff with configurable bounds
package mqtt
