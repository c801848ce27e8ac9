// Package influxdb provides time-series telemetry storage for ClickFlow
// Core.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched point writes
//   - Connection health monitoring
//
// # Usage
//
// Telemetry is optional; the daemon only connects when enabled in
// configuration. Playback runs write three measurements:
//
//   - run_progress: one point per executed step
//   - run_stats: counters per completed cycle and at run end
//   - run_state: engine lifecycle transitions
//
// Writes are asynchronous. A telemetry outage never blocks or fails
// playback; errors surface through the SetOnError callback.
package influxdb
