// Package telemetry bridges playback events into time-series storage.
//
// The Sink implements macro.Observer and translates state changes,
// per-step progress and cumulative statistics into InfluxDB points.
// It is attached only when telemetry is enabled in configuration, and
// a storage outage never affects playback because all underlying
// writes are batched and asynchronous.
package telemetry
