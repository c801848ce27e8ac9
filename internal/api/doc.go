// Package api implements the HTTP REST API and WebSocket server for ClickFlow Core.
//
// This package provides:
//   - REST endpoints for profile CRUD, import/export, and playback control
//   - WebSocket hub for real-time run event broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between user interfaces (web dashboard, CLI tools)
// and the playback engine + profile registry. Run control is asynchronous:
// start/stop/pause return immediately and progress flows to WebSocket
// clients through a HubObserver attached to the engine's observer chain.
//
// # Security
//
// The server binds to loopback by default and carries no authentication
// layer. Anything that can reach the port can drive the desktop; exposing
// it beyond localhost is a deployment decision, not a default.
package api
