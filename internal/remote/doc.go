// Package remote exposes playback control over MQTT.
//
// The bridge subscribes to clickflow/command/{run,stop,pause,resume} and
// drives the engine; the publisher mirrors playback events onto
// clickflow/event/{state,progress,stats,log}. Together they let a remote
// controller (a phone, another machine, a scheduler) operate ClickFlow
// without touching the HTTP API.
//
// The whole surface is optional: when MQTT is disabled in configuration
// the daemon simply never constructs a bridge.
package remote
