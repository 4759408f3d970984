// Package mqtt publishes bridge state to an MQTT broker.
//
// Each device's reconciled state goes to a retained topic
// (mediabridge/state/{device_id}) so subscribers joining late see the
// current snapshot immediately. Command failures and expiries go to a
// non-retained event topic. The bridge's own liveness is tracked via a
// retained system status topic with a Last Will and Testament, letting
// subscribers distinguish a crash from a graceful shutdown.
//
// MQTT is optional; when disabled in config the bridge runs without a
// broker and only the HTTP API and websocket feed carry state.
package mqtt
