// Package telemetry ships attribute reports and command outcomes to
// InfluxDB.
//
// Every reconciled report becomes a point in the attribute_reports
// measurement, tagged by device, capability, attribute and source, so
// volume curves and playback transitions can be graphed per device.
// Command terminations land in command_results with their attempt
// count, which makes flaky transports visible.
//
// Telemetry is optional and strictly best-effort: writes are batched
// and asynchronous, and a down InfluxDB only surfaces through the error
// callback.
package telemetry
