package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/stbridge/media-bridge-core/internal/capability"
)

// WriteAttributeReport records one observed attribute value.
//
// Numeric values land in the "value" field, booleans as 0/1, strings in
// the "state" field. Capability, attribute and report source are tags so
// dashboards can slice per attribute without scanning field keys.
func (c *Client) WriteAttributeReport(deviceID string, r capability.AttributeReport) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	switch v := r.Value.(type) {
	case float64:
		fields["value"] = v
	case int:
		fields["value"] = float64(v)
	case bool:
		if v {
			fields["value"] = float64(1)
		} else {
			fields["value"] = float64(0)
		}
	case string:
		fields["state"] = v
	default:
		// Structured payloads (track metadata, source lists) carry no
		// useful scalar; skip them.
		return
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	point := write.NewPoint(
		"attribute_reports",
		map[string]string{
			"device_id":  deviceID,
			"capability": string(r.Capability),
			"attribute":  r.Attribute,
			"source":     string(r.Source),
		},
		fields,
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// WriteCommandResult records the terminal outcome of one outbound
// command: confirmed, failed or expired, with the transport attempts it
// took.
func (c *Client) WriteCommandResult(deviceID, command, outcome string, attempts int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command_results",
		map[string]string{
			"device_id": deviceID,
			"command":   command,
			"outcome":   outcome,
		},
		map[string]interface{}{
			"attempts": attempts,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}
