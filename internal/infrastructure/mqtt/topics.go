package mqtt

import "fmt"

// TopicPrefix is the base for all bridge topics.
// Scheme: mediabridge/{category}/{device_id}
const TopicPrefix = "mediabridge"

// Topics provides builders for the bridge's MQTT topics. Using these
// helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// DeviceState returns the retained state topic for one device.
//
// Example: mediabridge/state/device-123
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceEvent returns the topic for command lifecycle events of one
// device (failures, expiries).
//
// Example: mediabridge/event/device-123
func (Topics) DeviceEvent(deviceID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the bridge online/offline status topic.
//
// Example: mediabridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}
