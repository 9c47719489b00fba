package mqtt

import "fmt"

// Topic layout for the air-quality fleet.
//
// Each device publishes telemetry on its own topic and listens for
// Wi-Fi configuration commands on a per-device command topic. The
// controller announces its own presence on a retained status topic.
const (
	// TopicPrefix is the base for all fleet topics.
	TopicPrefix = "air-quality"

	// controllerStatusTopic carries the controller's retained
	// online/offline announcements and its Last Will.
	controllerStatusTopic = TopicPrefix + "/controller/status"
)

// Topics provides builders for fleet MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// Telemetry returns the topic a device publishes its readings on.
//
// Example: air-quality/kitchen-01
func (Topics) Telemetry(deviceID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefix, deviceID)
}

// WifiCommand returns the topic a device listens on for Wi-Fi
// configuration commands.
//
// Example: air-quality/kitchen-01/wifi
func (Topics) WifiCommand(deviceID string) string {
	return fmt.Sprintf("%s/%s/wifi", TopicPrefix, deviceID)
}

// ControllerStatus returns the retained controller presence topic.
func (Topics) ControllerStatus() string {
	return controllerStatusTopic
}
