package mqtt

import "fmt"

// TopicPrefix is the root of every topic this service publishes or
// subscribes to.
const TopicPrefix = "irrigation"

// Topics provides builders for irrigation MQTT topics.
// Using these helpers keeps relay firmware, dashboards and the core in
// agreement on naming:
//
//	topics := mqtt.Topics{}
//	cmd := topics.ValveCommand("5")
//	// Returns: "irrigation/command/valve/5"
type Topics struct{}

// ValveCommand returns the topic a relay listens on for valve commands.
//
// Example: irrigation/command/valve/5
func (Topics) ValveCommand(stationID string) string {
	return fmt.Sprintf("%s/command/valve/%s", TopicPrefix, stationID)
}

// StationEvent returns the topic for watering occurrences of one station.
//
// Example: irrigation/event/5
func (Topics) StationEvent(stationID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, stationID)
}

// StationState returns the retained topic carrying a station's current state.
//
// Example: irrigation/state/5
func (Topics) StationState(stationID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, stationID)
}

// SystemStatus returns the system status topic. The client's last will
// is published here.
//
// Example: irrigation/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}
