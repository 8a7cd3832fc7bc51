// Package mqtt provides MQTT client connectivity for the irrigation core.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is optional. When enabled it carries two kinds of traffic: valve
// commands to relay boards (irrigation/command/valve/{station}) and
// telemetry about watering occurrences for dashboards.
//
//	Irrigation Core → MQTT Broker → Relay boards, dashboards
//
// # Security Considerations
//
//   - Enable TLS whenever the broker is off-host (cfg.Broker.TLS=true)
//   - Relay boards must only accept commands on their own valve topic
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.ValveCommand("5")
//	client.Publish(topic, []byte(`{"on":true}`), 1, false)
package mqtt
