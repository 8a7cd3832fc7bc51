// Package influxdb provides InfluxDB connectivity for watering telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched writes and health monitoring.
//
// # Measurements
//
//   - watering: one point per occurrence, tagged by station and outcome
//   - rainfall_24h: the trailing rainfall each rain gate evaluated
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRainfall("garden-001", "5", 1.2, false, time.Now())
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered through SetOnError.
// Connection and health check errors are returned directly.
package influxdb
