// Package telemetry forwards station activity to external systems.
//
// MQTTPublisher publishes occurrence events and retained station states to
// the broker so dashboards and home automation can follow the stations.
// InfluxRecorder writes watering and rainfall points to InfluxDB.
//
// Both types implement station.Observer and run on the driver goroutine.
// MQTT publishes are bounded by the client's publish timeout and failures
// are logged. InfluxDB writes are queued by the client and errors reach
// its SetOnError callback.
package telemetry
