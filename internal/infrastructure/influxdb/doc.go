// Package influxdb provides optional telemetry history for AirWatch.
//
// It wraps the official influxdb-client-go v2 library with connection
// management and batched reading writes. When the integration is
// disabled in config.yaml the registry simply runs without history.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history off, continue without it
//	}
//	defer client.Close()
//
//	client.WriteReading("kitchen-01", "Good", 42, 21.5, 40)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered to the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
