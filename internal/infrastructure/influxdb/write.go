package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading records one accepted air-quality reading.
//
// The write is non-blocking; points are batched and sent asynchronously
// per the configured batch_size and flush_interval. Dropped silently
// when the client is not connected - history is best effort.
//
// Parameters:
//   - deviceID: Unique identifier for the device (e.g., "kitchen-01")
//   - quality: Classified air quality band ("Good", "Poor", "Bad")
//   - ppm: Particulate concentration in parts per million
//   - temperatureC: Temperature in degrees Celsius
//   - humidityPct: Relative humidity percentage
func (c *Client) WriteReading(deviceID string, quality string, ppm, temperatureC, humidityPct float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"air_quality",
		map[string]string{
			"device_id": deviceID,
			"quality":   quality,
		},
		map[string]interface{}{
			"ppm":         ppm,
			"temperature": temperatureC,
			"humidity":    humidityPct,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteReadingAt records a reading with an explicit timestamp.
//
// Used when replaying buffered telemetry where the observation time is
// not "now".
func (c *Client) WriteReadingAt(deviceID string, quality string, ppm, temperatureC, humidityPct float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"air_quality",
		map[string]string{
			"device_id": deviceID,
			"quality":   quality,
		},
		map[string]interface{}{
			"ppm":         ppm,
			"temperature": temperatureC,
			"humidity":    humidityPct,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}
