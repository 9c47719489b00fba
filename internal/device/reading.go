package device

import (
	"encoding/json"
	"fmt"
	"time"
)

// AirQuality is the categorical band derived from a ppm value.
type AirQuality string

// Air quality bands, from best to worst.
const (
	AirQualityGood AirQuality = "Good"
	AirQualityPoor AirQuality = "Poor"
	AirQualityBad  AirQuality = "Bad"
)

// Classification thresholds in parts per million.
const (
	goodMaxPPM = 150
	poorMaxPPM = 400
)

// classifyAirQuality maps a ppm concentration to its band.
func classifyAirQuality(ppm float64) AirQuality {
	switch {
	case ppm < goodMaxPPM:
		return AirQualityGood
	case ppm < poorMaxPPM:
		return AirQualityPoor
	default:
		return AirQualityBad
	}
}

// TelemetryReading is one parsed sensor sample.
//
// Immutable once constructed: a new message produces a new reading that
// replaces the old one atomically from the device's perspective. The
// air quality band is computed once at parse time.
type TelemetryReading struct {
	PPM          float64
	TemperatureC float64
	HumidityPct  float64
	Quality      AirQuality
	ReceivedAt   time.Time
}

// ParseReading parses a raw telemetry payload.
//
// The payload is a JSON object with required numeric fields "ppm",
// "temperature", and "humidity"; any other fields are ignored. Returns
// ErrMalformedPayload (wrapped with detail) if the payload is not valid
// JSON or a required field is missing or non-numeric.
func ParseReading(payload []byte, now time.Time) (*TelemetryReading, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	ppm, err := numericField(fields, "ppm")
	if err != nil {
		return nil, err
	}
	temperature, err := numericField(fields, "temperature")
	if err != nil {
		return nil, err
	}
	humidity, err := numericField(fields, "humidity")
	if err != nil {
		return nil, err
	}

	return &TelemetryReading{
		PPM:          ppm,
		TemperatureC: temperature,
		HumidityPct:  humidity,
		Quality:      classifyAirQuality(ppm),
		ReceivedAt:   now,
	}, nil
}

// numericField extracts a required numeric field from a decoded payload.
func numericField(fields map[string]any, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrMalformedPayload, name)
	}
	value, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is not numeric", ErrMalformedPayload, name)
	}
	return value, nil
}
