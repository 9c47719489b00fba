package device

import "errors"

// Sentinel errors for device operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // Handle missing device
//	}
var (
	// ErrDeviceNotFound indicates the requested device does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrMalformedPayload indicates a telemetry payload could not be
	// parsed. The device's previous reading is left unchanged.
	ErrMalformedPayload = errors.New("malformed telemetry payload")
)
