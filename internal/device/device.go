package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/mkerrins/airwatch-core/internal/infrastructure/mqtt"
)

// Liveness is the derived freshness state of a device.
type Liveness string

// Liveness states.
const (
	// LivenessStale means the device has never reported, or its last
	// accepted reading is older than the freshness window.
	LivenessStale Liveness = "stale"

	// LivenessLive means the device reported within the freshness window.
	LivenessLive Liveness = "live"
)

// FreshnessWindow is how long a device stays live after its last
// accepted reading. Liveness is computed lazily from the last-seen
// timestamp, so there is no timer to cancel or re-arm.
const FreshnessWindow = 120 * time.Second

// staleStatus is the display status for a device with no fresh reading.
const staleStatus = "Not connected"

// Device is one sensor's record: identity, topic names, and the last
// accepted telemetry reading.
//
// Identity and topic names are fixed at construction. The topics are
// derived from the ID exactly once and never recomputed - changing them
// later would desynchronize the broker subscription.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Two messages arriving
//     back-to-back apply in arrival order under the device's own lock.
type Device struct {
	id             string
	subscribeTopic string
	publishTopic   string

	mu          sync.Mutex
	name        string
	lastReading *TelemetryReading
	lastSeen    time.Time
}

// New creates a device with topics derived from its ID.
// The display name defaults to the ID until renamed.
func New(id string) *Device {
	var topics mqtt.Topics
	return &Device{
		id:             id,
		name:           id,
		subscribeTopic: topics.Telemetry(id),
		publishTopic:   topics.WifiCommand(id),
	}
}

// restore rebuilds a device from a persisted record.
//
// Topics come from the record verbatim rather than being rederived.
// The reading and liveness are runtime-only and start empty/stale.
func restore(rec Record) *Device {
	return &Device{
		id:             rec.ID,
		name:           rec.Name,
		subscribeTopic: rec.SubscribeTopic,
		publishTopic:   rec.PublishTopic,
	}
}

// ID returns the device's immutable identifier.
func (d *Device) ID() string { return d.id }

// SubscribeTopic returns the topic the device publishes telemetry on.
func (d *Device) SubscribeTopic() string { return d.subscribeTopic }

// PublishTopic returns the topic the device accepts commands on.
func (d *Device) PublishTopic() string { return d.publishTopic }

// Name returns the current display name.
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// Rename updates the display name.
//
// Pure mutation: no transport or persistence side effects. The registry
// persists names explicitly on shutdown.
func (d *Device) Rename(newName string) {
	d.mu.Lock()
	d.name = newName
	d.mu.Unlock()
}

// ApplyMessage parses a raw telemetry payload and, on success, replaces
// the last reading and refreshes the liveness window.
//
// On a parse failure the previous reading and liveness are left
// unchanged and ErrMalformedPayload is returned (wrapped with detail).
func (d *Device) ApplyMessage(payload []byte, now time.Time) error {
	reading, err := ParseReading(payload, now)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.lastReading = reading
	d.lastSeen = now
	d.mu.Unlock()
	return nil
}

// Liveness reports whether the device is live at the given instant.
//
// A device is live iff a reading was accepted and now is within the
// freshness window of it. Liveness is independent of the transport
// connection state: a device can be live while the bus is reconnecting,
// and go stale while the bus is connected.
func (d *Device) Liveness(now time.Time) Liveness {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.livenessLocked(now)
}

func (d *Device) livenessLocked(now time.Time) Liveness {
	if d.lastReading == nil {
		return LivenessStale
	}
	if now.Sub(d.lastSeen) >= FreshnessWindow {
		return LivenessStale
	}
	return LivenessLive
}

// LastReading returns a copy of the last accepted reading, or nil if
// the device has never reported.
func (d *Device) LastReading() *TelemetryReading {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastReading == nil {
		return nil
	}
	reading := *d.lastReading
	return &reading
}

// Status returns the human-readable display status at the given instant.
//
// Stale devices report "Not connected"; live devices report a summary
// of the last reading.
func (d *Device) Status(now time.Time) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.livenessLocked(now) == LivenessStale {
		return staleStatus
	}
	return fmt.Sprintf("Air Quality: %s\nTemperature: %.1fºC\nHumidity: %.1f%%",
		d.lastReading.Quality,
		d.lastReading.TemperatureC,
		d.lastReading.HumidityPct,
	)
}

// record returns the persistable subset of the device.
// The transient reading and liveness are never persisted.
func (d *Device) record() Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Record{
		ID:             d.id,
		Name:           d.name,
		SubscribeTopic: d.subscribeTopic,
		PublishTopic:   d.publishTopic,
	}
}

// Snapshot is a point-in-time copy of a device's display-facing state.
type Snapshot struct {
	ID             string
	Name           string
	SubscribeTopic string
	PublishTopic   string
	Liveness       Liveness
	Status         string
	LastReading    *TelemetryReading
}

// Snapshot captures the device's display-facing state at the given instant.
func (d *Device) Snapshot(now time.Time) Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{
		ID:             d.id,
		Name:           d.name,
		SubscribeTopic: d.subscribeTopic,
		PublishTopic:   d.publishTopic,
		Liveness:       d.livenessLocked(now),
	}
	if snap.Liveness == LivenessStale {
		snap.Status = staleStatus
	} else {
		snap.Status = fmt.Sprintf("Air Quality: %s\nTemperature: %.1fºC\nHumidity: %.1f%%",
			d.lastReading.Quality,
			d.lastReading.TemperatureC,
			d.lastReading.HumidityPct,
		)
	}
	if d.lastReading != nil {
		reading := *d.lastReading
		snap.LastReading = &reading
	}
	return snap
}
