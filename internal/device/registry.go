package device

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mkerrins/airwatch-core/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bus is the transport surface the registry drives.
// *mqtt.Conn satisfies it; tests use a fake.
type Bus interface {
	Subscribe(topic string, qos byte) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte) error
	Events() <-chan mqtt.Event
	Shutdown()
}

// HistoryWriter records accepted readings to a time-series store.
// *influxdb.Client satisfies it; history is optional and best effort.
type HistoryWriter interface {
	WriteReading(deviceID string, quality string, ppm, temperatureC, humidityPct float64)
}

// wifiCommand is the outbound device configuration payload.
type wifiCommand struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// Registry is the single authoritative in-memory collection of devices.
//
// It routes inbound bus messages to the matching device by topic,
// exposes add/remove/rename/configure operations, and drives roster
// persistence. The registry exclusively owns both the device set and
// the bus; devices never touch the transport directly.
//
// Concurrency: all mutations of the device set - adds, removes, roster
// loads, and routing lookups - are serialized through one mutex, so
// inbound routing can never observe a half-inserted device. Bus events
// are consumed by the single Run loop.
//
// All public methods are thread-safe.
type Registry struct {
	bus   Bus
	store Store
	qos   byte

	mu      sync.Mutex
	devices map[string]*Device // keyed by ID
	byTopic map[string]*Device // keyed by subscribe topic
	loaded  bool

	logger   Logger
	history  HistoryWriter
	onChange func()
}

// NewRegistry creates a registry over the given bus and store.
// The registry is empty until Run observes the first connection and
// loads the persisted roster.
func NewRegistry(bus Bus, store Store) *Registry {
	return &Registry{
		bus:     bus,
		store:   store,
		devices: make(map[string]*Device),
		byTopic: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetQoS sets the QoS level used for subscriptions and command publishes.
func (r *Registry) SetQoS(qos byte) {
	r.qos = qos
}

// SetHistory sets an optional writer that records every accepted reading.
func (r *Registry) SetHistory(history HistoryWriter) {
	r.history = history
}

// SetOnChange sets a callback invoked after any observable state change
// (device added, removed, renamed, or a reading applied). The callback
// runs on the registry's goroutines and must not block.
func (r *Registry) SetOnChange(fn func()) {
	r.onChange = fn
}

// Run consumes bus events until the context is cancelled or the bus
// shuts down and closes its event channel.
//
// On the first connection it loads the persisted roster and subscribes
// each device; later reconnects are idempotent with respect to
// already-registered IDs. Inbound messages are routed to the matching
// device by exact topic.
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.bus.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case mqtt.EventConnected:
				r.logger.Info("bus connected")
				if err := r.loadDevices(ctx); err != nil {
					r.logger.Error("loading persisted devices", "error", err)
				}
			case mqtt.EventConnectionLost:
				r.logger.Warn("bus connection lost", "error", ev.Err)
			case mqtt.EventMessage:
				r.handleMessage(ev.Topic, ev.Payload)
			}
		}
	}
}

// AddDevice creates and registers a device for the given ID.
//
// Returns false if a device with that ID already exists; the registry
// is left unchanged. Otherwise the device is inserted before its
// subscription is requested, so a message arriving immediately after
// the subscribe grant always finds the device in the lookup table.
func (r *Registry) AddDevice(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}

	dev := New(id)

	r.mu.Lock()
	if _, exists := r.devices[id]; exists {
		r.mu.Unlock()
		return false
	}
	r.devices[id] = dev
	r.byTopic[dev.SubscribeTopic()] = dev
	r.mu.Unlock()

	if err := r.bus.Subscribe(dev.SubscribeTopic(), r.qos); err != nil {
		r.logger.Warn("subscribing new device", "device_id", id, "error", err)
	}
	if err := r.store.Put(ctx, dev.record()); err != nil {
		r.logger.Error("persisting new device", "device_id", id, "error", err)
	}

	r.logger.Info("device added", "device_id", id, "topic", dev.SubscribeTopic())
	r.notifyChange()
	return true
}

// RemoveDevice unregisters a device.
//
// No-op if the ID is unknown. Unsubscribe, in-memory removal, and
// persisted-record deletion are all attempted even if an earlier step
// fails: a stray broker-side subscription with no local device is
// harmless, its messages simply find no match and are dropped.
func (r *Registry) RemoveDevice(ctx context.Context, id string) {
	r.mu.Lock()
	dev, exists := r.devices[id]
	if exists {
		delete(r.devices, id)
		delete(r.byTopic, dev.SubscribeTopic())
	}
	r.mu.Unlock()

	if !exists {
		return
	}

	if err := r.bus.Unsubscribe(dev.SubscribeTopic()); err != nil {
		r.logger.Warn("unsubscribing removed device", "device_id", id, "error", err)
	}
	if err := r.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrDeviceNotFound) {
		r.logger.Error("deleting persisted device", "device_id", id, "error", err)
	}

	r.logger.Info("device removed", "device_id", id)
	r.notifyChange()
}

// Rename updates a device's display name. No-op if the ID is unknown.
//
// The new name is persisted on the next shutdown; topics never change.
func (r *Registry) Rename(id, newName string) {
	r.mu.Lock()
	dev, exists := r.devices[id]
	r.mu.Unlock()

	if !exists {
		return
	}

	dev.Rename(newName)
	r.notifyChange()
}

// ChangeWifiConfig publishes a Wi-Fi configuration command to a device.
//
// No-op if the ID is unknown. Fire-and-forget: there is no mechanism to
// confirm the device applied the configuration. Callers are expected to
// validate the password length before calling.
func (r *Registry) ChangeWifiConfig(id, ssid, password string) {
	r.mu.Lock()
	dev, exists := r.devices[id]
	r.mu.Unlock()

	if !exists {
		return
	}

	payload, err := json.Marshal(wifiCommand{SSID: ssid, Password: password})
	if err != nil {
		r.logger.Error("encoding wifi command", "device_id", id, "error", err)
		return
	}
	if err := r.bus.Publish(dev.PublishTopic(), payload, r.qos); err != nil {
		r.logger.Warn("publishing wifi command", "device_id", id, "error", err)
	}
}

// Snapshot returns the display-facing state of one device.
func (r *Registry) Snapshot(id string, now time.Time) (Snapshot, bool) {
	r.mu.Lock()
	dev, exists := r.devices[id]
	r.mu.Unlock()

	if !exists {
		return Snapshot{}, false
	}
	return dev.Snapshot(now), true
}

// Snapshots returns the display-facing state of every device,
// ordered by display name.
func (r *Registry) Snapshots(now time.Time) []Snapshot {
	r.mu.Lock()
	devices := make([]*Device, 0, len(r.devices))
	for _, dev := range r.devices {
		devices = append(devices, dev)
	}
	r.mu.Unlock()

	snaps := make([]Snapshot, 0, len(devices))
	for _, dev := range devices {
		snaps = append(snaps, dev.Snapshot(now))
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	return snaps
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Shutdown persists every current device, then releases the bus.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	devices := make([]*Device, 0, len(r.devices))
	for _, dev := range r.devices {
		devices = append(devices, dev)
	}
	r.mu.Unlock()

	for _, dev := range devices {
		if err := r.store.Put(ctx, dev.record()); err != nil {
			r.logger.Error("persisting device at shutdown", "device_id", dev.ID(), "error", err)
		}
	}

	r.bus.Shutdown()
	r.logger.Info("registry shut down", "devices_persisted", len(devices))
}

// loadDevices restores the persisted roster and subscribes each device.
//
// Runs on every connection, but already-registered IDs are skipped so
// reconnects never duplicate devices. Restored devices start with no
// reading and stale liveness.
func (r *Registry) loadDevices(ctx context.Context) error {
	records, err := r.store.ListAll(ctx)
	if err != nil {
		return err
	}

	var restored []*Device
	r.mu.Lock()
	first := !r.loaded
	r.loaded = true
	for _, rec := range records {
		if _, exists := r.devices[rec.ID]; exists {
			continue
		}
		dev := restore(rec)
		r.devices[rec.ID] = dev
		r.byTopic[dev.SubscribeTopic()] = dev
		restored = append(restored, dev)
	}
	r.mu.Unlock()

	for _, dev := range restored {
		if err := r.bus.Subscribe(dev.SubscribeTopic(), r.qos); err != nil {
			r.logger.Warn("subscribing restored device", "device_id", dev.ID(), "error", err)
		}
	}

	if first || len(restored) > 0 {
		r.logger.Info("device roster loaded", "restored", len(restored), "total", r.Count())
		r.notifyChange()
	}
	return nil
}

// handleMessage routes one inbound message to the device owning the topic.
//
// Unmatched topics (device removed moments earlier, or unrelated
// traffic) are dropped silently apart from a debug record. Malformed
// payloads leave the device's state untouched.
func (r *Registry) handleMessage(topic string, payload []byte) {
	r.mu.Lock()
	dev, exists := r.byTopic[topic]
	r.mu.Unlock()

	if !exists {
		r.logger.Debug("message for unknown topic dropped", "topic", topic)
		return
	}

	now := time.Now()
	if err := dev.ApplyMessage(payload, now); err != nil {
		r.logger.Warn("telemetry rejected", "device_id", dev.ID(), "error", err)
		return
	}

	if r.history != nil {
		reading := dev.LastReading()
		r.history.WriteReading(dev.ID(), string(reading.Quality),
			reading.PPM, reading.TemperatureC, reading.HumidityPct)
	}
	r.notifyChange()
}

// notifyChange invokes the change callback if one is registered.
func (r *Registry) notifyChange() {
	if r.onChange != nil {
		r.onChange()
	}
}
