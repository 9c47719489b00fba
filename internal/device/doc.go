// Package device provides the Device Registry for AirWatch.
//
// The registry is the single authoritative catalogue of air-quality
// sensors: it owns the device set, routes inbound bus messages to the
// matching device by topic, derives each device's liveness from the
// age of its last reading, and persists the roster across restarts.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                        Device Registry                          │
//	│                                                                  │
//	│  ┌────────────────┐    ┌────────────────┐    ┌────────────────┐ │
//	│  │    Registry    │    │     Device     │    │     Store      │ │
//	│  │ (registry.go)  │───▶│  (device.go)   │    │ (store.go)     │ │
//	│  │                │    │                │    │                │ │
//	│  │ • Event loop   │    │ • ApplyMessage │    │ • Get/Put      │ │
//	│  │ • Topic routing│    │ • Liveness     │    │ • Delete/List  │ │
//	│  │ • Add/Remove   │    │ • Status text  │    │ • SQLite impl  │ │
//	│  └────────────────┘    └────────────────┘    └────────────────┘ │
//	│           │                                          │          │
//	└───────────│──────────────────────────────────────────│──────────┘
//	            │                                          │
//	            ▼                                          ▼
//	┌──────────────────────┐                  ┌──────────────────────┐
//	│  MQTT bus (mqtt.Conn)│                  │   SQLite Database    │
//	│  • air-quality/{id}  │                  │   (devices table)    │
//	│  • .../{id}/wifi     │                  └──────────────────────┘
//	└──────────────────────┘
//
// # Key Types
//
//   - Registry: The authoritative device set and bus event consumer
//   - Device: One sensor's identity, topics, and last reading
//   - TelemetryReading: A parsed, immutable sensor sample
//   - Record: The persisted subset of a device
//
// # Usage
//
//	store := device.NewSQLiteStore(db.DB)
//	registry := device.NewRegistry(conn, store)
//	registry.SetLogger(log)
//
//	go registry.Run(ctx)
//	conn.Connect() // roster loads when the first connect completes
//
//	registry.AddDevice(ctx, "kitchen-01")
//	registry.ChangeWifiConfig("kitchen-01", "home-net", "correct-horse")
//
//	for _, snap := range registry.Snapshots(time.Now()) {
//	    fmt.Println(snap.Name, snap.Status)
//	}
//
// # Liveness
//
// A device is live iff its last accepted reading is younger than 120
// seconds. Liveness is computed lazily from the last-seen timestamp -
// there are no per-device timers, so a burst of messages cannot race a
// stale transition, and liveness is independent of whether the bus
// connection itself is currently up.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. The device set is guarded
// by one mutex, bus events are consumed by the single Run loop, and
// each Device serializes its own mutations.
package device
