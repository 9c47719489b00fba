// Package mqtt provides the MQTT connection manager for AirWatch Core.
//
// This package manages:
//   - One logical connection to the broker with auto-reconnect
//   - A desired-subscription set re-issued on every (re)connect
//   - Outbound buffering while disconnected (bounded, FIFO flush)
//   - A bounded event stream of lifecycle and message events
//   - Last Will and Testament (LWT) for controller offline detection
//
// # Architecture
//
// The fleet communicates exclusively over the broker: every sensor
// publishes telemetry on its own topic and receives configuration
// commands on a per-device command topic. The connection manager hides
// the unreliable transport behind a simple contract - callers never
// block on network I/O, and inbound traffic arrives as events:
//
//	Device Registry ← events ← Conn ↔ MQTT Broker ↔ Sensor fleet
//
// # Lifecycle
//
// Connect() is asynchronous and never blocks. The connection moves
// through Disconnected → Connecting → Connected, drops to Reconnecting
// on transport failure, and returns to Connected when the retry
// succeeds. Every entry to Connected re-issues all desired
// subscriptions (sessions are clean) and flushes the outbound buffer
// in FIFO order. Shutdown() is terminal.
//
// # Delivery semantics
//
// Traffic is best-effort at the configured QoS. Subscribe, unsubscribe,
// and publish failures are logged, not returned; there is no retry
// beyond what reconnection provides and no delivery confirmation for
// commands. The outbound buffer holds at most 100 messages and rejects
// new publishes when full rather than evicting older ones.
//
// # Usage
//
//	conn := mqtt.New(cfg.MQTT)
//	conn.SetLogger(logger)
//	conn.Connect()
//	defer conn.Shutdown()
//
//	for ev := range conn.Events() {
//	    switch ev.Kind {
//	    case mqtt.EventConnected:
//	        // (re)connected: registry loads and re-subscribes devices
//	    case mqtt.EventMessage:
//	        // route ev.Topic / ev.Payload
//	    }
//	}
package mqtt
