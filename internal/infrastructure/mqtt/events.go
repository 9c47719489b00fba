package mqtt

// EventKind tags the variants carried on the connection's event stream.
type EventKind int

const (
	// EventConnected fires on every entry to the Connected state,
	// including the initial connect and every reconnect.
	EventConnected EventKind = iota

	// EventConnectionLost fires when the transport detects the
	// connection is gone. Subscriptions and the outbound buffer
	// are preserved across the loss.
	EventConnectionLost

	// EventMessage carries an inbound message for a subscribed topic.
	EventMessage
)

// String returns a human-readable name for logging.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnectionLost:
		return "connection_lost"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is one connection-lifecycle or message-arrival notification.
//
// Events are delivered on a bounded channel in the order they occurred.
// Topic and Payload are set only for EventMessage; Err only for
// EventConnectionLost.
type Event struct {
	Kind    EventKind
	Topic   string
	Payload []byte
	Err     error
}
