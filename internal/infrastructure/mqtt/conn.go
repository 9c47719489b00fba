package mqtt

import (
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mkerrins/airwatch-core/internal/infrastructure/config"
)

// State is the connection lifecycle state.
type State string

// Connection states. Shutdown() moves any state to StateDisconnected,
// which is terminal for that Conn instance.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// eventBufferSize bounds the event channel between the connection and
// its consumer. The consumer is a single in-process loop, so this only
// needs to absorb short bursts.
const eventBufferSize = 256

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// transport is the subset of the paho client the connection drives.
// Narrowing the dependency keeps the buffering, subscription, and
// state-machine logic testable without a broker.
type transport interface {
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Unsubscribe(topics ...string) pahomqtt.Token
	IsConnected() bool
}

// Conn owns one logical connection to the MQTT broker.
//
// It wraps paho.mqtt.golang with:
//   - A four-state connection lifecycle with automatic reconnect
//   - A desired-subscription set that survives reconnects and is
//     re-issued on every successful (re)connect
//   - A bounded outbound buffer that holds publishes attempted while
//     disconnected and flushes them in FIFO order on reconnect
//   - A bounded event channel carrying lifecycle and message events
//     to a single consumer
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//
// Failure semantics: transport-level subscribe/unsubscribe/publish
// failures are logged, never propagated. QoS 0 callers cannot
// distinguish "delivered" from "best-effort attempted".
type Conn struct {
	cfg       config.MQTTConfig
	transport transport

	// mu guards state, subs, shutdown, and event emission.
	mu       sync.Mutex
	state    State
	subs     map[string]byte
	shutdown bool

	events        chan Event
	droppedEvents int

	buffer *outboundBuffer

	// logger for failure reporting (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a connection manager for the configured broker.
//
// The returned Conn is in StateDisconnected; call Connect() to begin
// the asynchronous connection attempt and consume Events() for
// lifecycle and message notifications.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Conn: Connection manager ready for Connect()
func New(cfg config.MQTTConfig) *Conn {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := newConn(cfg)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.markReconnecting()
	})

	c.transport = pahomqtt.NewClient(opts)
	return c
}

// newConn builds a Conn without a transport. Tests inject a fake.
func newConn(cfg config.MQTTConfig) *Conn {
	return &Conn{
		cfg:    cfg,
		state:  StateDisconnected,
		subs:   make(map[string]byte),
		events: make(chan Event, eventBufferSize),
		buffer: newOutboundBuffer(outboundBufferCapacity),
	}
}

// Connect begins an asynchronous connection attempt.
//
// It never blocks the caller. The transport retries automatically with
// exponential backoff until the first connection succeeds, and keeps
// reconnecting after any later loss. Success is signalled by an
// EventConnected on Events(); initial failures are logged and retried.
func (c *Conn) Connect() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	if c.state == StateDisconnected {
		c.state = StateConnecting
	}
	t := c.transport
	c.mu.Unlock()

	token := t.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.getLogger().Warn("connection attempt failed, transport keeps retrying",
				"broker", c.cfg.Broker.Host,
				"error", err,
			)
		}
	}()
}

// Subscribe adds a topic to the desired-subscription set.
//
// Idempotent: subscribing to the same topic twice leaves one logical
// subscription. If not currently connected, the broker subscribe is
// deferred and issued automatically on the next EventConnected - clean
// sessions mean the broker forgets subscriptions between connects, so
// the desired set is re-issued on every reconnect.
//
// Parameters:
//   - topic: The exact topic to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//
// Returns:
//   - error: Only for invalid input or a shut-down connection.
//     Transport-level failures are logged, not returned.
func (c *Conn) Subscribe(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrShutdown
	}
	if _, exists := c.subs[topic]; exists {
		c.mu.Unlock()
		return nil
	}
	c.subs[topic] = qos
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected {
		c.issueSubscribe(topic, qos)
	}
	return nil
}

// Unsubscribe removes a topic from the desired-subscription set.
//
// If currently connected, the broker unsubscribe is issued immediately;
// otherwise only the bookkeeping entry is removed so the topic is not
// re-subscribed on the next connect.
func (c *Conn) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrShutdown
	}
	delete(c.subs, topic)
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected {
		token := c.transport.Unsubscribe(topic)
		go func() {
			if !token.WaitTimeout(defaultOpTimeout) {
				c.getLogger().Warn("unsubscribe timed out", "topic", topic)
				return
			}
			if err := token.Error(); err != nil {
				c.getLogger().Warn("unsubscribe failed", "topic", topic, "error", err)
			}
		}()
	}
	return nil
}

// Publish sends a message to the specified topic.
//
// If connected, the message is sent immediately. If disconnected, it is
// held in the outbound buffer (capacity 100) and flushed in FIFO order
// once the connection is restored; when the buffer is full the new
// message is dropped - buffered messages are never evicted.
//
// Parameters:
//   - topic: The topic to publish to
//   - payload: The message payload (typically JSON)
//   - qos: Quality of Service level (0, 1, or 2)
//
// Returns:
//   - error: Only for invalid input or a shut-down connection.
//     Delivery failures and buffer-full drops are logged, not returned.
func (c *Conn) Publish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrShutdown
	}
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		if !c.buffer.enqueue(outbound{topic: topic, qos: qos, payload: payload}) {
			c.getLogger().Warn("outbound buffer full, dropping publish",
				"topic", topic,
				"capacity", outboundBufferCapacity,
			)
		}
		return nil
	}

	c.send(topic, qos, false, payload)
	return nil
}

// send fires a publish and reports failure asynchronously.
func (c *Conn) send(topic string, qos byte, retained bool, payload []byte) {
	token := c.transport.Publish(topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(defaultOpTimeout) {
			c.getLogger().Warn("publish timed out", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			c.getLogger().Warn("publish failed", "topic", topic, "error", err)
		}
	}()
}

// issueSubscribe fires a broker subscribe and reports failure
// asynchronously. The topic stays in the desired set regardless, so a
// failed subscribe is retried on the next reconnect.
func (c *Conn) issueSubscribe(topic string, qos byte) {
	token := c.transport.Subscribe(topic, qos, c.onMessage)
	go func() {
		if !token.WaitTimeout(defaultOpTimeout) {
			c.getLogger().Warn("subscribe timed out", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			c.getLogger().Warn("subscribe failed", "topic", topic, "error", err)
		}
	}()
}

// onMessage is the paho callback for every subscribed topic.
func (c *Conn) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.emit(Event{Kind: EventMessage, Topic: msg.Topic(), Payload: msg.Payload()})
}

// handleConnect runs on every entry to Connected, initial and reconnect alike.
func (c *Conn) handleConnect() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	subs := make(map[string]byte, len(c.subs))
	for topic, qos := range c.subs {
		subs[topic] = qos
	}
	c.mu.Unlock()

	// Clean session: the broker has no memory of previous subscriptions,
	// so the entire desired set is re-issued on every connect.
	for topic, qos := range subs {
		c.issueSubscribe(topic, qos)
	}

	// Flush publishes buffered while disconnected, oldest first.
	for _, m := range c.buffer.drain() {
		c.send(m.topic, m.qos, false, m.payload)
	}

	c.publishOnlineStatus()

	c.emit(Event{Kind: EventConnected})
}

// handleConnectionLost runs when the transport detects the connection
// is gone. Subscriptions and the outbound buffer are left intact.
func (c *Conn) handleConnectionLost(err error) {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.state = StateReconnecting
	c.mu.Unlock()

	c.emit(Event{Kind: EventConnectionLost, Err: err})
}

// markReconnecting keeps the state accurate while paho retries.
func (c *Conn) markReconnecting() {
	c.mu.Lock()
	if !c.shutdown && c.state == StateConnected {
		c.state = StateReconnecting
	}
	c.mu.Unlock()
}

// publishOnlineStatus announces controller presence on the retained status topic.
func (c *Conn) publishOnlineStatus() {
	payload := []byte(buildOnlinePayload(c.cfg.Broker.ClientID))
	c.send(controllerStatusTopic, byte(c.cfg.QoS), true, payload)
}

// emit delivers an event without blocking transport callbacks.
// If the consumer has fallen a full buffer behind, the event is dropped
// and counted.
func (c *Conn) emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	select {
	case c.events <- e:
	default:
		c.droppedEvents++
		c.getLogger().Warn("event channel full, dropping event", "kind", e.Kind.String())
	}
}

// DroppedEvents returns how many events were discarded because the
// consumer fell behind.
func (c *Conn) DroppedEvents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.droppedEvents
}

// Events returns the stream of lifecycle and message events.
//
// The channel is closed by Shutdown(). It must be consumed by a single
// loop; events are delivered in the order they occurred.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// State returns the current connection lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the connection is currently established.
func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// SubscriptionCount returns the number of desired subscriptions.
//
// This can be useful for monitoring and debugging.
func (c *Conn) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// HasSubscription checks if a desired subscription exists for the topic.
//
// Note: This checks only the exact topic string, not pattern matching.
func (c *Conn) HasSubscription(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.subs[topic]
	return exists
}

// BufferedCount returns the number of publishes waiting for reconnection.
func (c *Conn) BufferedCount() int {
	return c.buffer.len()
}

// Shutdown gracefully disconnects and releases transport resources.
//
// It publishes a graceful offline status (distinct from the LWT crash
// status) when connected, cancels pending reconnect attempts, and
// closes the event channel. Idempotent; the Conn cannot be reused.
func (c *Conn) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.shutdown = true
	connected := c.state == StateConnected
	c.state = StateDisconnected
	events := c.events
	c.mu.Unlock()

	if connected {
		payload := []byte(buildOfflinePayload(c.cfg.Broker.ClientID))
		token := c.transport.Publish(controllerStatusTopic, byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(defaultOpTimeout)
	}

	// Disconnect with quiesce period for pending operations.
	// Also stops paho's reconnect loop.
	c.transport.Disconnect(defaultDisconnectQuiesce)

	close(events)
}

// SetLogger sets a logger for failure reporting.
// If not set, failures are silently ignored.
func (c *Conn) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (never nil).
func (c *Conn) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
