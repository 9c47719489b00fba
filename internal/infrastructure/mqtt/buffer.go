package mqtt

import "sync"

// outboundBufferCapacity is the maximum number of publishes held while
// disconnected. Matches the disconnected-buffer size the devices were
// commissioned against.
const outboundBufferCapacity = 100

// outbound is one pending publish captured while disconnected.
type outbound struct {
	topic   string
	qos     byte
	payload []byte
}

// outboundBuffer is a bounded FIFO queue of publishes awaiting reconnection.
//
// When full, new entries are rejected rather than evicting older ones:
// the oldest pending messages are considered the most valuable because
// they have been waiting longest. Contents are never persisted; a process
// restart starts with an empty buffer.
type outboundBuffer struct {
	mu       sync.Mutex
	entries  []outbound
	capacity int
	rejected int
}

// newOutboundBuffer creates a buffer holding at most capacity entries.
func newOutboundBuffer(capacity int) *outboundBuffer {
	return &outboundBuffer{capacity: capacity}
}

// enqueue appends a message in arrival order.
// Returns false when the buffer is full and the message was dropped.
func (b *outboundBuffer) enqueue(m outbound) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.capacity {
		b.rejected++
		return false
	}
	b.entries = append(b.entries, m)
	return true
}

// drain removes and returns all buffered messages in FIFO order.
func (b *outboundBuffer) drain() []outbound {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.entries
	b.entries = nil
	return entries
}

// len returns the number of buffered messages.
func (b *outboundBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// rejectedCount returns how many publishes were dropped because the
// buffer was full. Useful for logging and tests.
func (b *outboundBuffer) rejectedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}
