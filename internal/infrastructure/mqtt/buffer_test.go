package mqtt

import (
	"fmt"
	"testing"
)

func TestOutboundBuffer_FIFO(t *testing.T) {
	b := newOutboundBuffer(10)

	for i := 0; i < 5; i++ {
		ok := b.enqueue(outbound{topic: fmt.Sprintf("t/%d", i)})
		if !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	if got := b.len(); got != 5 {
		t.Fatalf("len() = %d, want 5", got)
	}

	drained := b.drain()
	if len(drained) != 5 {
		t.Fatalf("drain() returned %d messages, want 5", len(drained))
	}
	for i, m := range drained {
		if want := fmt.Sprintf("t/%d", i); m.topic != want {
			t.Errorf("drain()[%d].topic = %q, want %q", i, m.topic, want)
		}
	}
	if got := b.len(); got != 0 {
		t.Errorf("len() after drain = %d, want 0", got)
	}
}

func TestOutboundBuffer_RejectsWhenFull(t *testing.T) {
	b := newOutboundBuffer(2)

	if !b.enqueue(outbound{topic: "t/0"}) {
		t.Fatal("first enqueue rejected")
	}
	if !b.enqueue(outbound{topic: "t/1"}) {
		t.Fatal("second enqueue rejected")
	}
	if b.enqueue(outbound{topic: "t/2"}) {
		t.Fatal("enqueue beyond capacity accepted")
	}
	if got := b.rejectedCount(); got != 1 {
		t.Errorf("rejectedCount() = %d, want 1", got)
	}

	// Oldest entries survive, the rejected one is gone
	drained := b.drain()
	if len(drained) != 2 {
		t.Fatalf("drain() returned %d messages, want 2", len(drained))
	}
	if drained[0].topic != "t/0" || drained[1].topic != "t/1" {
		t.Errorf("drained topics = [%s %s], want [t/0 t/1]", drained[0].topic, drained[1].topic)
	}
}

func TestOutboundBuffer_ReusableAfterDrain(t *testing.T) {
	b := newOutboundBuffer(1)

	b.enqueue(outbound{topic: "t/0"})
	b.drain()

	if !b.enqueue(outbound{topic: "t/1"}) {
		t.Error("enqueue after drain rejected; capacity should have been freed")
	}
}
