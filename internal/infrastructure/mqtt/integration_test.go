//go:build integration

package mqtt

import (
	"testing"
	"time"

	"github.com/mkerrins/airwatch-core/internal/infrastructure/config"
)

// Integration tests for broker connectivity.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...
//
// Note: Some tests may be flaky in CI due to timing dependencies.
// Consider running with: go test -tags=integration -count=1 -v ...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "airwatch-integration-test",
			TLS:      false,
		},
		QoS: 0,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// waitForEvent blocks until an event of the given kind arrives or the
// timeout elapses.
func waitForEvent(t *testing.T, c *Conn, kind EventKind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("event channel closed while waiting for %v", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v event", kind)
		}
	}
}

func TestIntegration_ConnectAndShutdown(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "airwatch-int-connect"

	c := New(cfg)
	c.Connect()
	waitForEvent(t, c, EventConnected, 10*time.Second)

	if !c.IsConnected() {
		t.Error("IsConnected() = false after EventConnected")
	}

	c.Shutdown()
	if got := c.State(); got != StateDisconnected {
		t.Errorf("State() after Shutdown() = %v, want %v", got, StateDisconnected)
	}
}

func TestIntegration_PublishSubscribeRoundTrip(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "airwatch-int-roundtrip"

	c := New(cfg)
	defer c.Shutdown()

	var topics Topics
	topic := topics.Telemetry("int-test-device")
	if err := c.Subscribe(topic, 0); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	c.Connect()
	waitForEvent(t, c, EventConnected, 10*time.Second)

	// Subscribe grants race connect callbacks; give the broker a moment
	time.Sleep(500 * time.Millisecond)

	if err := c.Publish(topic, []byte(`{"ppm":42,"temperature":21.5,"humidity":40}`), 0); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	ev := waitForEvent(t, c, EventMessage, 10*time.Second)
	if ev.Topic != topic {
		t.Errorf("message topic = %q, want %q", ev.Topic, topic)
	}
}
