package device

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNew_TopicDerivation(t *testing.T) {
	dev := New("kitchen-01")

	if got, want := dev.SubscribeTopic(), "air-quality/kitchen-01"; got != want {
		t.Errorf("SubscribeTopic() = %q, want %q", got, want)
	}
	if got, want := dev.PublishTopic(), "air-quality/kitchen-01/wifi"; got != want {
		t.Errorf("PublishTopic() = %q, want %q", got, want)
	}
	if got := dev.Name(); got != "kitchen-01" {
		t.Errorf("Name() defaults to %q, want the ID", got)
	}

	// Topics are fixed at construction; renaming must not touch them
	dev.Rename("Kitchen Sensor")
	if got := dev.Name(); got != "Kitchen Sensor" {
		t.Errorf("Name() after Rename = %q", got)
	}
	if got, want := dev.SubscribeTopic(), "air-quality/kitchen-01"; got != want {
		t.Errorf("SubscribeTopic() changed after rename: %q", got)
	}
	if got, want := dev.PublishTopic(), "air-quality/kitchen-01/wifi"; got != want {
		t.Errorf("PublishTopic() changed after rename: %q", got)
	}
}

func TestApplyMessage(t *testing.T) {
	dev := New("kitchen-01")
	t0 := time.Now()

	if got := dev.Liveness(t0); got != LivenessStale {
		t.Fatalf("Liveness() before any reading = %v, want %v", got, LivenessStale)
	}
	if got := dev.Status(t0); got != "Not connected" {
		t.Fatalf("Status() before any reading = %q, want %q", got, "Not connected")
	}

	err := dev.ApplyMessage([]byte(`{"ppm":100,"temperature":22.5,"humidity":40.0}`), t0)
	if err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}

	if got := dev.Liveness(t0); got != LivenessLive {
		t.Errorf("Liveness() = %v, want %v", got, LivenessLive)
	}
	reading := dev.LastReading()
	if reading == nil {
		t.Fatal("LastReading() = nil after accepted message")
	}
	if reading.Quality != AirQualityGood {
		t.Errorf("Quality = %v, want %v", reading.Quality, AirQualityGood)
	}

	status := dev.Status(t0)
	if !strings.Contains(status, "22.5") || !strings.Contains(status, "40.0") {
		t.Errorf("Status() = %q, want it to contain 22.5 and 40.0", status)
	}
	if !strings.Contains(status, "Good") {
		t.Errorf("Status() = %q, want it to contain the quality band", status)
	}

	// A worse reading replaces the previous one
	t1 := t0.Add(time.Second)
	if err := dev.ApplyMessage([]byte(`{"ppm":450,"temperature":30,"humidity":10}`), t1); err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}
	if got := dev.LastReading().Quality; got != AirQualityBad {
		t.Errorf("Quality after second reading = %v, want %v", got, AirQualityBad)
	}
}

func TestApplyMessage_MalformedLeavesStateUnchanged(t *testing.T) {
	dev := New("kitchen-01")
	t0 := time.Now()

	if err := dev.ApplyMessage([]byte(`{"ppm":100,"temperature":22.5,"humidity":40.0}`), t0); err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}
	before := dev.LastReading()

	err := dev.ApplyMessage([]byte(`{"temperature":30,"humidity":10}`), t0.Add(time.Second))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("ApplyMessage() error = %v, want ErrMalformedPayload", err)
	}

	after := dev.LastReading()
	if after.PPM != before.PPM || !after.ReceivedAt.Equal(before.ReceivedAt) {
		t.Error("rejected payload modified the previous reading")
	}
	if got := dev.Liveness(t0.Add(time.Second)); got != LivenessLive {
		t.Errorf("Liveness() after rejected payload = %v, want %v", got, LivenessLive)
	}
}

func TestLiveness_FreshnessWindow(t *testing.T) {
	dev := New("kitchen-01")
	t0 := time.Now()

	if err := dev.ApplyMessage([]byte(`{"ppm":10,"temperature":20,"humidity":50}`), t0); err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}

	if got := dev.Liveness(t0.Add(119 * time.Second)); got != LivenessLive {
		t.Errorf("Liveness(+119s) = %v, want %v", got, LivenessLive)
	}
	// Transition happens at exactly +120s
	if got := dev.Liveness(t0.Add(120 * time.Second)); got != LivenessStale {
		t.Errorf("Liveness(+120s) = %v, want %v", got, LivenessStale)
	}
	if got := dev.Status(t0.Add(120 * time.Second)); got != "Not connected" {
		t.Errorf("Status(+120s) = %q, want %q", got, "Not connected")
	}
}

func TestLiveness_RefreshedByNewMessage(t *testing.T) {
	dev := New("kitchen-01")
	t0 := time.Now()

	if err := dev.ApplyMessage([]byte(`{"ppm":10,"temperature":20,"humidity":50}`), t0); err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}
	// A message at +119s resets the window
	if err := dev.ApplyMessage([]byte(`{"ppm":12,"temperature":20,"humidity":50}`), t0.Add(119*time.Second)); err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}

	if got := dev.Liveness(t0.Add(121 * time.Second)); got != LivenessLive {
		t.Errorf("Liveness(+121s after refresh at +119s) = %v, want %v", got, LivenessLive)
	}
	if got := dev.Liveness(t0.Add(119*time.Second + FreshnessWindow)); got != LivenessStale {
		t.Errorf("Liveness at end of refreshed window = %v, want %v", got, LivenessStale)
	}
}

func TestSnapshot(t *testing.T) {
	dev := New("kitchen-01")
	t0 := time.Now()

	snap := dev.Snapshot(t0)
	if snap.ID != "kitchen-01" || snap.Liveness != LivenessStale || snap.Status != "Not connected" {
		t.Errorf("stale snapshot = %+v", snap)
	}
	if snap.LastReading != nil {
		t.Error("stale snapshot carries a reading")
	}

	if err := dev.ApplyMessage([]byte(`{"ppm":200,"temperature":25,"humidity":55}`), t0); err != nil {
		t.Fatalf("ApplyMessage() error = %v", err)
	}

	snap = dev.Snapshot(t0)
	if snap.Liveness != LivenessLive {
		t.Errorf("snapshot Liveness = %v, want %v", snap.Liveness, LivenessLive)
	}
	if snap.LastReading == nil || snap.LastReading.Quality != AirQualityPoor {
		t.Errorf("snapshot reading = %+v, want Poor quality", snap.LastReading)
	}
	if !strings.Contains(snap.Status, "Poor") {
		t.Errorf("snapshot Status = %q, want it to contain Poor", snap.Status)
	}
}

func TestRestore(t *testing.T) {
	rec := Record{
		ID:             "kitchen-01",
		Name:           "Kitchen Sensor",
		SubscribeTopic: "air-quality/kitchen-01",
		PublishTopic:   "air-quality/kitchen-01/wifi",
	}

	dev := restore(rec)
	if dev.ID() != rec.ID || dev.Name() != rec.Name {
		t.Errorf("restored device = %s/%s, want %s/%s", dev.ID(), dev.Name(), rec.ID, rec.Name)
	}
	if dev.SubscribeTopic() != rec.SubscribeTopic || dev.PublishTopic() != rec.PublishTopic {
		t.Error("restored device topics differ from the record")
	}
	// Reading and liveness are runtime-only; restore starts stale
	if got := dev.Liveness(time.Now()); got != LivenessStale {
		t.Errorf("restored Liveness = %v, want %v", got, LivenessStale)
	}
}
