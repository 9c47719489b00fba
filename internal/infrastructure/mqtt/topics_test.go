package mqtt

import "testing"

func TestTopics(t *testing.T) {
	var topics Topics

	if got, want := topics.Telemetry("kitchen-01"), "air-quality/kitchen-01"; got != want {
		t.Errorf("Telemetry() = %q, want %q", got, want)
	}
	if got, want := topics.WifiCommand("kitchen-01"), "air-quality/kitchen-01/wifi"; got != want {
		t.Errorf("WifiCommand() = %q, want %q", got, want)
	}
	if got, want := topics.ControllerStatus(), "air-quality/controller/status"; got != want {
		t.Errorf("ControllerStatus() = %q, want %q", got, want)
	}
}
