package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCameraCounters(t *testing.T) {
	camera := "camera-test-0"

	FramesDelivered(camera)
	FramesDelivered(camera)
	FramesDropped(camera)
	FramesReturned(camera)

	if got := testutil.ToFloat64(framesDelivered.WithLabelValues(camera)); got != 2 {
		t.Errorf("framesDelivered = %v, want 2", got)
	}
	if got := testutil.ToFloat64(framesDropped.WithLabelValues(camera)); got != 1 {
		t.Errorf("framesDropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(framesReturned.WithLabelValues(camera)); got != 1 {
		t.Errorf("framesReturned = %v, want 1", got)
	}
}

func TestSessionGauges(t *testing.T) {
	camera := "camera-test-1"

	SetBufferPoolSize(camera, 6)
	SetActiveClients(camera, 3)
	MasterTakeover(camera)

	if got := testutil.ToFloat64(bufferPoolSize.WithLabelValues(camera)); got != 6 {
		t.Errorf("bufferPoolSize = %v, want 6", got)
	}
	if got := testutil.ToFloat64(activeClients.WithLabelValues(camera)); got != 3 {
		t.Errorf("activeClients = %v, want 3", got)
	}
	if got := testutil.ToFloat64(masterTakeovers.WithLabelValues(camera)); got != 1 {
		t.Errorf("masterTakeovers = %v, want 1", got)
	}
}
