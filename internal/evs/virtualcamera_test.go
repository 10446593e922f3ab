package evs

import (
	"context"
	"errors"
	"testing"

	"github.com/smazurov/evsnode/internal/hal"
)

func TestClientQuotaDropsFrames(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	// slow holds one frame forever; greedy keeps the pool deep enough
	// that the device can still capture past slow's quota.
	slow, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	greedy, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	if err := greedy.SetMaxFramesInFlight(3); err != nil {
		t.Fatalf("SetMaxFramesInFlight() error = %v", err)
	}

	slowSink := &eventSink{}
	greedySink := &frameSink{}
	if err := slow.StartVideoStream(slowSink); err != nil {
		t.Fatalf("StartVideoStream(slow) error = %v", err)
	}
	if err := greedy.StartVideoStream(greedySink); err != nil {
		t.Fatalf("StartVideoStream(greedy) error = %v", err)
	}

	cam := hw.OpenCameraDevice("camera.0")
	for range 3 {
		if _, ok := cam.InjectFrame(); !ok {
			t.Fatal("frame injection failed")
		}
	}

	// slow accepted only its quota of one; the rest were dropped for it
	// with an explicit gap event, while greedy got everything.
	if got := slowSink.frameCount(); got != 1 {
		t.Errorf("slow client frames = %d, want 1", got)
	}
	if got := slowSink.eventCount(hal.EventFrameDropped); got != 2 {
		t.Errorf("slow client drop events = %d, want 2", got)
	}
	if got := greedySink.frameCount(); got != 3 {
		t.Errorf("greedy client frames = %d, want 3", got)
	}
	if got := slow.FramesHeld(); got != 1 {
		t.Errorf("slow FramesHeld() = %d, want 1", got)
	}

	mgr.CloseCamera(slow)
	mgr.CloseCamera(greedy)
	if cam.OutstandingBuffers() != 0 {
		t.Errorf("outstanding buffers after teardown = %d, want 0", cam.OutstandingBuffers())
	}
}

func TestLegacyStopSentinel(t *testing.T) {
	mgr, _ := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	defer mgr.CloseCamera(vc)

	sink := &frameSink{}
	if err := vc.StartVideoStream(sink); err != nil {
		t.Fatalf("StartVideoStream() error = %v", err)
	}
	vc.StopVideoStream()

	if got := sink.zeroCount(); got != 1 {
		t.Errorf("legacy client got %d zero sentinels, want exactly 1", got)
	}
	if vc.State() != StreamStopped {
		t.Errorf("State() = %v, want stopped", vc.State())
	}

	// A second stop is a no-op, never a second sentinel.
	vc.StopVideoStream()
	if got := sink.zeroCount(); got != 1 {
		t.Errorf("redundant stop produced %d sentinels, want 1", got)
	}
}

func TestEventCapableStop(t *testing.T) {
	mgr, _ := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	defer mgr.CloseCamera(vc)

	sink := &eventSink{}
	if err := vc.StartVideoStream(sink); err != nil {
		t.Fatalf("StartVideoStream() error = %v", err)
	}
	if got := sink.eventCount(hal.EventStreamStarted); got != 1 {
		t.Errorf("got %d STREAM_STARTED events, want 1", got)
	}

	vc.StopVideoStream()

	if got := sink.eventCount(hal.EventStreamStopped); got != 1 {
		t.Errorf("got %d STREAM_STOPPED events, want 1", got)
	}
	if got := sink.zeroCount(); got != 0 {
		t.Errorf("event-capable client got %d zero sentinels, want 0", got)
	}
}

func TestStreamRestart(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	defer mgr.CloseCamera(vc)
	cam := hw.OpenCameraDevice("camera.0")

	sink := &frameSink{}
	if err := vc.StartVideoStream(sink); err != nil {
		t.Fatalf("StartVideoStream() error = %v", err)
	}
	vc.StopVideoStream()

	if err := vc.StartVideoStream(sink); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if cam.StartCalls() != 2 {
		t.Errorf("hardware StartCalls = %d, want 2", cam.StartCalls())
	}
	buffer, ok := cam.InjectFrame()
	if !ok {
		t.Fatal("frame injection failed after restart")
	}
	if sink.frameCount() != 1 {
		t.Errorf("frames after restart = %d, want 1", sink.frameCount())
	}
	if err := vc.DoneWithFrame(buffer); err != nil {
		t.Fatalf("DoneWithFrame() error = %v", err)
	}
}

func TestDoneWithFrameUnknownBuffer(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	defer mgr.CloseCamera(vc)

	if err := vc.DoneWithFrame(hal.BufferDesc{DeviceID: "camera.0", BufferID: 99}); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("unknown buffer error = %v, want ErrInvalidArg", err)
	}

	sink := &frameSink{}
	if err := vc.StartVideoStream(sink); err != nil {
		t.Fatalf("StartVideoStream() error = %v", err)
	}
	cam := hw.OpenCameraDevice("camera.0")
	buffer, ok := cam.InjectFrame()
	if !ok {
		t.Fatal("frame injection failed")
	}
	if err := vc.DoneWithFrame(buffer); err != nil {
		t.Fatalf("DoneWithFrame() error = %v", err)
	}

	// Double release is a logged anomaly, not a crash.
	if err := vc.DoneWithFrame(buffer); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("double release error = %v, want ErrInvalidArg", err)
	}
	if cam.OutstandingBuffers() != 0 {
		t.Errorf("outstanding buffers = %d, want 0", cam.OutstandingBuffers())
	}
}

func TestLogicalCameraFrameFanIn(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	stereo, err := mgr.OpenCamera(ctx, "camera.stereo")
	if err != nil {
		t.Fatalf("OpenCamera(stereo) error = %v", err)
	}
	defer mgr.CloseCamera(stereo)

	sink := &frameSink{}
	if err := stereo.StartVideoStream(sink); err != nil {
		t.Fatalf("StartVideoStream() error = %v", err)
	}
	cam0 := hw.OpenCameraDevice("camera.0")
	cam1 := hw.OpenCameraDevice("camera.1")
	if !cam0.Streaming() || !cam1.Streaming() {
		t.Fatal("both constituents should be streaming")
	}

	// The per-device quota is independent, so one frame from each
	// constituent fits a quota of one.
	b0, ok := cam0.InjectFrame()
	if !ok {
		t.Fatal("camera.0 injection failed")
	}
	b1, ok := cam1.InjectFrame()
	if !ok {
		t.Fatal("camera.1 injection failed")
	}
	if sink.frameCount() != 2 {
		t.Fatalf("frames = %d, want 2", sink.frameCount())
	}
	if stereo.FramesHeld() != 2 {
		t.Fatalf("FramesHeld() = %d, want 2", stereo.FramesHeld())
	}

	// Returns are routed to the constituent that produced the buffer.
	if err := stereo.DoneWithFrame(b1); err != nil {
		t.Fatalf("DoneWithFrame(camera.1) error = %v", err)
	}
	if cam1.OutstandingBuffers() != 0 {
		t.Errorf("camera.1 outstanding = %d, want 0", cam1.OutstandingBuffers())
	}
	if cam0.OutstandingBuffers() != 1 {
		t.Errorf("camera.0 outstanding = %d, want 1", cam0.OutstandingBuffers())
	}
	if err := stereo.DoneWithFrame(b0); err != nil {
		t.Fatalf("DoneWithFrame(camera.0) error = %v", err)
	}

	stereo.StopVideoStream()
	if cam0.Streaming() || cam1.Streaming() {
		t.Error("constituents still streaming after stop")
	}
}

func TestTeardownReturnsHeldBuffers(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	if err := vc.SetMaxFramesInFlight(3); err != nil {
		t.Fatalf("SetMaxFramesInFlight() error = %v", err)
	}
	sink := &frameSink{}
	if err := vc.StartVideoStream(sink); err != nil {
		t.Fatalf("StartVideoStream() error = %v", err)
	}

	cam := hw.OpenCameraDevice("camera.0")
	for range 3 {
		if _, ok := cam.InjectFrame(); !ok {
			t.Fatal("frame injection failed")
		}
	}
	if vc.FramesHeld() != 3 {
		t.Fatalf("FramesHeld() = %d, want 3", vc.FramesHeld())
	}

	// A client that vanishes without returning anything must not leak
	// device buffers.
	mgr.CloseCamera(vc)

	if cam.OutstandingBuffers() != 0 {
		t.Errorf("outstanding buffers after teardown = %d, want 0", cam.OutstandingBuffers())
	}
	if vc.FramesHeld() != 0 {
		t.Errorf("FramesHeld() after teardown = %d, want 0", vc.FramesHeld())
	}
	if hw.OpenCameraCount() != 0 {
		t.Errorf("open sessions = %d, want 0", hw.OpenCameraCount())
	}
}

func TestShutdownSessionRejectsCalls(t *testing.T) {
	mgr, _ := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	mgr.CloseCamera(vc)

	if err := vc.StartVideoStream(&frameSink{}); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("StartVideoStream() after close error = %v, want ErrInvalidArg", err)
	}
	if err := vc.SetMaxFramesInFlight(2); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("SetMaxFramesInFlight() after close error = %v, want ErrInvalidArg", err)
	}
}
