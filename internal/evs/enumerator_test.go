package evs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/smazurov/evsnode/internal/events"
	"github.com/smazurov/evsnode/internal/hal"
	"github.com/smazurov/evsnode/internal/hal/fake"
)

// frameSink is a legacy-protocol client: frames only, zero sentinel at
// end of stream.
type frameSink struct {
	mu     sync.Mutex
	frames []hal.BufferDesc
	zeros  int
}

func (s *frameSink) OnFrame(buffer hal.BufferDesc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if buffer.IsZero() {
		s.zeros++
		return
	}
	s.frames = append(s.frames, buffer)
}

func (s *frameSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *frameSink) zeroCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zeros
}

func (s *frameSink) lastFrame() hal.BufferDesc {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return hal.BufferDesc{}
	}
	return s.frames[len(s.frames)-1]
}

// eventSink is an event-capable client.
type eventSink struct {
	frameSink
	events []hal.StreamEvent
}

func (s *eventSink) OnEvent(event hal.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *eventSink) eventCount(t hal.StreamEventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

type denyAll struct{}

func (denyAll) Authorized(context.Context) bool { return false }

func newTestEnumerator(t *testing.T) (*Enumerator, *fake.Enumerator) {
	t.Helper()
	hw := fake.New(fake.DefaultDeviceTable())
	return NewEnumerator(hw, hal.AllowAll{}, events.New()), hw
}

func TestListCameras(t *testing.T) {
	mgr, _ := newTestEnumerator(t)

	descs, err := mgr.ListCameras(context.Background())
	if err != nil {
		t.Fatalf("ListCameras() error = %v", err)
	}
	if len(descs) != 3 {
		t.Fatalf("ListCameras() returned %d cameras, want 3", len(descs))
	}

	var logical int
	for _, desc := range descs {
		if desc.IsLogical() {
			logical++
		}
	}
	if logical != 1 {
		t.Errorf("got %d logical cameras, want 1", logical)
	}
}

func TestPermissionDenied(t *testing.T) {
	hw := fake.New(fake.DefaultDeviceTable())
	mgr := NewEnumerator(hw, denyAll{}, events.New())
	ctx := context.Background()

	if _, err := mgr.ListCameras(ctx); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("ListCameras() error = %v, want ErrPermissionDenied", err)
	}
	if _, err := mgr.OpenCamera(ctx, "camera.0"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("OpenCamera() error = %v, want ErrPermissionDenied", err)
	}
	if _, err := mgr.OpenDisplay(ctx); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("OpenDisplay() error = %v, want ErrPermissionDenied", err)
	}
	if state := mgr.GetDisplayState(ctx); state != hal.DisplayDead {
		t.Errorf("GetDisplayState() = %v, want DisplayDead", state)
	}
	if hw.OpenCameraCount() != 0 {
		t.Errorf("denied calls opened %d hardware sessions", hw.OpenCameraCount())
	}
}

type tokenKey struct{}

// tokenChecker authorizes only contexts carrying a token value, the way
// a per-request credential check would.
type tokenChecker struct{}

func (tokenChecker) Authorized(ctx context.Context) bool {
	return ctx.Value(tokenKey{}) != nil
}

func TestOpenCameraContextAuthorization(t *testing.T) {
	hw := fake.New(fake.DefaultDeviceTable())
	mgr := NewEnumerator(hw, tokenChecker{}, events.New())
	ctx := context.WithValue(context.Background(), tokenKey{}, "granted")

	// First call on a fresh enumerator triggers the internal device
	// enumeration, which must run under the caller's context.
	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	mgr.CloseCamera(vc)

	if _, err := mgr.OpenCamera(context.Background(), "camera.0"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("OpenCamera() without token error = %v, want ErrPermissionDenied", err)
	}
}

func TestOpenCameraUnknown(t *testing.T) {
	mgr, _ := newTestEnumerator(t)

	if _, err := mgr.OpenCamera(context.Background(), "camera.42"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("OpenCamera() error = %v, want ErrCameraNotFound", err)
	}
}

func TestOpenCloseLifecycle(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	if hw.OpenCameraCount() != 1 {
		t.Fatalf("open sessions = %d, want 1", hw.OpenCameraCount())
	}
	if len(vc.Cameras()) != 1 {
		t.Fatalf("backing cameras = %d, want 1", len(vc.Cameras()))
	}
	if got := vc.CameraID(); got != "camera.0" {
		t.Errorf("CameraID() = %q, want %q", got, "camera.0")
	}

	mgr.CloseCamera(vc)
	if hw.OpenCameraCount() != 0 {
		t.Errorf("open sessions after close = %d, want 0", hw.OpenCameraCount())
	}
	if len(mgr.DumpSessions()) != 0 {
		t.Errorf("sessions after close = %d, want 0", len(mgr.DumpSessions()))
	}
}

func TestOpenCameraSharedSession(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	a, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("first OpenCamera() error = %v", err)
	}
	b, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("second OpenCamera() error = %v", err)
	}

	if hw.OpenCameraCount() != 1 {
		t.Fatalf("open sessions = %d, want 1 shared", hw.OpenCameraCount())
	}
	if a.Cameras()[0] != b.Cameras()[0] {
		t.Error("both clients should share the same hardware session")
	}
	if got := a.Cameras()[0].ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2", got)
	}

	mgr.CloseCamera(a)
	if hw.OpenCameraCount() != 1 {
		t.Errorf("closing one of two clients released the hardware session")
	}
	mgr.CloseCamera(b)
	if hw.OpenCameraCount() != 0 {
		t.Errorf("last client close left %d sessions open", hw.OpenCameraCount())
	}
}

func TestCloseCameraIdempotent(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}

	mgr.CloseCamera(vc)
	mgr.CloseCamera(vc)
	mgr.CloseCamera(nil)

	if hw.OpenCameraCount() != 0 {
		t.Errorf("open sessions = %d, want 0", hw.OpenCameraCount())
	}
}

func TestStaleCloseDoesNotEvictNewSession(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	old, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	mgr.CloseCamera(old)

	fresh, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}

	// A duplicate close of the old session must not tear down the new one.
	mgr.CloseCamera(old)
	if hw.OpenCameraCount() != 1 {
		t.Fatalf("stale close released the new hardware session")
	}

	mgr.CloseCamera(fresh)
	if hw.OpenCameraCount() != 0 {
		t.Errorf("open sessions = %d, want 0", hw.OpenCameraCount())
	}
}

func TestLogicalCameraDecomposition(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.stereo")
	if err != nil {
		t.Fatalf("OpenCamera(stereo) error = %v", err)
	}
	if len(vc.Cameras()) != 2 {
		t.Fatalf("backing cameras = %d, want 2", len(vc.Cameras()))
	}
	if hw.OpenCameraCount() != 2 {
		t.Fatalf("open sessions = %d, want 2", hw.OpenCameraCount())
	}
	if got := vc.CameraID(); got != "camera.stereo" {
		t.Errorf("CameraID() = %q, want the logical id", got)
	}
	if vc.Description() == nil || !vc.Description().IsLogical() {
		t.Error("logical session should carry the composite descriptor")
	}

	mgr.CloseCamera(vc)
	if hw.OpenCameraCount() != 0 {
		t.Errorf("open sessions after close = %d, want 0", hw.OpenCameraCount())
	}
}

func TestLogicalCameraReusesActiveConstituent(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	phys, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera(camera.0) error = %v", err)
	}
	stereo, err := mgr.OpenCamera(ctx, "camera.stereo")
	if err != nil {
		t.Fatalf("OpenCamera(stereo) error = %v", err)
	}

	if hw.OpenCameraCount() != 2 {
		t.Fatalf("open sessions = %d, want 2 with camera.0 shared", hw.OpenCameraCount())
	}
	if phys.Cameras()[0].ClientCount() != 2 {
		t.Errorf("shared constituent ClientCount() = %d, want 2", phys.Cameras()[0].ClientCount())
	}

	mgr.CloseCamera(stereo)
	if hw.OpenCameraCount() != 1 {
		t.Errorf("closing the composite should keep the shared constituent open, got %d sessions", hw.OpenCameraCount())
	}
	mgr.CloseCamera(phys)
	if hw.OpenCameraCount() != 0 {
		t.Errorf("open sessions = %d, want 0", hw.OpenCameraCount())
	}
}

func TestOpenCameraConfigMismatch(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	first, err := mgr.OpenCameraWithConfig(ctx, "camera.0", hal.StreamConfig{ID: 1, Width: 1280, Height: 720})
	if err != nil {
		t.Fatalf("OpenCameraWithConfig() error = %v", err)
	}

	if _, err := mgr.OpenCameraWithConfig(ctx, "camera.0", hal.StreamConfig{ID: 2, Width: 640, Height: 360}); !errors.Is(err, ErrStreamConfigMismatch) {
		t.Fatalf("conflicting config error = %v, want ErrStreamConfigMismatch", err)
	}

	// A mismatch on one constituent fails the whole composite open and
	// leaves nothing freshly opened behind.
	if _, err := mgr.OpenCameraWithConfig(ctx, "camera.stereo", hal.StreamConfig{ID: 2}); !errors.Is(err, ErrStreamConfigMismatch) {
		t.Fatalf("composite config mismatch error = %v, want ErrStreamConfigMismatch", err)
	}
	if hw.OpenCameraCount() != 1 {
		t.Errorf("failed composite open leaked sessions, got %d want 1", hw.OpenCameraCount())
	}

	// Same config id is shared without complaint.
	second, err := mgr.OpenCameraWithConfig(ctx, "camera.0", hal.StreamConfig{ID: 1, Width: 1280, Height: 720})
	if err != nil {
		t.Fatalf("matching config reopen error = %v", err)
	}

	mgr.CloseCamera(first)
	mgr.CloseCamera(second)
}

func TestOnClientDeath(t *testing.T) {
	mgr, hw := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}
	sink := &frameSink{}
	if err := vc.StartVideoStream(sink); err != nil {
		t.Fatalf("StartVideoStream() error = %v", err)
	}
	cam := hw.OpenCameraDevice("camera.0")
	if _, ok := cam.InjectFrame(); !ok {
		t.Fatal("frame injection failed")
	}

	mgr.OnClientDeath(vc.SessionID())

	if hw.OpenCameraCount() != 0 {
		t.Errorf("open sessions after client death = %d, want 0", hw.OpenCameraCount())
	}
	if cam.OutstandingBuffers() != 0 {
		t.Errorf("outstanding buffers after client death = %d, want 0", cam.OutstandingBuffers())
	}

	// Unknown session ids are ignored.
	mgr.OnClientDeath(vc.SessionID())
}

func TestDisplayLifecycle(t *testing.T) {
	mgr, _ := newTestEnumerator(t)
	ctx := context.Background()

	if state := mgr.GetDisplayState(ctx); state != hal.DisplayNotOpen {
		t.Fatalf("initial display state = %v, want NotOpen", state)
	}

	display, err := mgr.OpenDisplay(ctx)
	if err != nil {
		t.Fatalf("OpenDisplay() error = %v", err)
	}
	if state := mgr.GetDisplayState(ctx); state != hal.DisplayNotVisible {
		t.Errorf("display state = %v, want NotVisible", state)
	}
	if err := display.SetState(hal.DisplayVisible); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if state := mgr.GetDisplayState(ctx); state != hal.DisplayVisible {
		t.Errorf("display state = %v, want Visible", state)
	}

	mgr.CloseDisplay(display)
	if state := mgr.GetDisplayState(ctx); state != hal.DisplayNotOpen {
		t.Errorf("display state after close = %v, want NotOpen", state)
	}
}

func TestDisplaySupersession(t *testing.T) {
	mgr, _ := newTestEnumerator(t)
	ctx := context.Background()

	first, err := mgr.OpenDisplay(ctx)
	if err != nil {
		t.Fatalf("first OpenDisplay() error = %v", err)
	}
	second, err := mgr.OpenDisplay(ctx)
	if err != nil {
		t.Fatalf("second OpenDisplay() error = %v", err)
	}

	if _, err := first.State(); err == nil {
		t.Error("superseded handle should report an error")
	}

	// Closing the stale handle is a no-op; the active session survives.
	mgr.CloseDisplay(first)
	if mgr.ActiveDisplay() != second {
		t.Fatal("stale close displaced the active display")
	}
	if state := mgr.GetDisplayState(ctx); state != hal.DisplayNotVisible {
		t.Errorf("display state = %v, want NotVisible", state)
	}

	mgr.CloseDisplay(second)
	if mgr.ActiveDisplay() != nil {
		t.Error("active display should be cleared after close")
	}
}

func TestDumpStatus(t *testing.T) {
	mgr, _ := newTestEnumerator(t)
	ctx := context.Background()

	vc, err := mgr.OpenCamera(ctx, "camera.0")
	if err != nil {
		t.Fatalf("OpenCamera() error = %v", err)
	}

	cameras := mgr.DumpCameras("")
	if len(cameras) != 1 {
		t.Fatalf("DumpCameras() returned %d entries, want 1", len(cameras))
	}
	if cameras[0].ID != "camera.0" || cameras[0].ClientCount != 1 {
		t.Errorf("DumpCameras()[0] = %+v", cameras[0])
	}
	if got := mgr.DumpCameras("CAMERA.0"); len(got) != 1 {
		t.Errorf("id matching should be case-insensitive, got %d entries", len(got))
	}
	if got := mgr.DumpCameras("camera.9"); len(got) != 0 {
		t.Errorf("unknown id returned %d entries, want 0", len(got))
	}

	sessions := mgr.DumpSessions()
	if len(sessions) != 1 {
		t.Fatalf("DumpSessions() returned %d entries, want 1", len(sessions))
	}
	if sessions[0].SessionID != vc.SessionID().String() {
		t.Errorf("session id = %q, want %q", sessions[0].SessionID, vc.SessionID())
	}

	if got := mgr.ActiveCameraIDs(); len(got) != 1 || got[0] != "camera.0" {
		t.Errorf("ActiveCameraIDs() = %v", got)
	}

	if display := mgr.DumpDisplay(); display.Open {
		t.Errorf("DumpDisplay() = %+v, want closed", display)
	}

	mgr.CloseCamera(vc)
}
