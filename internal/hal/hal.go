package hal

import "context"

// Enumerator is the driver-side device registry. Exactly one hardware
// session exists per physical device; multiplexing across clients happens
// above this layer.
type Enumerator interface {
	// ListCameras reports every camera device the driver knows about,
	// including logical composites.
	ListCameras() ([]CameraDesc, error)

	// OpenCamera opens an exclusive session on a physical device. The
	// returned device is configured for cfg; a second open of the same id
	// without an intervening close fails.
	OpenCamera(id string, cfg StreamConfig) (CameraDevice, error)

	// CloseCamera ends a camera session. Closing an unknown device is a
	// no-op.
	CloseCamera(device CameraDevice)

	// OpenDisplay requests exclusive access to the display. Any handle
	// from a previous open becomes non-functional once this returns.
	OpenDisplay() (DisplayDevice, error)

	// CloseDisplay releases the display session. Stale handles from a
	// superseded session are ignored.
	CloseDisplay(device DisplayDevice)
}

// CameraDevice is one open hardware camera session.
type CameraDevice interface {
	// ID returns the physical device identifier.
	ID() string

	// SetMaxFramesInFlight resizes the device buffer pool. Fails if the
	// driver cannot secure the requested count; the previous size is kept.
	SetMaxFramesInFlight(count int) error

	// StartVideoStream begins frame delivery to sink. Delivery happens on
	// a single driver thread per device; calls to the sink never overlap.
	StartVideoStream(sink CameraStream) error

	// StopVideoStream asks the driver to stop. The stop is confirmed by an
	// EventStreamStopped on the sink; frames already in flight may still
	// arrive before it.
	StopVideoStream()

	// DoneWithFrame returns a delivered buffer to the device pool.
	DoneWithFrame(buffer BufferDesc)

	// SetParameter writes a hardware control and returns the value the
	// driver actually applied (drivers may clamp).
	SetParameter(param CameraParam, value int32) (int32, error)

	// GetParameter reads a hardware control.
	GetParameter(param CameraParam) (int32, error)
}

// CameraStream receives frames and events from an open camera device.
// The driver serializes calls per device.
type CameraStream interface {
	DeliverFrame(buffer BufferDesc)
	Notify(event StreamEvent)
}

// DisplayDevice is the open display session.
type DisplayDevice interface {
	Info() DisplayDesc
	State() (DisplayState, error)
	SetState(state DisplayState) error

	// TargetBuffer returns the buffer to render the next frame into.
	TargetBuffer() (BufferDesc, error)

	// ReturnTargetBuffer posts a filled buffer to the display.
	ReturnTargetBuffer(buffer BufferDesc) error
}

// PermissionChecker gates every client entry point of the manager.
type PermissionChecker interface {
	Authorized(ctx context.Context) bool
}

// AllowAll is a PermissionChecker that admits every caller. Used by the
// diagnostic commands and tests.
type AllowAll struct{}

// Authorized implements PermissionChecker.
func (AllowAll) Authorized(context.Context) bool { return true }
