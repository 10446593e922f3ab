package hal

import "fmt"

// BufferDesc describes a hardware-backed frame buffer. The handle is owned
// by the originating device and circulates by reference; it must be
// returned to the device exactly once per delivery.
type BufferDesc struct {
	DeviceID string  `json:"device_id"`
	BufferID uint32  `json:"buffer_id"`
	Width    uint32  `json:"width"`
	Height   uint32  `json:"height"`
	Stride   uint32  `json:"stride"`
	Format   uint32  `json:"format"`
	Handle   uintptr `json:"-"`
}

// IsZero reports whether the descriptor is the empty sentinel. Legacy
// stream clients receive a zero descriptor as the end-of-stream marker.
func (b BufferDesc) IsZero() bool {
	return b == BufferDesc{}
}

// StreamConfig identifies a stream configuration requested by a client.
// Two clients may share a camera session only if their configuration IDs
// match.
type StreamConfig struct {
	ID        int32  `json:"id" toml:"id"`
	Width     uint32 `json:"width" toml:"width"`
	Height    uint32 `json:"height" toml:"height"`
	Format    uint32 `json:"format" toml:"format"`
	FrameRate uint32 `json:"frame_rate" toml:"frame_rate"`
}

// CameraDesc describes a camera device reported by the enumerator.
type CameraDesc struct {
	ID       string         `json:"id"`
	VendorID uint32         `json:"vendor_id"`
	Metadata CameraMetadata `json:"metadata"`
}

// CameraMetadata carries driver-reported capability data. A non-empty
// PhysicalIDs list marks a logical multi-camera whose constituents are the
// listed physical devices.
type CameraMetadata struct {
	PhysicalIDs []string `json:"physical_ids,omitempty" toml:"physical_ids"`
}

// IsLogical reports whether the descriptor advertises a logical
// multi-camera composite.
func (d CameraDesc) IsLogical() bool {
	return len(d.Metadata.PhysicalIDs) > 0
}

// DisplayDesc describes the display device.
type DisplayDesc struct {
	ID       string `json:"id"`
	VendorID uint32 `json:"vendor_id"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
}

// DisplayState is the visibility state of the display device.
type DisplayState int32

const (
	DisplayNotOpen DisplayState = iota
	DisplayNotVisible
	DisplayVisibleOnNextFrame
	DisplayVisible
	DisplayDead
)

// String returns the lowercase state name for logs and diagnostics.
func (s DisplayState) String() string {
	switch s {
	case DisplayNotOpen:
		return "not_open"
	case DisplayNotVisible:
		return "not_visible"
	case DisplayVisibleOnNextFrame:
		return "visible_on_next_frame"
	case DisplayVisible:
		return "visible"
	case DisplayDead:
		return "dead"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// CameraParam identifies a hardware camera control.
type CameraParam int32

const (
	ParamBrightness CameraParam = iota
	ParamContrast
	ParamAutogain
	ParamGain
	ParamAutoWhiteBalance
	ParamWhiteBalanceTemperature
	ParamSharpness
	ParamAutoExposure
	ParamAbsoluteExposure
	ParamAbsoluteFocus
	ParamAutoFocus
	ParamAbsoluteZoom
)

// StreamEventType enumerates the non-frame events a camera stream emits.
type StreamEventType uint32

const (
	// EventStreamStarted is sent once the hardware stream is running.
	EventStreamStarted StreamEventType = iota
	// EventStreamStopped is the terminal event; no frames follow it.
	EventStreamStopped
	// EventFrameDropped tells a client a frame was skipped on its behalf.
	EventFrameDropped
	// EventTimeout reports a stalled hardware source.
	EventTimeout
	// EventParameterChanged carries a control id and its new value.
	EventParameterChanged
	// EventMasterReleased tells clients the master role is available, or
	// a deposed master that it lost the role.
	EventMasterReleased
)

// String returns the event name used in logs and the diagnostics API.
func (t StreamEventType) String() string {
	switch t {
	case EventStreamStarted:
		return "stream_started"
	case EventStreamStopped:
		return "stream_stopped"
	case EventFrameDropped:
		return "frame_dropped"
	case EventTimeout:
		return "timeout"
	case EventParameterChanged:
		return "parameter_changed"
	case EventMasterReleased:
		return "master_released"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// StreamEvent is a non-frame notification on the event channel. Payload
// meaning depends on the type; EventParameterChanged uses Payload[0] for
// the parameter id and Payload[1] for the value.
type StreamEvent struct {
	Type     StreamEventType
	DeviceID string
	Payload  [2]int32
}
