package events

// Event type constants for kelindar/event.
const (
	TypeCameraOpened uint32 = iota + 1
	TypeCameraClosed
	TypeStreamStateChanged
	TypeFrameDropped
	TypeMasterChanged
	TypeDisplayOpened
	TypeDisplayClosed
	TypeDeviceDiscovery
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CameraOpenedEvent is published when a client session is bound to one or
// more hardware cameras.
type CameraOpenedEvent struct {
	CameraID  string   `json:"camera_id" example:"camera.0" doc:"Client-facing camera identifier"`
	SessionID string   `json:"session_id" doc:"Client session identifier"`
	Physical  []string `json:"physical,omitempty" doc:"Physical devices backing the session"`
	Timestamp string   `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraOpenedEvent.
func (e CameraOpenedEvent) Type() uint32 { return TypeCameraOpened }

// CameraClosedEvent is published when a client session is torn down.
type CameraClosedEvent struct {
	CameraID  string `json:"camera_id" example:"camera.0" doc:"Client-facing camera identifier"`
	SessionID string `json:"session_id" doc:"Client session identifier"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraClosedEvent.
func (e CameraClosedEvent) Type() uint32 { return TypeCameraClosed }

// StreamStateChangedEvent reports an aggregate camera stream transition.
type StreamStateChangedEvent struct {
	CameraID  string `json:"camera_id" example:"camera.0" doc:"Physical camera identifier"`
	State     string `json:"state" example:"running" doc:"New aggregate stream state"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStateChangedEvent.
func (e StreamStateChangedEvent) Type() uint32 { return TypeStreamStateChanged }

// FrameDroppedEvent is published when a client at quota declines a frame.
type FrameDroppedEvent struct {
	CameraID  string `json:"camera_id" example:"camera.0" doc:"Physical camera identifier"`
	SessionID string `json:"session_id" doc:"Client session that dropped the frame"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// MasterChangedEvent reports a master role acquisition, release or steal.
type MasterChangedEvent struct {
	CameraID  string `json:"camera_id" example:"camera.0" doc:"Physical camera identifier"`
	SessionID string `json:"session_id,omitempty" doc:"New master session, empty on release"`
	Forced    bool   `json:"forced" doc:"Whether the role was taken by a display-priority override"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for MasterChangedEvent.
func (e MasterChangedEvent) Type() uint32 { return TypeMasterChanged }

// DisplayOpenedEvent is published on every exclusive display open. A new
// open supersedes the previous session.
type DisplayOpenedEvent struct {
	Superseded bool   `json:"superseded" doc:"Whether a previous display session was invalidated"`
	Timestamp  string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for DisplayOpenedEvent.
func (e DisplayOpenedEvent) Type() uint32 { return TypeDisplayOpened }

// DisplayClosedEvent is published when the active display is released.
type DisplayClosedEvent struct {
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for DisplayClosedEvent.
func (e DisplayClosedEvent) Type() uint32 { return TypeDisplayClosed }

// DeviceDiscoveryEvent reports camera hotplug from the driver layer.
type DeviceDiscoveryEvent struct {
	CameraID  string `json:"camera_id" example:"camera.0" doc:"Camera identifier"`
	Action    string `json:"action" example:"added" doc:"Action type: added, removed"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }

// LogEntryEvent carries a log line to SSE clients.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"evs" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
