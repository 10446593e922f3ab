package evs

import "github.com/smazurov/evsnode/internal/hal"

// StreamState is the lifecycle state shared by the per-device and
// per-client stream machines.
type StreamState int32

const (
	// StreamStopped means no stream is running and none was requested.
	StreamStopped StreamState = iota
	// StreamRunning means the stream is delivering frames.
	StreamRunning
	// StreamStopping means a stop was requested; in-flight frames may
	// still arrive until the stopped event confirms.
	StreamStopping
)

// String returns the lowercase state name for logs and diagnostics.
func (s StreamState) String() string {
	switch s {
	case StreamStopped:
		return "stopped"
	case StreamRunning:
		return "running"
	case StreamStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// StreamHandler receives frames on a client session. Clients implementing
// only this interface use the legacy termination protocol: end of stream
// is signaled by a zero BufferDesc sentinel and dropped frames are silent.
type StreamHandler interface {
	OnFrame(buffer hal.BufferDesc)
}

// EventStreamHandler is the current client protocol. Termination is an
// explicit EventStreamStopped and quota drops are reported with
// EventFrameDropped. Detected once at stream start with a type assertion.
type EventStreamHandler interface {
	StreamHandler
	OnEvent(event hal.StreamEvent)
}
