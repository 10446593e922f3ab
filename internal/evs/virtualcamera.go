package evs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/evsnode/internal/events"
	"github.com/smazurov/evsnode/internal/hal"
	"github.com/smazurov/evsnode/internal/metrics"
)

const defaultFramesAllowed = 1

// VirtualCamera is one client's view of a camera, possibly a logical
// composite backed by several HalCameras. It enforces the client's buffer
// quota with a drop-not-queue policy: a slow client loses frames rather
// than stalling the shared pipeline.
//
// The held-buffer set and the stream state are guarded per instance. The
// instance never calls into a HalCamera while holding its own lock; the
// fan-out path takes the HalCamera lock first, so the ordering is fixed.
type VirtualCamera struct {
	sessionID uuid.UUID
	cameras   []*HalCamera
	desc      *hal.CameraDesc
	logger    *slog.Logger
	bus       *events.Bus

	mu            sync.Mutex
	held          map[string][]hal.BufferDesc
	framesAllowed int
	state         StreamState
	handler       StreamHandler
	eventCapable  bool
	shutdown      bool
}

func newVirtualCamera(cameras []*HalCamera, logger *slog.Logger, bus *events.Bus) *VirtualCamera {
	id := uuid.New()
	return &VirtualCamera{
		sessionID:     id,
		cameras:       cameras,
		logger:        logger.With("session_id", id.String()),
		bus:           bus,
		held:          make(map[string][]hal.BufferDesc),
		framesAllowed: defaultFramesAllowed,
	}
}

// SessionID identifies this client session.
func (v *VirtualCamera) SessionID() uuid.UUID { return v.sessionID }

// Cameras returns the HalCameras backing this session.
func (v *VirtualCamera) Cameras() []*HalCamera { return v.cameras }

// Description returns the cached descriptor for a logical composite, or
// nil for a plain physical camera.
func (v *VirtualCamera) Description() *hal.CameraDesc { return v.desc }

// CameraID returns the client-facing identifier of this session.
func (v *VirtualCamera) CameraID() string {
	if v.desc != nil {
		return v.desc.ID
	}
	return v.cameras[0].ID()
}

// FramesAllowed returns the client's current buffer quota.
func (v *VirtualCamera) FramesAllowed() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.framesAllowed
}

// FramesHeld counts the buffers the client has not yet returned.
func (v *VirtualCamera) FramesHeld() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, buffers := range v.held {
		n += len(buffers)
	}
	return n
}

// State returns the client stream state.
func (v *VirtualCamera) State() StreamState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *VirtualCamera) isStreaming() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state == StreamRunning
}

func (v *VirtualCamera) isShutdown() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shutdown
}

// SetMaxFramesInFlight changes the client's buffer quota. Every backing
// camera renegotiates its pool by the delta; on any failure the already
// adjusted cameras are rolled back and the quota is left untouched, so
// the operation is atomic from the client's point of view.
func (v *VirtualCamera) SetMaxFramesInFlight(count int) error {
	if count < 1 {
		return ErrInvalidArg
	}

	v.mu.Lock()
	if v.shutdown {
		v.mu.Unlock()
		return ErrInvalidArg
	}
	delta := count - v.framesAllowed
	v.mu.Unlock()

	if delta == 0 {
		return nil
	}

	adjusted := make([]*HalCamera, 0, len(v.cameras))
	for _, hc := range v.cameras {
		if err := hc.changeFramesInFlight(delta); err != nil {
			for _, prev := range adjusted {
				if rbErr := prev.changeFramesInFlight(-delta); rbErr != nil {
					v.logger.Error("Failed to roll back buffer negotiation", "camera_id", prev.ID(), "error", rbErr)
				}
			}
			return ErrBufferNotAvailable
		}
		adjusted = append(adjusted, hc)
	}

	v.mu.Lock()
	v.framesAllowed = count
	v.mu.Unlock()
	return nil
}

// StartVideoStream begins delivery to handler. The protocol variant is
// detected here, once: handlers that also implement EventStreamHandler
// get explicit stop and drop events, everyone else gets the legacy zero
// buffer sentinel at end of stream.
func (v *VirtualCamera) StartVideoStream(handler StreamHandler) error {
	if handler == nil {
		return ErrInvalidArg
	}

	v.mu.Lock()
	if v.shutdown {
		v.mu.Unlock()
		return ErrInvalidArg
	}
	if v.state != StreamStopped {
		v.mu.Unlock()
		v.logger.Warn("Start requested while stream is not stopped")
		return ErrStreamAlreadyRunning
	}
	v.state = StreamRunning
	v.handler = handler
	_, v.eventCapable = handler.(EventStreamHandler)
	v.mu.Unlock()

	started := make([]*HalCamera, 0, len(v.cameras))
	for _, hc := range v.cameras {
		if err := hc.clientStreamStarting(); err != nil {
			v.mu.Lock()
			v.state = StreamStopped
			v.handler = nil
			v.mu.Unlock()
			for _, prev := range started {
				prev.clientStreamEnding()
			}
			return err
		}
		started = append(started, hc)
	}

	return nil
}

// StopVideoStream stops the client stream synchronously. The termination
// signal goes out before the state settles, so the client observes the
// protocol-appropriate end marker exactly once; the reference-counted
// hardware stop follows.
func (v *VirtualCamera) StopVideoStream() {
	v.mu.Lock()
	if v.state != StreamRunning {
		v.mu.Unlock()
		return
	}
	v.state = StreamStopping
	handler := v.handler
	eventCapable := v.eventCapable
	v.mu.Unlock()

	if eventCapable {
		handler.(EventStreamHandler).OnEvent(hal.StreamEvent{
			Type:     hal.EventStreamStopped,
			DeviceID: v.CameraID(),
		})
	} else {
		handler.OnFrame(hal.BufferDesc{})
	}

	v.mu.Lock()
	v.state = StreamStopped
	v.handler = nil
	v.mu.Unlock()

	for _, hc := range v.cameras {
		hc.clientStreamEnding()
	}
}

// deliverFrame offers a frame to this client. A stopped stream accepts
// nothing; a client at quota declines and, on the current protocol, is
// told a gap occurred. Accepted buffers enter the held set before the
// client sees them so a crash mid-delivery still leaves them findable.
func (v *VirtualCamera) deliverFrame(buffer hal.BufferDesc) bool {
	v.mu.Lock()
	if v.state != StreamRunning || v.handler == nil {
		v.mu.Unlock()
		return false
	}
	if len(v.held[buffer.DeviceID]) >= v.framesAllowed {
		handler := v.handler
		eventCapable := v.eventCapable
		v.mu.Unlock()

		v.logger.Info("Skipping a new frame, client is at quota", "camera_id", buffer.DeviceID)
		metrics.FramesDropped(buffer.DeviceID)
		v.bus.Publish(events.FrameDroppedEvent{
			CameraID:  buffer.DeviceID,
			SessionID: v.sessionID.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		if eventCapable {
			handler.(EventStreamHandler).OnEvent(hal.StreamEvent{
				Type:     hal.EventFrameDropped,
				DeviceID: buffer.DeviceID,
			})
		}
		return false
	}
	v.held[buffer.DeviceID] = append(v.held[buffer.DeviceID], buffer)
	handler := v.handler
	v.mu.Unlock()

	handler.OnFrame(buffer)
	return true
}

// notifyEvent forwards a stream event to the client. Legacy clients only
// understand the terminal sentinel; other events are declined for them.
func (v *VirtualCamera) notifyEvent(event hal.StreamEvent) bool {
	v.mu.Lock()
	if v.state == StreamStopped || v.handler == nil {
		v.mu.Unlock()
		return false
	}
	handler := v.handler
	eventCapable := v.eventCapable
	if event.Type == hal.EventStreamStopped {
		v.state = StreamStopped
		v.handler = nil
	}
	v.mu.Unlock()

	if !eventCapable {
		if event.Type == hal.EventStreamStopped {
			handler.OnFrame(hal.BufferDesc{})
			return true
		}
		return false
	}

	handler.(EventStreamHandler).OnEvent(event)
	return true
}

// DoneWithFrame returns one delivered buffer. An id we are not holding is
// a logged anomaly (double release or stale handle), never fatal.
func (v *VirtualCamera) DoneWithFrame(buffer hal.BufferDesc) error {
	v.mu.Lock()
	list := v.held[buffer.DeviceID]
	idx := -1
	for i := range list {
		if list[i].BufferID == buffer.BufferID {
			idx = i
			break
		}
	}
	if idx < 0 {
		v.mu.Unlock()
		v.logger.Warn("Ignoring a buffer we are not holding",
			"camera_id", buffer.DeviceID, "buffer_id", buffer.BufferID)
		return ErrInvalidArg
	}
	v.held[buffer.DeviceID] = append(list[:idx], list[idx+1:]...)
	v.mu.Unlock()

	hc := v.cameraByID(buffer.DeviceID)
	if hc == nil {
		v.logger.Warn("No backing camera for returned buffer", "camera_id", buffer.DeviceID)
		return ErrInvalidArg
	}
	hc.doneWithFrame(buffer)
	return nil
}

// SetMaster claims the parameter-control role. Logical composites do not
// support master arbitration since their constituents may be shared in
// different groupings.
func (v *VirtualCamera) SetMaster() error {
	if len(v.cameras) != 1 {
		return ErrInvalidArg
	}
	return v.cameras[0].setMaster(v)
}

// ForceMaster steals the master role on behalf of a display owner. The
// caller must present the live display handle as proof of priority.
func (v *VirtualCamera) ForceMaster(display *HalDisplay) error {
	if len(v.cameras) != 1 || display == nil {
		return ErrInvalidArg
	}
	state, err := display.State()
	if err != nil || state == hal.DisplayNotOpen || state == hal.DisplayDead {
		v.logger.Warn("Refusing forced master claim without a live display")
		return ErrInvalidArg
	}
	v.cameras[0].forceMaster(v)
	return nil
}

// UnsetMaster releases the parameter-control role.
func (v *VirtualCamera) UnsetMaster() error {
	if len(v.cameras) != 1 {
		return ErrInvalidArg
	}
	return v.cameras[0].unsetMaster(v)
}

// SetParameter changes a hardware control. Rejected for non-master
// clients; the current value is returned alongside the rejection.
func (v *VirtualCamera) SetParameter(param hal.CameraParam, value int32) (int32, error) {
	if len(v.cameras) != 1 {
		return 0, ErrInvalidArg
	}
	return v.cameras[0].setParameter(v, param, value)
}

// GetParameter reads a hardware control.
func (v *VirtualCamera) GetParameter(param hal.CameraParam) (int32, error) {
	if len(v.cameras) != 1 {
		return 0, ErrInvalidArg
	}
	return v.cameras[0].getParameter(param)
}

// Shutdown is the destructor path. Whatever state the client left behind,
// every held buffer goes back to its camera so nothing leaks even on
// abnormal termination.
func (v *VirtualCamera) Shutdown() {
	v.mu.Lock()
	if v.shutdown {
		v.mu.Unlock()
		return
	}
	v.shutdown = true
	wasStreaming := v.state != StreamStopped
	v.state = StreamStopped
	v.handler = nil
	heldAll := v.held
	v.held = make(map[string][]hal.BufferDesc)
	v.mu.Unlock()

	if wasStreaming {
		v.logger.Warn("Virtual camera shutting down while stream is running")
	}

	for deviceID, buffers := range heldAll {
		hc := v.cameraByID(deviceID)
		if hc == nil {
			continue
		}
		for _, buffer := range buffers {
			hc.doneWithFrame(buffer)
		}
	}

	if wasStreaming {
		for _, hc := range v.cameras {
			hc.clientStreamEnding()
		}
	}
}

func (v *VirtualCamera) cameraByID(deviceID string) *HalCamera {
	for _, hc := range v.cameras {
		if hc.ID() == deviceID {
			return hc
		}
	}
	return nil
}
