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

// frameRecord tracks one hardware buffer currently shared by clients.
// The buffer goes back to the device exactly once, when refCount hits zero.
type frameRecord struct {
	frameID  uint32
	refCount int
}

// HalCamera owns one open hardware camera session and multiplexes it
// across client sessions. It is the device's stream sink: the driver
// serializes DeliverFrame/Notify per device, so the fan-out pass never
// overlaps itself.
//
// mu guards the client map, the frame record table, the pool size and the
// aggregate stream state. masterMu guards the master reference alone, as
// master arbitration must not contend with the frame path. Hardware
// round-trips happen outside both locks.
type HalCamera struct {
	id     string
	device hal.CameraDevice
	config hal.StreamConfig
	logger *slog.Logger
	bus    *events.Bus

	mu       sync.Mutex
	clients  map[uuid.UUID]*VirtualCamera
	frames   []frameRecord
	state    StreamState
	poolSize int

	masterMu sync.Mutex
	master   *VirtualCamera
}

func newHalCamera(device hal.CameraDevice, config hal.StreamConfig, logger *slog.Logger, bus *events.Bus) *HalCamera {
	return &HalCamera{
		id:       device.ID(),
		device:   device,
		config:   config,
		logger:   logger.With("camera_id", device.ID()),
		bus:      bus,
		clients:  make(map[uuid.UUID]*VirtualCamera),
		poolSize: 1,
	}
}

// ID returns the physical device identifier.
func (h *HalCamera) ID() string { return h.id }

// StreamConfig returns the configuration the hardware session runs with.
func (h *HalCamera) StreamConfig() hal.StreamConfig { return h.config }

// Device returns the underlying hardware session.
func (h *HalCamera) Device() hal.CameraDevice { return h.device }

// ClientCount reports the number of client sessions bound to this camera.
func (h *HalCamera) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// State returns the aggregate stream state.
func (h *HalCamera) State() StreamState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ownVirtualCamera binds a client session to this camera. The buffer pool
// is grown first; a client that cannot be buffer-backed is not registered.
func (h *HalCamera) ownVirtualCamera(vc *VirtualCamera) error {
	if err := h.changeFramesInFlight(vc.FramesAllowed()); err != nil {
		h.logger.Error("Failed to secure buffers for new client", "error", err)
		return ErrBufferNotAvailable
	}

	h.mu.Lock()
	h.clients[vc.sessionID] = vc
	count := len(h.clients)
	h.mu.Unlock()

	metrics.SetActiveClients(h.id, count)
	return nil
}

// disownVirtualCamera unbinds a client session. The client's stream is
// stopped first, its master role (if held) is released and the buffer
// pool is shrunk to fit the remaining clients.
func (h *HalCamera) disownVirtualCamera(vc *VirtualCamera) {
	if vc == nil {
		h.logger.Warn("Ignoring disown call with nil client")
		return
	}

	vc.StopVideoStream()

	h.mu.Lock()
	if _, ok := h.clients[vc.sessionID]; !ok {
		h.logger.Error("Couldn't find client in our list to remove it", "session_id", vc.sessionID)
	}
	delete(h.clients, vc.sessionID)
	count := len(h.clients)
	h.mu.Unlock()

	h.masterMu.Lock()
	if h.master == vc {
		h.master = nil
	}
	h.masterMu.Unlock()

	metrics.SetActiveClients(h.id, count)

	if err := h.changeFramesInFlight(0); err != nil {
		h.logger.Error("Error when trying to reduce the in-flight buffer count", "error", err)
	}
}

// changeFramesInFlight recomputes the buffer pool as the sum of every
// live client's quota plus delta, floored at one so the hardware session
// survives a momentarily empty client list. On success the frame record
// table is compacted; finding more in-use records than the new capacity
// means a client is over quota, which is logged and tolerated.
func (h *HalCamera) changeFramesInFlight(delta int) error {
	h.mu.Lock()
	count := delta
	for _, vc := range h.clients {
		if !vc.isShutdown() {
			count += vc.FramesAllowed()
		}
	}
	h.mu.Unlock()

	if count < 1 {
		count = 1
	}

	if err := h.device.SetMaxFramesInFlight(count); err != nil {
		return err
	}

	h.mu.Lock()
	kept := make([]frameRecord, 0, count)
	for _, rec := range h.frames {
		if rec.refCount > 0 {
			kept = append(kept, rec)
		}
	}
	if len(kept) > count {
		h.logger.Warn("More frames in use than requested", "in_use", len(kept), "capacity", count)
	}
	h.frames = kept
	h.poolSize = count
	h.mu.Unlock()

	metrics.SetBufferPoolSize(h.id, count)
	return nil
}

// clientStreamStarting starts the hardware stream on the first client
// start. Later clients are absorbed without a second hardware call.
func (h *HalCamera) clientStreamStarting() error {
	h.mu.Lock()
	if h.state != StreamStopped {
		h.mu.Unlock()
		return nil
	}
	h.state = StreamRunning
	h.mu.Unlock()

	if err := h.device.StartVideoStream(h); err != nil {
		h.mu.Lock()
		h.state = StreamStopped
		h.mu.Unlock()
		return err
	}

	h.publishStreamState(StreamRunning)
	return nil
}

// clientStreamEnding stops the hardware stream once no live client is
// still streaming. The stop is asynchronous: state moves to stopping and
// the hardware confirms with a stream-stopped event.
func (h *HalCamera) clientStreamEnding() {
	h.mu.Lock()
	stillRunning := false
	for _, vc := range h.clients {
		if vc.isStreaming() {
			stillRunning = true
			break
		}
	}
	if stillRunning || h.state != StreamRunning {
		h.mu.Unlock()
		return
	}
	h.state = StreamStopping
	h.mu.Unlock()

	h.publishStreamState(StreamStopping)
	h.device.StopVideoStream()
}

// DeliverFrame implements hal.CameraStream. The frame is offered to every
// live client exactly once; if nobody accepts it goes straight back to
// the device, otherwise a frame record is created with one reference per
// accepting client.
func (h *HalCamera) DeliverFrame(buffer hal.BufferDesc) {
	h.mu.Lock()
	snapshot := make([]*VirtualCamera, 0, len(h.clients))
	for _, vc := range h.clients {
		snapshot = append(snapshot, vc)
	}
	h.mu.Unlock()

	deliveries := 0
	for _, vc := range snapshot {
		if vc.deliverFrame(buffer) {
			deliveries++
		}
	}

	if deliveries < 1 {
		h.logger.Debug("Rejecting frame with no acceptance", "buffer_id", buffer.BufferID)
		h.device.DoneWithFrame(buffer)
		metrics.FramesReturned(h.id)
		return
	}

	h.mu.Lock()
	slot := -1
	for i := range h.frames {
		if h.frames[i].refCount == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		h.frames = append(h.frames, frameRecord{})
		slot = len(h.frames) - 1
	}
	h.frames[slot].frameID = buffer.BufferID
	h.frames[slot].refCount = deliveries
	h.mu.Unlock()

	metrics.FramesDelivered(h.id)
}

// Notify implements hal.CameraStream. A stream-stopped event corrects the
// aggregate state; every event is fanned out to the live clients.
func (h *HalCamera) Notify(event hal.StreamEvent) {
	h.mu.Lock()
	if event.Type == hal.EventStreamStopped {
		if h.state != StreamStopping {
			h.logger.Warn("Stream stopped unexpectedly", "state", h.state.String())
		}
		h.state = StreamStopped
	}
	snapshot := make([]*VirtualCamera, 0, len(h.clients))
	for _, vc := range h.clients {
		snapshot = append(snapshot, vc)
	}
	h.mu.Unlock()

	if event.Type == hal.EventStreamStopped {
		h.publishStreamState(StreamStopped)
	}

	for _, vc := range snapshot {
		if !vc.notifyEvent(event) {
			h.logger.Debug("Failed to forward an event", "event", event.Type.String(), "session_id", vc.sessionID)
		}
	}
}

// doneWithFrame releases one client's reference on a delivered buffer.
// The buffer returns to the device on the last release. An unrecognized
// id is a logged anomaly, expected under client crash or double release.
func (h *HalCamera) doneWithFrame(buffer hal.BufferDesc) {
	h.mu.Lock()
	release := false
	found := false
	for i := range h.frames {
		if h.frames[i].frameID == buffer.BufferID && h.frames[i].refCount > 0 {
			h.frames[i].refCount--
			release = h.frames[i].refCount == 0
			found = true
			break
		}
	}
	h.mu.Unlock()

	if !found {
		h.logger.Warn("Got a frame back with an id we don't recognize", "buffer_id", buffer.BufferID)
		return
	}
	if release {
		h.device.DoneWithFrame(buffer)
		metrics.FramesReturned(h.id)
	}
}

// framesInFlight counts records still referenced by at least one client.
func (h *HalCamera) framesInFlight() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, rec := range h.frames {
		if rec.refCount > 0 {
			n++
		}
	}
	return n
}

// setMaster grants the master role if nobody holds it. Compare-and-swap
// semantics: a second claimant is rejected with ErrOwnershipLost.
func (h *HalCamera) setMaster(vc *VirtualCamera) error {
	h.masterMu.Lock()
	if h.master != nil && !h.master.isShutdown() {
		h.masterMu.Unlock()
		return ErrOwnershipLost
	}
	h.master = vc
	h.masterMu.Unlock()

	h.publishMaster(vc.sessionID.String(), false)
	return nil
}

// forceMaster takes the master role unconditionally. A deposed master is
// notified that it lost the role.
func (h *HalCamera) forceMaster(vc *VirtualCamera) {
	h.masterMu.Lock()
	prev := h.master
	if prev == vc {
		h.masterMu.Unlock()
		return
	}
	h.master = vc
	h.masterMu.Unlock()

	if prev != nil && !prev.isShutdown() {
		h.logger.Debug("High priority client steals the master role",
			"new_session", vc.sessionID, "old_session", prev.sessionID)
		if !prev.notifyEvent(hal.StreamEvent{Type: hal.EventMasterReleased, DeviceID: h.id}) {
			h.logger.Error("Failed to deliver a master role lost notification")
		}
	}

	h.publishMaster(vc.sessionID.String(), true)
}

// unsetMaster releases the master role and tells every client the role is
// available again.
func (h *HalCamera) unsetMaster(vc *VirtualCamera) error {
	h.masterMu.Lock()
	if h.master != vc {
		h.masterMu.Unlock()
		return ErrInvalidArg
	}
	h.master = nil
	h.masterMu.Unlock()

	h.Notify(hal.StreamEvent{Type: hal.EventMasterReleased, DeviceID: h.id})
	h.publishMaster("", false)
	return nil
}

// setParameter writes a hardware control on behalf of the master client.
// Non-master callers are declined but get the current value back.
func (h *HalCamera) setParameter(vc *VirtualCamera, param hal.CameraParam, value int32) (int32, error) {
	h.masterMu.Lock()
	isMaster := h.master == vc
	h.masterMu.Unlock()

	if !isMaster {
		h.logger.Debug("A parameter change request from a non-master client is declined")
		current, err := h.device.GetParameter(param)
		if err != nil {
			return 0, ErrNotMaster
		}
		return current, ErrNotMaster
	}

	applied, err := h.device.SetParameter(param, value)
	if err != nil {
		return 0, err
	}

	h.Notify(hal.StreamEvent{
		Type:     hal.EventParameterChanged,
		DeviceID: h.id,
		Payload:  [2]int32{int32(param), applied},
	})
	return applied, nil
}

func (h *HalCamera) getParameter(param hal.CameraParam) (int32, error) {
	return h.device.GetParameter(param)
}

// masterSession returns the session id of the current master, if any.
func (h *HalCamera) masterSession() string {
	h.masterMu.Lock()
	defer h.masterMu.Unlock()
	if h.master == nil {
		return ""
	}
	return h.master.sessionID.String()
}

func (h *HalCamera) publishStreamState(state StreamState) {
	h.bus.Publish(events.StreamStateChangedEvent{
		CameraID:  h.id,
		State:     state.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HalCamera) publishMaster(session string, forced bool) {
	if forced {
		metrics.MasterTakeover(h.id)
	}
	h.bus.Publish(events.MasterChangedEvent{
		CameraID:  h.id,
		SessionID: session,
		Forced:    forced,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
