package evs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/evsnode/internal/events"
	"github.com/smazurov/evsnode/internal/hal"
	"github.com/smazurov/evsnode/internal/logging"
)

// Enumerator is the client entry point of the manager. It owns the
// registry of active hardware camera sessions, the single active display
// and the cached device descriptor list, and it is the one place the
// permission check happens.
type Enumerator struct {
	hw     hal.Enumerator
	perm   hal.PermissionChecker
	bus    *events.Bus
	logger *slog.Logger

	mu            sync.Mutex
	activeCameras map[string]*HalCamera
	descriptors   map[string]hal.CameraDesc
	sessions      map[uuid.UUID]*VirtualCamera
	activeDisplay *HalDisplay
}

// NewEnumerator creates a manager over the given driver. Every entry
// point authorizes the caller with perm before doing any work.
func NewEnumerator(hw hal.Enumerator, perm hal.PermissionChecker, bus *events.Bus) *Enumerator {
	return &Enumerator{
		hw:            hw,
		perm:          perm,
		bus:           bus,
		logger:        logging.GetLogger("evs"),
		activeCameras: make(map[string]*HalCamera),
		descriptors:   make(map[string]hal.CameraDesc),
		sessions:      make(map[uuid.UUID]*VirtualCamera),
	}
}

// ListCameras refreshes and returns the driver's device list. The cached
// descriptors back logical-id resolution and the diagnostics surface.
func (e *Enumerator) ListCameras(ctx context.Context) ([]hal.CameraDesc, error) {
	if !e.perm.Authorized(ctx) {
		return nil, ErrPermissionDenied
	}

	descs, err := e.hw.ListCameras()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate cameras: %w", err)
	}

	e.mu.Lock()
	e.descriptors = make(map[string]hal.CameraDesc, len(descs))
	for _, desc := range descs {
		e.descriptors[desc.ID] = desc
	}
	e.mu.Unlock()

	return descs, nil
}

// OpenCamera opens a client session without a stream configuration. An
// active hardware session is reused regardless of its configuration;
// otherwise the device is opened with the driver default.
func (e *Enumerator) OpenCamera(ctx context.Context, id string) (*VirtualCamera, error) {
	return e.open(ctx, id, hal.StreamConfig{}, false)
}

// OpenCameraWithConfig opens a client session with an explicit stream
// configuration. Physical constituents already active under a different
// configuration fail the whole call rather than being silently
// reconfigured out from under their clients.
func (e *Enumerator) OpenCameraWithConfig(ctx context.Context, id string, cfg hal.StreamConfig) (*VirtualCamera, error) {
	return e.open(ctx, id, cfg, true)
}

func (e *Enumerator) open(ctx context.Context, id string, cfg hal.StreamConfig, matchConfig bool) (*VirtualCamera, error) {
	if !e.perm.Authorized(ctx) {
		e.logger.Error("Access denied", "camera_id", id)
		return nil, ErrPermissionDenied
	}

	physicalIDs, desc, err := e.resolvePhysical(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Collect the source cameras, opening inactive devices fresh.
	sources := make([]*HalCamera, 0, len(physicalIDs))
	opened := make([]*HalCamera, 0, len(physicalIDs))
	fail := func(err error) (*VirtualCamera, error) {
		// Devices opened during this attempt have no other clients and
		// are closed again; devices shared with other clients are left
		// untouched.
		for _, hc := range opened {
			e.hw.CloseCamera(hc.Device())
			delete(e.activeCameras, hc.ID())
		}
		return nil, err
	}

	for _, pid := range physicalIDs {
		if hc, active := e.activeCameras[pid]; active {
			if matchConfig && hc.StreamConfig().ID != cfg.ID {
				e.logger.Warn("Requested camera is already active in a different configuration",
					"camera_id", pid, "active_config", hc.StreamConfig().ID, "requested_config", cfg.ID)
				return fail(ErrStreamConfigMismatch)
			}
			sources = append(sources, hc)
			continue
		}

		device, openErr := e.hw.OpenCamera(pid, cfg)
		if openErr != nil {
			e.logger.Error("Failed to open hardware camera", "camera_id", pid, "error", openErr)
			return fail(fmt.Errorf("failed to open %s: %w", pid, openErr))
		}
		hc := newHalCamera(device, cfg, e.logger, e.bus)
		e.activeCameras[pid] = hc
		sources = append(sources, hc)
		opened = append(opened, hc)
	}

	if len(sources) < 1 {
		return fail(ErrCameraNotFound)
	}

	vc := newVirtualCamera(sources, e.logger, e.bus)
	if desc != nil && desc.IsLogical() {
		vc.desc = desc
	}

	registered := make([]*HalCamera, 0, len(sources))
	for _, hc := range sources {
		if ownErr := hc.ownVirtualCamera(vc); ownErr != nil {
			for _, prev := range registered {
				prev.disownVirtualCamera(vc)
			}
			return fail(ownErr)
		}
		registered = append(registered, hc)
	}

	e.sessions[vc.sessionID] = vc

	e.bus.Publish(events.CameraOpenedEvent{
		CameraID:  id,
		SessionID: vc.sessionID.String(),
		Physical:  physicalIDs,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return vc, nil
}

// CloseCamera tears down a client session. This is the only path that
// closes a hardware camera: the last client leaving a HalCamera evicts
// it from the registry and releases the device. The stream is stopped
// unconditionally as a safety net against misbehaving clients.
func (e *Enumerator) CloseCamera(vc *VirtualCamera) {
	if vc == nil {
		e.logger.Error("Ignoring close call with nil camera")
		return
	}

	for _, hc := range vc.Cameras() {
		hc.disownVirtualCamera(vc)

		e.mu.Lock()
		if hc.ClientCount() == 0 && e.activeCameras[hc.ID()] == hc {
			delete(e.activeCameras, hc.ID())
			e.hw.CloseCamera(hc.Device())
		}
		e.mu.Unlock()
	}

	vc.StopVideoStream()
	vc.Shutdown()

	e.mu.Lock()
	_, known := e.sessions[vc.sessionID]
	delete(e.sessions, vc.sessionID)
	e.mu.Unlock()

	if known {
		e.bus.Publish(events.CameraClosedEvent{
			CameraID:  vc.CameraID(),
			SessionID: vc.sessionID.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// OnClientDeath is the death-notification hook for the IPC layer: every
// session registered by the dead client is closed as if the client had
// called CloseCamera, so a crash never pins hardware resources.
func (e *Enumerator) OnClientDeath(sessionID uuid.UUID) {
	e.mu.Lock()
	vc := e.sessions[sessionID]
	e.mu.Unlock()

	if vc == nil {
		return
	}
	e.logger.Warn("Client died with an open camera session", "session_id", sessionID)
	e.CloseCamera(vc)
}

// OpenDisplay requests exclusive display access. The hardware guarantees
// any previous handle becomes non-functional, so the manager just tracks
// the most recently opened display and proxies state queries to it.
func (e *Enumerator) OpenDisplay(ctx context.Context) (*HalDisplay, error) {
	if !e.perm.Authorized(ctx) {
		return nil, ErrPermissionDenied
	}

	device, err := e.hw.OpenDisplay()
	if err != nil {
		e.logger.Error("Display unavailable", "error", err)
		return nil, fmt.Errorf("failed to open display: %w", err)
	}

	display := newHalDisplay(device, e.logger)

	e.mu.Lock()
	superseded := e.activeDisplay != nil
	e.activeDisplay = display
	e.mu.Unlock()

	if superseded {
		e.logger.Warn("A new display session supersedes the previous one")
	}
	e.bus.Publish(events.DisplayOpenedEvent{
		Superseded: superseded,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	return display, nil
}

// CloseDisplay releases the active display. A handle from a superseded
// session is rejected with a warning and the active display stays as is.
func (e *Enumerator) CloseDisplay(display *HalDisplay) {
	e.mu.Lock()
	if display == nil || display != e.activeDisplay {
		e.mu.Unlock()
		e.logger.Warn("Ignoring call to close an unrecognized display handle")
		return
	}
	e.activeDisplay = nil
	e.mu.Unlock()

	e.hw.CloseDisplay(display.Device())
	e.bus.Publish(events.DisplayClosedEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetDisplayState proxies to the active display. A dead handle means the
// session was lost underneath us; the stale reference is cleared and the
// display reports as not open.
func (e *Enumerator) GetDisplayState(ctx context.Context) hal.DisplayState {
	if !e.perm.Authorized(ctx) {
		return hal.DisplayDead
	}

	e.mu.Lock()
	display := e.activeDisplay
	e.mu.Unlock()

	if display == nil {
		return hal.DisplayNotOpen
	}

	state, err := display.State()
	if err != nil {
		e.logger.Warn("Active display is no longer live, clearing it", "error", err)
		e.mu.Lock()
		if e.activeDisplay == display {
			e.activeDisplay = nil
		}
		e.mu.Unlock()
		return hal.DisplayNotOpen
	}
	return state
}

// ActiveDisplay returns the current display wrapper, if any.
func (e *Enumerator) ActiveDisplay() *HalDisplay {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeDisplay
}

// resolvePhysical maps a client-facing id to its physical constituents.
// A descriptor advertising a logical composite decomposes into its
// reported physical ids; anything else is treated as physical.
func (e *Enumerator) resolvePhysical(ctx context.Context, id string) ([]string, *hal.CameraDesc, error) {
	e.mu.Lock()
	desc, known := e.descriptors[id]
	e.mu.Unlock()

	if !known {
		// Device list may not have been enumerated yet. The caller has
		// already been authorized, so keep its context for the refresh.
		if _, err := e.ListCameras(ctx); err != nil {
			return nil, nil, err
		}
		e.mu.Lock()
		desc, known = e.descriptors[id]
		e.mu.Unlock()
	}

	if !known {
		e.logger.Error("Queried device does not exist", "camera_id", id)
		return nil, nil, ErrCameraNotFound
	}

	if !desc.IsLogical() {
		return []string{id}, &desc, nil
	}

	ids := make([]string, 0, len(desc.Metadata.PhysicalIDs))
	seen := make(map[string]struct{}, len(desc.Metadata.PhysicalIDs))
	for _, pid := range desc.Metadata.PhysicalIDs {
		if pid == "" {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		ids = append(ids, pid)
	}
	if len(ids) == 0 {
		e.logger.Error("No physical camera id found for a logical camera device", "camera_id", id)
		return nil, nil, ErrCameraNotFound
	}
	e.logger.Info("Resolved logical camera device", "camera_id", id, "physical_count", len(ids))
	return ids, &desc, nil
}
