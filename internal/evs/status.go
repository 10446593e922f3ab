package evs

import (
	"sort"
	"strings"

	"github.com/smazurov/evsnode/internal/hal"
)

// CameraStatus is a read-only snapshot of one active hardware camera
// session, for the diagnostics surface. Building it does not mutate any
// manager state.
type CameraStatus struct {
	ID             string `json:"id" doc:"Physical camera identifier"`
	StreamState    string `json:"stream_state" doc:"Aggregate stream state"`
	ClientCount    int    `json:"client_count" doc:"Client sessions bound to this camera"`
	MasterSession  string `json:"master_session,omitempty" doc:"Session holding the master role"`
	FramesInFlight int    `json:"frames_in_flight" doc:"Buffers currently owed to the device"`
	PoolSize       int    `json:"pool_size" doc:"Negotiated device buffer pool size"`
	ConfigID       int32  `json:"config_id" doc:"Active stream configuration id"`
}

// SessionStatus is a read-only snapshot of one client session.
type SessionStatus struct {
	SessionID     string `json:"session_id" doc:"Client session identifier"`
	CameraID      string `json:"camera_id" doc:"Client-facing camera identifier"`
	StreamState   string `json:"stream_state" doc:"Client stream state"`
	FramesHeld    int    `json:"frames_held" doc:"Buffers the client has not returned"`
	FramesAllowed int    `json:"frames_allowed" doc:"Client buffer quota"`
}

// DisplayStatus is a read-only snapshot of the display.
type DisplayStatus struct {
	Open  bool   `json:"open" doc:"Whether a display session is active"`
	State string `json:"state" doc:"Display state reported by the hardware"`
}

// DumpCameras snapshots active camera sessions. An empty id matches all;
// matching is case-insensitive like the debug command surface.
func (e *Enumerator) DumpCameras(id string) []CameraStatus {
	e.mu.Lock()
	cameras := make([]*HalCamera, 0, len(e.activeCameras))
	for _, hc := range e.activeCameras {
		cameras = append(cameras, hc)
	}
	e.mu.Unlock()

	statuses := make([]CameraStatus, 0, len(cameras))
	for _, hc := range cameras {
		if id != "" && !strings.EqualFold(id, hc.ID()) {
			continue
		}
		hc.mu.Lock()
		status := CameraStatus{
			ID:          hc.id,
			StreamState: hc.state.String(),
			ClientCount: len(hc.clients),
			PoolSize:    hc.poolSize,
			ConfigID:    hc.config.ID,
		}
		for _, rec := range hc.frames {
			if rec.refCount > 0 {
				status.FramesInFlight++
			}
		}
		hc.mu.Unlock()
		status.MasterSession = hc.masterSession()
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

// DumpSessions snapshots every open client session.
func (e *Enumerator) DumpSessions() []SessionStatus {
	e.mu.Lock()
	sessions := make([]*VirtualCamera, 0, len(e.sessions))
	for _, vc := range e.sessions {
		sessions = append(sessions, vc)
	}
	e.mu.Unlock()

	statuses := make([]SessionStatus, 0, len(sessions))
	for _, vc := range sessions {
		statuses = append(statuses, SessionStatus{
			SessionID:     vc.sessionID.String(),
			CameraID:      vc.CameraID(),
			StreamState:   vc.State().String(),
			FramesHeld:    vc.FramesHeld(),
			FramesAllowed: vc.FramesAllowed(),
		})
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].SessionID < statuses[j].SessionID })
	return statuses
}

// DumpDisplay snapshots the display without mutating the active
// reference, unlike GetDisplayState.
func (e *Enumerator) DumpDisplay() DisplayStatus {
	e.mu.Lock()
	display := e.activeDisplay
	e.mu.Unlock()

	if display == nil {
		return DisplayStatus{Open: false, State: hal.DisplayNotOpen.String()}
	}
	state, err := display.State()
	if err != nil {
		return DisplayStatus{Open: false, State: hal.DisplayDead.String()}
	}
	return DisplayStatus{Open: true, State: state.String()}
}

// ActiveCameraIDs lists the physical devices with open hardware sessions.
func (e *Enumerator) ActiveCameraIDs() []string {
	e.mu.Lock()
	ids := make([]string, 0, len(e.activeCameras))
	for id := range e.activeCameras {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	sort.Strings(ids)
	return ids
}
