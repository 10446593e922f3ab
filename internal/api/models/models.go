package models

import (
	"github.com/smazurov/evsnode/internal/evs"
	"github.com/smazurov/evsnode/internal/hal"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.3" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2024-01-15T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"build-456" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go version used for build"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Camera models
type CameraInfo struct {
	ID          string   `json:"id" example:"camera.0" doc:"Camera identifier"`
	Logical     bool     `json:"logical" example:"false" doc:"Whether this is a logical multi-camera"`
	PhysicalIDs []string `json:"physical_ids,omitempty" doc:"Constituent physical devices of a logical camera"`
	Active      bool     `json:"active" example:"true" doc:"Whether a hardware session is currently open"`
}

type CameraListData struct {
	Cameras []CameraInfo `json:"cameras" doc:"Cameras visible to clients"`
	Count   int          `json:"count" example:"3" doc:"Number of cameras"`
}

type CameraListResponse struct {
	Body CameraListData
}

type CameraStatusListData struct {
	Cameras []evs.CameraStatus `json:"cameras" doc:"Active hardware camera sessions"`
	Count   int                `json:"count" example:"1" doc:"Number of active sessions"`
}

type CameraStatusListResponse struct {
	Body CameraStatusListData
}

// Session models
type SessionListData struct {
	Sessions []evs.SessionStatus `json:"sessions" doc:"Open client sessions"`
	Count    int                 `json:"count" example:"2" doc:"Number of open sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

// Display models
type DisplayResponse struct {
	Body evs.DisplayStatus
}

// Dump models aggregate the full diagnostics snapshot the way the debug
// command surface reports it.
type DumpData struct {
	Cameras  []evs.CameraStatus  `json:"cameras" doc:"Active hardware camera sessions"`
	Sessions []evs.SessionStatus `json:"sessions" doc:"Open client sessions"`
	Display  evs.DisplayStatus   `json:"display" doc:"Display state"`
}

type DumpResponse struct {
	Body DumpData
}

// FromCameraDesc converts a driver descriptor into the API camera shape.
func FromCameraDesc(desc hal.CameraDesc, active bool) CameraInfo {
	return CameraInfo{
		ID:          desc.ID,
		Logical:     desc.IsLogical(),
		PhysicalIDs: desc.Metadata.PhysicalIDs,
		Active:      active,
	}
}
