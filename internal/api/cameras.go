package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/evsnode/internal/api/models"
)

// registerCameraRoutes registers all camera-related endpoints
func (s *Server) registerCameraRoutes() {
	// List cameras known to the enumerator
	huma.Register(s.api, huma.Operation{
		OperationID: "list-cameras",
		Method:      http.MethodGet,
		Path:        "/api/cameras",
		Summary:     "List Cameras",
		Description: "Get all cameras visible to clients, including logical multi-cameras",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.CameraListResponse, error) {
		descs, err := s.enumerator.ListCameras(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to enumerate cameras", err)
		}

		active := s.enumerator.ActiveCameraIDs()
		cameras := make([]models.CameraInfo, len(descs))
		for i, desc := range descs {
			cameras[i] = models.FromCameraDesc(desc, slices.Contains(active, desc.ID))
		}

		return &models.CameraListResponse{
			Body: models.CameraListData{
				Cameras: cameras,
				Count:   len(cameras),
			},
		}, nil
	})

	// Snapshot all active hardware camera sessions
	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera-status",
		Method:      http.MethodGet,
		Path:        "/api/cameras/status",
		Summary:     "Camera Status",
		Description: "Get stream state, client counts and buffer accounting for every active hardware camera",
		Tags:        []string{"cameras"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.CameraStatusListResponse, error) {
		statuses := s.enumerator.DumpCameras("")
		return &models.CameraStatusListResponse{
			Body: models.CameraStatusListData{
				Cameras: statuses,
				Count:   len(statuses),
			},
		}, nil
	})

	// Snapshot a single camera by id
	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera-status-by-id",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{id}/status",
		Summary:     "Camera Status By ID",
		Description: "Get the status snapshot for one physical camera",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID string `path:"id" example:"camera.0" doc:"Physical camera identifier"`
	}) (*models.CameraStatusListResponse, error) {
		statuses := s.enumerator.DumpCameras(input.ID)
		if len(statuses) == 0 {
			return nil, huma.Error404NotFound("No active session for camera " + input.ID)
		}
		return &models.CameraStatusListResponse{
			Body: models.CameraStatusListData{
				Cameras: statuses,
				Count:   len(statuses),
			},
		}, nil
	})

	// Full diagnostics dump
	huma.Register(s.api, huma.Operation{
		OperationID: "get-dump",
		Method:      http.MethodGet,
		Path:        "/api/dump",
		Summary:     "Diagnostics Dump",
		Description: "Get the full diagnostics snapshot: cameras, client sessions and display",
		Tags:        []string{"cameras"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DumpResponse, error) {
		return &models.DumpResponse{
			Body: models.DumpData{
				Cameras:  s.enumerator.DumpCameras(""),
				Sessions: s.enumerator.DumpSessions(),
				Display:  s.enumerator.DumpDisplay(),
			},
		}, nil
	})
}
