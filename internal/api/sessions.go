package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/evsnode/internal/api/models"
)

// registerSessionRoutes registers the client session endpoints
func (s *Server) registerSessionRoutes() {
	// List open client sessions
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "List Sessions",
		Description: "Get all open client sessions with their buffer quotas and held frame counts",
		Tags:        []string{"sessions"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.SessionListResponse, error) {
		sessions := s.enumerator.DumpSessions()
		return &models.SessionListResponse{
			Body: models.SessionListData{
				Sessions: sessions,
				Count:    len(sessions),
			},
		}, nil
	})
}
