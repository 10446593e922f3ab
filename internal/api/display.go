package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/evsnode/internal/api/models"
)

// registerDisplayRoutes registers the display endpoint
func (s *Server) registerDisplayRoutes() {
	// Display state snapshot
	huma.Register(s.api, huma.Operation{
		OperationID: "get-display",
		Method:      http.MethodGet,
		Path:        "/api/display",
		Summary:     "Display State",
		Description: "Get the state of the exclusive display session",
		Tags:        []string{"display"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DisplayResponse, error) {
		return &models.DisplayResponse{
			Body: s.enumerator.DumpDisplay(),
		}, nil
	})
}
