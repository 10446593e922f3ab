package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/evsnode/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	// Register SSE endpoint with event type mapping
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for camera sessions, stream transitions, master changes and device hotplug",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"camera-opened":        events.CameraOpenedEvent{},
		"camera-closed":        events.CameraClosedEvent{},
		"stream-state-changed": events.StreamStateChangedEvent{},
		"frame-dropped":        events.FrameDroppedEvent{},
		"master-changed":       events.MasterChangedEvent{},
		"display-opened":       events.DisplayOpenedEvent{},
		"display-closed":       events.DisplayClosedEvent{},
		"device-discovery":     events.DeviceDiscoveryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Create event channel for this connection
		eventCh := make(chan any, 10)

		// Subscribe to all event types using event bus
		unsubscribers := []func(){
			events.SubscribeToChannel[events.CameraOpenedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CameraClosedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FrameDroppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.MasterChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DisplayOpenedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DisplayClosedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DeviceDiscoveryEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Send initial connection confirmation
		if err := send.Data(events.StreamStateChangedEvent{
			CameraID:  "system",
			State:     "connected",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		// Keep connection alive and forward events
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				// Send event using Huma's SSE sender with error handling
				if err := send.Data(event); err != nil {
					// Connection failed, clean up and exit
					return
				}
			}
		}
	})
}
