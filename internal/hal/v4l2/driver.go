//go:build linux

// Package v4l2 is the Linux camera driver. It maps Video4Linux capture
// devices onto the hal contracts: device enumeration uses stable ids from
// /dev/v4l/by-id, streaming uses memory-mapped buffers and camera
// parameters map to V4L2 controls. There is no display hardware behind
// this driver; display calls fail cleanly.
package v4l2

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/evsnode/internal/hal"
	"github.com/smazurov/evsnode/internal/logging"
	"github.com/smazurov/evsnode/pkg/linuxav/v4l2"
)

var (
	// ErrCameraInUse is returned when a device node is already open.
	ErrCameraInUse = errors.New("camera already open")
	// ErrNoDisplay is returned for display operations; this driver has
	// no display hardware.
	ErrNoDisplay = errors.New("v4l2 driver has no display")
)

// Enumerator is the V4L2 driver entry point.
type Enumerator struct {
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]*Camera
}

// New creates a V4L2 driver enumerator.
func New() *Enumerator {
	return &Enumerator{
		logger: logging.GetLogger("hal"),
		open:   make(map[string]*Camera),
	}
}

// ListCameras implements hal.Enumerator by probing video capture devices.
func (e *Enumerator) ListCameras() ([]hal.CameraDesc, error) {
	devices, err := v4l2.FindDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate v4l2 devices: %w", err)
	}

	descs := make([]hal.CameraDesc, 0, len(devices))
	for _, dev := range devices {
		descs = append(descs, hal.CameraDesc{ID: dev.DeviceID})
	}
	return descs, nil
}

// OpenCamera implements hal.Enumerator.
func (e *Enumerator) OpenCamera(id string, cfg hal.StreamConfig) (hal.CameraDevice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, active := e.open[id]; active {
		return nil, fmt.Errorf("%w: %s", ErrCameraInUse, id)
	}

	path, err := v4l2.GetDevicePathByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", id, err)
	}

	cam, err := openCamera(id, path, cfg, e.logger)
	if err != nil {
		return nil, err
	}
	e.open[id] = cam
	return cam, nil
}

// CloseCamera implements hal.Enumerator.
func (e *Enumerator) CloseCamera(device hal.CameraDevice) {
	if device == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cam, ok := e.open[device.ID()]; ok && cam == device {
		if err := cam.close(); err != nil {
			e.logger.Warn("Error closing camera", "camera_id", cam.ID(), "error", err)
		}
		delete(e.open, device.ID())
	}
}

// OpenDisplay implements hal.Enumerator.
func (e *Enumerator) OpenDisplay() (hal.DisplayDevice, error) {
	return nil, ErrNoDisplay
}

// CloseDisplay implements hal.Enumerator.
func (e *Enumerator) CloseDisplay(hal.DisplayDevice) {}
