//go:build !linux

// Package v4l2 is the Linux camera driver. On other platforms every
// operation reports that the driver is unavailable.
package v4l2

import (
	"context"
	"errors"

	"github.com/smazurov/evsnode/internal/events"
	"github.com/smazurov/evsnode/internal/hal"
)

// ErrUnsupported is returned on platforms without Video4Linux.
var ErrUnsupported = errors.New("v4l2 driver requires linux")

// Enumerator is a placeholder on non-Linux platforms.
type Enumerator struct{}

// New creates a V4L2 driver enumerator.
func New() *Enumerator { return &Enumerator{} }

// ListCameras implements hal.Enumerator.
func (e *Enumerator) ListCameras() ([]hal.CameraDesc, error) { return nil, ErrUnsupported }

// OpenCamera implements hal.Enumerator.
func (e *Enumerator) OpenCamera(string, hal.StreamConfig) (hal.CameraDevice, error) {
	return nil, ErrUnsupported
}

// CloseCamera implements hal.Enumerator.
func (e *Enumerator) CloseCamera(hal.CameraDevice) {}

// OpenDisplay implements hal.Enumerator.
func (e *Enumerator) OpenDisplay() (hal.DisplayDevice, error) { return nil, ErrUnsupported }

// CloseDisplay implements hal.Enumerator.
func (e *Enumerator) CloseDisplay(hal.DisplayDevice) {}

// WatchDevices is unavailable off Linux.
func WatchDevices(context.Context, *events.Bus) error { return ErrUnsupported }
