package evs

import (
	"log/slog"

	"github.com/smazurov/evsnode/internal/hal"
)

// HalDisplay wraps the hardware display handle. All operations pass
// through unchanged; the wrapper exists so the Enumerator can compare
// handles by identity and reject close calls from superseded sessions,
// since the hardware layer does not track caller identity itself.
type HalDisplay struct {
	device hal.DisplayDevice
	logger *slog.Logger
}

func newHalDisplay(device hal.DisplayDevice, logger *slog.Logger) *HalDisplay {
	return &HalDisplay{device: device, logger: logger}
}

// Device returns the wrapped hardware handle.
func (d *HalDisplay) Device() hal.DisplayDevice { return d.device }

// Info passes through to the hardware display.
func (d *HalDisplay) Info() hal.DisplayDesc { return d.device.Info() }

// State passes through to the hardware display.
func (d *HalDisplay) State() (hal.DisplayState, error) { return d.device.State() }

// SetState passes through to the hardware display.
func (d *HalDisplay) SetState(state hal.DisplayState) error {
	return d.device.SetState(state)
}

// TargetBuffer passes through to the hardware display.
func (d *HalDisplay) TargetBuffer() (hal.BufferDesc, error) {
	return d.device.TargetBuffer()
}

// ReturnTargetBuffer passes through to the hardware display.
func (d *HalDisplay) ReturnTargetBuffer(buffer hal.BufferDesc) error {
	return d.device.ReturnTargetBuffer(buffer)
}
