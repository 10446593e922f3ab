package fake

import (
	"sync"

	"github.com/smazurov/evsnode/internal/hal"
)

// Display is the fake display session. A superseded handle stays callable
// but every operation reports ErrDisplayDead, matching the hardware
// contract that an old handle becomes non-functional once a new exclusive
// session starts.
type Display struct {
	mu      sync.Mutex
	width   uint32
	height  uint32
	state   hal.DisplayState
	dead    bool
	nextBuf uint32
	held    map[uint32]struct{}
}

// Info implements hal.DisplayDevice.
func (d *Display) Info() hal.DisplayDesc {
	return hal.DisplayDesc{ID: "display.0", Width: d.width, Height: d.height}
}

// State implements hal.DisplayDevice.
func (d *Display) State() (hal.DisplayState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return hal.DisplayDead, ErrDisplayDead
	}
	return d.state, nil
}

// SetState implements hal.DisplayDevice.
func (d *Display) SetState(state hal.DisplayState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return ErrDisplayDead
	}
	d.state = state
	return nil
}

// TargetBuffer implements hal.DisplayDevice.
func (d *Display) TargetBuffer() (hal.BufferDesc, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return hal.BufferDesc{}, ErrDisplayDead
	}
	d.nextBuf++
	if d.held == nil {
		d.held = make(map[uint32]struct{})
	}
	d.held[d.nextBuf] = struct{}{}
	return hal.BufferDesc{
		DeviceID: "display.0",
		BufferID: d.nextBuf,
		Width:    d.width,
		Height:   d.height,
		Stride:   d.width,
		Handle:   uintptr(d.nextBuf),
	}, nil
}

// ReturnTargetBuffer implements hal.DisplayDevice.
func (d *Display) ReturnTargetBuffer(buffer hal.BufferDesc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return ErrDisplayDead
	}
	delete(d.held, buffer.BufferID)
	return nil
}

// Dead reports whether this handle has been superseded or closed.
func (d *Display) Dead() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dead
}

func (d *Display) kill() {
	d.mu.Lock()
	d.dead = true
	d.state = hal.DisplayDead
	d.mu.Unlock()
}
