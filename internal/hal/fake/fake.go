// Package fake is an in-memory implementation of the hal contracts. It
// backs unit tests and the -hal-driver=fake mode of the daemon: the device
// table comes from a TOML file, buffer-pool accounting is honest (growth
// past the configured cap fails the same way a real driver would), and
// frames are injected by tests or by the synthetic frame pump.
package fake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/smazurov/evsnode/internal/hal"
)

var (
	// ErrUnknownCamera is returned for ids not present in the device table.
	ErrUnknownCamera = errors.New("unknown camera id")
	// ErrCameraInUse is returned when a physical device is already open.
	ErrCameraInUse = errors.New("camera already open")
	// ErrLogicalOpen is returned when a logical composite id is opened
	// directly; only physical constituents have hardware sessions.
	ErrLogicalOpen = errors.New("logical camera has no hardware session")
	// ErrPoolExhausted is returned when a pool resize exceeds the cap.
	ErrPoolExhausted = errors.New("buffer pool exhausted")
	// ErrDisplayDead is returned by operations on a superseded display.
	ErrDisplayDead = errors.New("display handle superseded")
)

// CameraSpec declares one camera in the fake device table.
type CameraSpec struct {
	ID          string   `toml:"id"`
	VendorID    uint32   `toml:"vendor_id"`
	PhysicalIDs []string `toml:"physical_ids"`
	MaxBuffers  int      `toml:"max_buffers"`
}

// Config is the fake driver device table, usually loaded from devices.toml.
type Config struct {
	Cameras       []CameraSpec `toml:"cameras"`
	DisplayWidth  uint32       `toml:"display_width"`
	DisplayHeight uint32       `toml:"display_height"`
}

const defaultMaxBuffers = 4

// Enumerator is the fake driver entry point.
type Enumerator struct {
	mu      sync.Mutex
	specs   map[string]CameraSpec
	order   []string
	open    map[string]*Camera
	display *Display
	width   uint32
	height  uint32
}

// New creates a fake enumerator from a device table.
func New(cfg Config) *Enumerator {
	e := &Enumerator{
		specs:  make(map[string]CameraSpec),
		open:   make(map[string]*Camera),
		width:  cfg.DisplayWidth,
		height: cfg.DisplayHeight,
	}
	if e.width == 0 {
		e.width = 1280
	}
	if e.height == 0 {
		e.height = 720
	}
	for _, spec := range cfg.Cameras {
		if spec.MaxBuffers == 0 {
			spec.MaxBuffers = defaultMaxBuffers
		}
		e.specs[spec.ID] = spec
		e.order = append(e.order, spec.ID)
	}
	return e
}

// Replace swaps the device table, keeping open sessions on devices that
// still exist. Used by the devices.toml hot-reload path.
func (e *Enumerator) Replace(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.specs = make(map[string]CameraSpec)
	e.order = e.order[:0]
	for _, spec := range cfg.Cameras {
		if spec.MaxBuffers == 0 {
			spec.MaxBuffers = defaultMaxBuffers
		}
		e.specs[spec.ID] = spec
		e.order = append(e.order, spec.ID)
	}
}

// ListCameras implements hal.Enumerator.
func (e *Enumerator) ListCameras() ([]hal.CameraDesc, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	descs := make([]hal.CameraDesc, 0, len(e.order))
	for _, id := range e.order {
		spec := e.specs[id]
		descs = append(descs, hal.CameraDesc{
			ID:       spec.ID,
			VendorID: spec.VendorID,
			Metadata: hal.CameraMetadata{PhysicalIDs: spec.PhysicalIDs},
		})
	}
	return descs, nil
}

// OpenCamera implements hal.Enumerator.
func (e *Enumerator) OpenCamera(id string, cfg hal.StreamConfig) (hal.CameraDevice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	spec, ok := e.specs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCamera, id)
	}
	if len(spec.PhysicalIDs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrLogicalOpen, id)
	}
	if _, active := e.open[id]; active {
		return nil, fmt.Errorf("%w: %s", ErrCameraInUse, id)
	}

	cam := &Camera{
		id:         id,
		config:     cfg,
		maxBuffers: spec.MaxBuffers,
		poolSize:   1,
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
		cam.close()
		delete(e.open, device.ID())
	}
}

// OpenDisplay implements hal.Enumerator. A second open invalidates the
// previous handle, matching the exclusive-access contract.
func (e *Enumerator) OpenDisplay() (hal.DisplayDevice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.display != nil {
		e.display.kill()
	}
	e.display = &Display{width: e.width, height: e.height, state: hal.DisplayNotVisible}
	return e.display, nil
}

// CloseDisplay implements hal.Enumerator.
func (e *Enumerator) CloseDisplay(device hal.DisplayDevice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.display != nil && device == e.display {
		e.display.kill()
		e.display = nil
	}
}

// OpenCameraCount reports the number of active hardware camera sessions.
func (e *Enumerator) OpenCameraCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.open)
}

// OpenCameraDevice returns the live fake camera for a physical id, for
// tests that inject frames.
func (e *Enumerator) OpenCameraDevice(id string) *Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open[id]
}
