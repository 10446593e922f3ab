// Package hal defines the contracts between the EVS manager and the
// hardware driver layer: device enumeration, camera and display device
// handles, and the stream callback surface.
//
// Implementations live in subpackages (hal/fake for the in-memory driver
// used in tests and development, hal/v4l2 for Linux video devices). The
// manager core in internal/evs only ever talks to these interfaces.
package hal
