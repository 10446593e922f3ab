package fake

import (
	"fmt"
	"sync"

	"github.com/smazurov/evsnode/internal/hal"
)

// Camera is one open fake camera session. Frame delivery is driven by
// InjectFrame, which stands in for the driver's capture thread; calls into
// the sink are serialized by the camera mutex, matching the one-delivery-
// thread-per-device contract.
type Camera struct {
	id     string
	config hal.StreamConfig

	mu          sync.Mutex
	maxBuffers  int
	poolSize    int
	outstanding map[uint32]hal.BufferDesc
	sink        hal.CameraStream
	streaming   bool
	closed      bool
	nextBuffer  uint32
	params      map[hal.CameraParam]int32

	startCalls int
	stopCalls  int
}

// ID implements hal.CameraDevice.
func (c *Camera) ID() string { return c.id }

// Config returns the stream configuration the session was opened with.
func (c *Camera) Config() hal.StreamConfig { return c.config }

// SetMaxFramesInFlight implements hal.CameraDevice.
func (c *Camera) SetMaxFramesInFlight(count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if count < 1 {
		return fmt.Errorf("invalid buffer count %d", count)
	}
	if count > c.maxBuffers {
		return fmt.Errorf("%w: requested %d, cap %d", ErrPoolExhausted, count, c.maxBuffers)
	}
	c.poolSize = count
	return nil
}

// StartVideoStream implements hal.CameraDevice.
func (c *Camera) StartVideoStream(sink hal.CameraStream) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("camera %s is closed", c.id)
	}
	if c.streaming {
		c.mu.Unlock()
		return fmt.Errorf("camera %s already streaming", c.id)
	}
	c.sink = sink
	c.streaming = true
	c.startCalls++
	c.mu.Unlock()

	sink.Notify(hal.StreamEvent{Type: hal.EventStreamStarted, DeviceID: c.id})
	return nil
}

// StopVideoStream implements hal.CameraDevice. The stop is confirmed with
// an EventStreamStopped, delivered synchronously since the fake has no
// capture thread to drain.
func (c *Camera) StopVideoStream() {
	c.mu.Lock()
	if !c.streaming {
		c.mu.Unlock()
		return
	}
	c.streaming = false
	c.stopCalls++
	sink := c.sink
	c.sink = nil
	c.mu.Unlock()

	if sink != nil {
		sink.Notify(hal.StreamEvent{Type: hal.EventStreamStopped, DeviceID: c.id})
	}
}

// DoneWithFrame implements hal.CameraDevice.
func (c *Camera) DoneWithFrame(buffer hal.BufferDesc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.outstanding, buffer.BufferID)
}

// SetParameter implements hal.CameraDevice.
func (c *Camera) SetParameter(param hal.CameraParam, value int32) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.params == nil {
		c.params = make(map[hal.CameraParam]int32)
	}
	c.params[param] = value
	return value, nil
}

// GetParameter implements hal.CameraDevice.
func (c *Camera) GetParameter(param hal.CameraParam) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params[param], nil
}

// InjectFrame produces one frame as the driver would. It reports whether
// the frame was delivered: a stopped stream or an empty pool drops the
// frame at the source, like hardware skipping a capture with no free
// buffer.
func (c *Camera) InjectFrame() (hal.BufferDesc, bool) {
	c.mu.Lock()
	if !c.streaming || c.sink == nil {
		c.mu.Unlock()
		return hal.BufferDesc{}, false
	}
	if c.outstanding == nil {
		c.outstanding = make(map[uint32]hal.BufferDesc)
	}
	if len(c.outstanding) >= c.poolSize {
		c.mu.Unlock()
		return hal.BufferDesc{}, false
	}
	c.nextBuffer++
	buffer := hal.BufferDesc{
		DeviceID: c.id,
		BufferID: c.nextBuffer,
		Width:    c.config.Width,
		Height:   c.config.Height,
		Stride:   c.config.Width,
		Format:   c.config.Format,
		Handle:   uintptr(c.nextBuffer),
	}
	c.outstanding[buffer.BufferID] = buffer
	sink := c.sink
	c.mu.Unlock()

	sink.DeliverFrame(buffer)
	return buffer, true
}

// OutstandingBuffers reports how many buffers the manager still owes the
// device. The buffer-conservation tests assert this reaches zero.
func (c *Camera) OutstandingBuffers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outstanding)
}

// PoolSize reports the current buffer pool size.
func (c *Camera) PoolSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poolSize
}

// StartCalls reports how many times the hardware stream was started.
func (c *Camera) StartCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startCalls
}

// StopCalls reports how many times the hardware stream was stopped.
func (c *Camera) StopCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCalls
}

// Streaming reports whether the hardware stream is running.
func (c *Camera) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

func (c *Camera) close() {
	c.mu.Lock()
	c.closed = true
	c.streaming = false
	c.sink = nil
	c.mu.Unlock()
}
