//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/evsnode/internal/hal"
	"github.com/smazurov/evsnode/pkg/linuxav/v4l2"
)

const (
	defaultWidth  = 1280
	defaultHeight = 720

	// dequeueTimeoutMs bounds how long the capture loop blocks, so a
	// stop request is honored promptly.
	dequeueTimeoutMs = 500
)

// ErrPoolLocked is returned when the buffer pool cannot grow while the
// stream is running; V4L2 does not allow reallocating mapped buffers
// under an active stream.
var ErrPoolLocked = errors.New("buffer pool locked while streaming")

// Camera is one open V4L2 capture session.
type Camera struct {
	id     string
	path   string
	config hal.StreamConfig
	logger *slog.Logger

	mu          sync.Mutex
	cap         *v4l2.Capture
	sink        hal.CameraStream
	poolSize    int
	streaming   bool
	stop        chan struct{}
	outstanding map[uint32]struct{}

	wg sync.WaitGroup
}

func openCamera(id, path string, cfg hal.StreamConfig, logger *slog.Logger) (*Camera, error) {
	capture, err := v4l2.OpenCapture(path)
	if err != nil {
		return nil, err
	}

	width := cfg.Width
	height := cfg.Height
	format := cfg.Format
	if width == 0 || height == 0 {
		width, height = defaultWidth, defaultHeight
	}
	if format == 0 {
		format = v4l2.PixFmtYUYV
	}
	if err := capture.SetFormat(width, height, format); err != nil {
		_ = capture.Close()
		return nil, err
	}

	return &Camera{
		id:          id,
		path:        path,
		config:      cfg,
		logger:      logger.With("camera_id", id),
		cap:         capture,
		poolSize:    1,
		outstanding: make(map[uint32]struct{}),
	}, nil
}

// ID implements hal.CameraDevice.
func (c *Camera) ID() string { return c.id }

// SetMaxFramesInFlight implements hal.CameraDevice. Buffers are mapped
// lazily at stream start, so a stopped camera just records the size. A
// running stream cannot grow its pool: mapped buffers are fixed until
// the next stop.
func (c *Camera) SetMaxFramesInFlight(count int) error {
	if count < 1 {
		return fmt.Errorf("invalid buffer count %d", count)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming && count > c.cap.BufferCount() {
		return fmt.Errorf("%w: mapped %d, requested %d", ErrPoolLocked, c.cap.BufferCount(), count)
	}
	c.poolSize = count
	return nil
}

// StartVideoStream implements hal.CameraDevice.
func (c *Camera) StartVideoStream(sink hal.CameraStream) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return fmt.Errorf("camera %s already streaming", c.id)
	}

	granted, err := c.cap.RequestBuffers(c.poolSize)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if granted < c.poolSize {
		c.logger.Warn("Driver granted fewer buffers than requested",
			"requested", c.poolSize, "granted", granted)
	}
	if err := c.cap.Start(); err != nil {
		c.mu.Unlock()
		return err
	}

	c.sink = sink
	c.streaming = true
	c.stop = make(chan struct{})
	c.wg.Add(1)
	go c.captureLoop(sink, c.stop)
	c.mu.Unlock()

	sink.Notify(hal.StreamEvent{Type: hal.EventStreamStarted, DeviceID: c.id})
	return nil
}

// StopVideoStream implements hal.CameraDevice. The capture loop is
// drained before the hardware stream stops, and the stop is confirmed
// with an EventStreamStopped.
func (c *Camera) StopVideoStream() {
	c.mu.Lock()
	if !c.streaming {
		c.mu.Unlock()
		return
	}
	c.streaming = false
	close(c.stop)
	sink := c.sink
	c.sink = nil
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	if err := c.cap.Stop(); err != nil {
		c.logger.Warn("Error stopping capture", "error", err)
	}
	// STREAMOFF reclaims every buffer, including the ones the manager
	// still holds.
	c.outstanding = make(map[uint32]struct{})
	c.mu.Unlock()

	if sink != nil {
		sink.Notify(hal.StreamEvent{Type: hal.EventStreamStopped, DeviceID: c.id})
	}
}

// DoneWithFrame implements hal.CameraDevice.
func (c *Camera) DoneWithFrame(buffer hal.BufferDesc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, held := c.outstanding[buffer.BufferID]; !held {
		// Expected after a stop reclaimed the queue underneath the
		// manager.
		c.logger.Debug("Ignoring return of unheld buffer", "buffer_id", buffer.BufferID)
		return
	}
	delete(c.outstanding, buffer.BufferID)

	if !c.streaming {
		return
	}
	if err := c.cap.Enqueue(int(buffer.BufferID)); err != nil {
		c.logger.Warn("Failed to requeue buffer", "buffer_id", buffer.BufferID, "error", err)
	}
}

// SetParameter implements hal.CameraDevice.
func (c *Camera) SetParameter(param hal.CameraParam, value int32) (int32, error) {
	ctrl, ok := controlID(param)
	if !ok {
		return 0, fmt.Errorf("unsupported parameter %d", param)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap.SetControl(ctrl, value)
}

// GetParameter implements hal.CameraDevice.
func (c *Camera) GetParameter(param hal.CameraParam) (int32, error) {
	ctrl, ok := controlID(param)
	if !ok {
		return 0, fmt.Errorf("unsupported parameter %d", param)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap.GetControl(ctrl)
}

func (c *Camera) captureLoop(sink hal.CameraStream, stop <-chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-stop:
			return
		default:
		}

		index, _, ok, err := c.cap.Dequeue(dequeueTimeoutMs)
		if err != nil {
			c.logger.Error("Capture error, stopping delivery", "error", err)
			sink.Notify(hal.StreamEvent{Type: hal.EventTimeout, DeviceID: c.id})
			return
		}
		if !ok {
			continue
		}

		buffer := hal.BufferDesc{
			DeviceID: c.id,
			BufferID: uint32(index),
			Width:    c.cap.Width(),
			Height:   c.cap.Height(),
			Stride:   c.cap.Stride(),
			Format:   c.cap.PixelFormat(),
			Handle:   uintptr(index),
		}

		c.mu.Lock()
		c.outstanding[buffer.BufferID] = struct{}{}
		c.mu.Unlock()

		sink.DeliverFrame(buffer)
	}
}

func (c *Camera) close() error {
	c.StopVideoStream()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap.Close()
}

// controlID maps a hal parameter to its V4L2 control id.
func controlID(param hal.CameraParam) (uint32, bool) {
	switch param {
	case hal.ParamBrightness:
		return v4l2.CtrlBrightness, true
	case hal.ParamContrast:
		return v4l2.CtrlContrast, true
	case hal.ParamAutogain:
		return v4l2.CtrlAutogain, true
	case hal.ParamGain:
		return v4l2.CtrlGain, true
	case hal.ParamAutoWhiteBalance:
		return v4l2.CtrlAutoWhiteBalance, true
	case hal.ParamWhiteBalanceTemperature:
		return v4l2.CtrlWhiteBalanceTemperature, true
	case hal.ParamSharpness:
		return v4l2.CtrlSharpness, true
	case hal.ParamAutoExposure:
		return v4l2.CtrlExposureAuto, true
	case hal.ParamAbsoluteExposure:
		return v4l2.CtrlExposureAbsolute, true
	case hal.ParamAbsoluteFocus:
		return v4l2.CtrlFocusAbsolute, true
	case hal.ParamAutoFocus:
		return v4l2.CtrlFocusAuto, true
	case hal.ParamAbsoluteZoom:
		return v4l2.CtrlZoomAbsolute, true
	default:
		return 0, false
	}
}
