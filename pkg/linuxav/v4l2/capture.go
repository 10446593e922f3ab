//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// Control IDs for camera hardware controls.
const (
	CtrlBrightness              = 0x00980900
	CtrlContrast                = 0x00980901
	CtrlAutoWhiteBalance        = 0x0098090c
	CtrlAutogain                = 0x00980912
	CtrlGain                    = 0x00980913
	CtrlWhiteBalanceTemperature = 0x0098091a
	CtrlSharpness               = 0x0098091b
	CtrlExposureAuto            = 0x009a0901
	CtrlExposureAbsolute        = 0x009a0902
	CtrlFocusAbsolute           = 0x009a090a
	CtrlFocusAuto               = 0x009a090c
	CtrlZoomAbsolute            = 0x009a090d
)

// Exported pixel formats for capture format negotiation.
const (
	PixFmtYUYV  = v4l2PixFmtYUYV
	PixFmtMJPEG = v4l2PixFmtMJPEG
	PixFmtNV12  = v4l2PixFmtNV12
)

// Memory and field settings for capture.
const (
	v4l2MemoryMmap = 1
	v4l2FieldAny   = 0
)

// Streaming ioctls with arch-independent struct sizes.
const (
	vidiocReqbufs   = 0xc0145608
	vidiocStreamon  = 0x40045612
	vidiocStreamoff = 0x40045613
	vidiocGCtrl     = 0xc008561b
	vidiocSCtrl     = 0xc008561c
)

// ErrBuffersBusy is returned when buffers cannot be reallocated while
// streaming is active.
var ErrBuffersBusy = errors.New("buffers in use, stop streaming first")

// v4l2Timecode has size 16 bytes on all architectures.
type v4l2Timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

// v4l2Buffer matches struct v4l2_buffer. Field alignment follows the
// kernel layout on each architecture: syscall.Timeval and uintptr track
// the platform word size, so a single definition covers 32- and 64-bit.
type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	timestamp syscall.Timeval
	timecode  v4l2Timecode
	sequence  uint32
	memory    uint32
	m         uintptr // union: offset for MMAP
	length    uint32
	reserved2 uint32
	requestFd uint32
}

// v4l2Requestbuffers has size 20 bytes on all architectures.
type v4l2Requestbuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

// v4l2Control has size 8 bytes.
type v4l2Control struct {
	id    uint32
	value int32
}

// Capture is an open V4L2 capture session using memory-mapped streaming
// I/O. The caller owns dequeued buffers until it enqueues them back, so a
// downstream consumer can hold frames without stalling the ioctl loop.
type Capture struct {
	fd      int
	path    string
	buffers [][]byte

	width     uint32
	height    uint32
	pixFormat uint32
	stride    uint32
	imageSize uint32
	streaming bool
}

// OpenCapture opens a device node for streaming capture.
func OpenCapture(devicePath string) (*Capture, error) {
	fd, err := open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", devicePath, err)
	}
	return &Capture{fd: fd, path: devicePath}, nil
}

// SetFormat negotiates the capture format. The driver may adjust the
// requested dimensions; the negotiated values are kept and readable via
// Width, Height, Stride and PixelFormat.
func (c *Capture) SetFormat(width, height, pixelFormat uint32) error {
	format := v4l2Format{typ: v4l2BufTypeVideoCapture}
	format.pix.width = width
	format.pix.height = height
	format.pix.pixelformat = pixelFormat
	format.pix.field = v4l2FieldAny

	if err := ioctl(c.fd, vidiocSFmt, unsafe.Pointer(&format)); err != nil {
		return fmt.Errorf("failed to set format on %s: %w", c.path, err)
	}

	c.width = format.pix.width
	c.height = format.pix.height
	c.pixFormat = format.pix.pixelformat
	c.stride = format.pix.bytesperline
	c.imageSize = format.pix.sizeimage
	return nil
}

// Width returns the negotiated frame width.
func (c *Capture) Width() uint32 { return c.width }

// Height returns the negotiated frame height.
func (c *Capture) Height() uint32 { return c.height }

// Stride returns the negotiated bytes per line.
func (c *Capture) Stride() uint32 { return c.stride }

// PixelFormat returns the negotiated pixel format fourcc.
func (c *Capture) PixelFormat() uint32 { return c.pixFormat }

// BufferCount returns the number of mapped buffers.
func (c *Capture) BufferCount() int { return len(c.buffers) }

// RequestBuffers allocates and maps count driver buffers. The driver may
// grant fewer than requested; the granted count is returned. Fails with
// ErrBuffersBusy while streaming.
func (c *Capture) RequestBuffers(count int) (int, error) {
	if c.streaming {
		return len(c.buffers), ErrBuffersBusy
	}
	c.unmapBuffers()

	req := v4l2Requestbuffers{
		count:  uint32(count),
		typ:    v4l2BufTypeVideoCapture,
		memory: v4l2MemoryMmap,
	}
	if err := ioctl(c.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("failed to request %d buffers on %s: %w", count, c.path, err)
	}

	for i := uint32(0); i < req.count; i++ {
		buf := v4l2Buffer{
			index:  i,
			typ:    v4l2BufTypeVideoCapture,
			memory: v4l2MemoryMmap,
		}
		if err := ioctl(c.fd, vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
			c.unmapBuffers()
			return 0, fmt.Errorf("failed to query buffer %d on %s: %w", i, c.path, err)
		}
		data, err := syscall.Mmap(c.fd, int64(buf.m), int(buf.length),
			syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
		if err != nil {
			c.unmapBuffers()
			return 0, fmt.Errorf("failed to map buffer %d on %s: %w", i, c.path, err)
		}
		c.buffers = append(c.buffers, data)
	}

	return len(c.buffers), nil
}

// Start enqueues every mapped buffer and starts the stream.
func (c *Capture) Start() error {
	if len(c.buffers) == 0 {
		return fmt.Errorf("no buffers mapped on %s", c.path)
	}
	for i := range c.buffers {
		if err := c.Enqueue(i); err != nil {
			return err
		}
	}

	typ := uint32(v4l2BufTypeVideoCapture)
	if err := ioctl(c.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("failed to start streaming on %s: %w", c.path, err)
	}
	c.streaming = true
	return nil
}

// Stop halts the stream. All queued buffers are returned to the
// application by the driver and can be reused after the next Start.
func (c *Capture) Stop() error {
	if !c.streaming {
		return nil
	}
	typ := uint32(v4l2BufTypeVideoCapture)
	if err := ioctl(c.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("failed to stop streaming on %s: %w", c.path, err)
	}
	c.streaming = false
	return nil
}

// Dequeue waits up to timeoutMs for a filled buffer. Returns the buffer
// index, the frame bytes and true, or false on timeout. The buffer stays
// out of the driver's queue until Enqueue is called with its index.
func (c *Capture) Dequeue(timeoutMs int) (int, []byte, bool, error) {
	var readFds syscall.FdSet
	readFds.Bits[c.fd/64] |= 1 << (uint(c.fd) % 64)

	var tv *syscall.Timeval
	if timeoutMs > 0 {
		tv = makeTimeval(timeoutMs)
	}

	n, err := syscall.Select(c.fd+1, &readFds, nil, nil, tv)
	if err != nil {
		if errors.Is(err, syscall.EINTR) {
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}
	if n == 0 {
		return 0, nil, false, nil
	}

	buf := v4l2Buffer{
		typ:    v4l2BufTypeVideoCapture,
		memory: v4l2MemoryMmap,
	}
	if err := ioctl(c.fd, vidiocDqbuf, unsafe.Pointer(&buf)); err != nil {
		if errors.Is(err, syscall.EAGAIN) {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("failed to dequeue buffer on %s: %w", c.path, err)
	}
	if int(buf.index) >= len(c.buffers) {
		return 0, nil, false, fmt.Errorf("driver returned unknown buffer index %d", buf.index)
	}

	return int(buf.index), c.buffers[buf.index][:buf.bytesused], true, nil
}

// Enqueue hands a buffer back to the driver for refilling.
func (c *Capture) Enqueue(index int) error {
	if index < 0 || index >= len(c.buffers) {
		return fmt.Errorf("invalid buffer index %d", index)
	}
	buf := v4l2Buffer{
		index:  uint32(index),
		typ:    v4l2BufTypeVideoCapture,
		memory: v4l2MemoryMmap,
	}
	if err := ioctl(c.fd, vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("failed to enqueue buffer %d on %s: %w", index, c.path, err)
	}
	return nil
}

// GetControl reads a hardware control value.
func (c *Capture) GetControl(id uint32) (int32, error) {
	ctrl := v4l2Control{id: id}
	if err := ioctl(c.fd, vidiocGCtrl, unsafe.Pointer(&ctrl)); err != nil {
		return 0, fmt.Errorf("failed to get control 0x%x on %s: %w", id, c.path, err)
	}
	return ctrl.value, nil
}

// SetControl writes a hardware control and returns the value the driver
// actually applied, which may be clamped to the control's range.
func (c *Capture) SetControl(id uint32, value int32) (int32, error) {
	ctrl := v4l2Control{id: id, value: value}
	if err := ioctl(c.fd, vidiocSCtrl, unsafe.Pointer(&ctrl)); err != nil {
		return 0, fmt.Errorf("failed to set control 0x%x on %s: %w", id, c.path, err)
	}
	return c.GetControl(id)
}

// Close stops streaming, unmaps all buffers and closes the device.
func (c *Capture) Close() error {
	_ = c.Stop()
	c.unmapBuffers()
	return close(c.fd)
}

func (c *Capture) unmapBuffers() {
	for _, data := range c.buffers {
		_ = syscall.Munmap(data)
	}
	c.buffers = nil
}
