//go:build linux && arm && !arm64

package v4l2

import "unsafe"

// Compile-time struct size assertions for 32-bit ARM.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2Fmtdesc{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2FrmsizeDiscrete{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(v4l2FrmsizeStepwise{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2Frmsizeenum{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2Fract{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(v4l2Frmivalenum{})]byte{}
	_ [124]byte = [unsafe.Sizeof(v4l2BTTimings{})]byte{}
	_ [132]byte = [unsafe.Sizeof(v4l2DVTimings{})]byte{}
	_ [32]byte  = [unsafe.Sizeof(v4l2EventSubscription{})]byte{}
	_ [124]byte = [unsafe.Sizeof(v4l2Event{})]byte{} // Smaller on 32-bit due to timespec
)

// IOCTL constants for 32-bit ARM
// Note: Most values are the same as 64-bit since the struct sizes are identical.
// The v4l2Event struct differs due to struct timespec size difference.
const (
	vidiocQuerycap           = 0x80685600
	vidiocEnumFmt            = 0xc0405602
	vidiocEnumFramesizes     = 0xc02c564a
	vidiocEnumFrameintervals = 0xc034564b
	vidiocGDVTimings         = 0xc0845658 // v4l2DVTimings is 132 bytes on both
	vidiocSubscribeEvent     = 0x4020565a // v4l2EventSubscription is 32 bytes on both
	vidiocUnsubscribeEvent   = 0x4020565b
	vidiocDqevent            = 0x807c5659 // v4l2Event is 124 bytes on 32-bit (vs 136 on 64-bit)
)

// v4l2Capability - size 104 bytes (same as 64-bit)
type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// v4l2Fmtdesc - size 64 bytes (same as 64-bit)
type v4l2Fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelformat uint32
	mbusCode    uint32
	reserved    [3]uint32
}

// v4l2FrmsizeDiscrete - size 8 bytes
type v4l2FrmsizeDiscrete struct {
	width  uint32
	height uint32
}

// v4l2FrmsizeStepwise - size 24 bytes
type v4l2FrmsizeStepwise struct {
	minWidth   uint32
	maxWidth   uint32
	stepWidth  uint32
	minHeight  uint32
	maxHeight  uint32
	stepHeight uint32
}

// v4l2Frmsizeenum - size 44 bytes (same as 64-bit)
type v4l2Frmsizeenum struct {
	index       uint32
	pixelFormat uint32
	typ         uint32
	discrete    v4l2FrmsizeDiscrete
	_           [16]byte
	reserved    [2]uint32
}

// v4l2Fract - size 8 bytes
type v4l2Fract struct {
	numerator   uint32
	denominator uint32
}

// v4l2Frmivalenum - size 52 bytes (same as 64-bit)
type v4l2Frmivalenum struct {
	index       uint32
	pixelFormat uint32
	width       uint32
	height      uint32
	typ         uint32
	discrete    v4l2Fract
	_           [16]byte
	reserved    [2]uint32
}

// v4l2BTTimings - size 124 bytes
type v4l2BTTimings struct {
	width         uint32
	height        uint32
	interlaced    uint32
	_             uint32
	pixelclock    uint64
	hfrontporch   uint32
	hsync         uint32
	hbackporch    uint32
	vfrontporch   uint32
	vsync         uint32
	vbackporch    uint32
	ilVfrontporch uint32
	ilVsync       uint32
	ilVbackporch  uint32
	standards     uint32
	flags         uint32
	pictureAspect v4l2Fract
	cea861Vic     uint8
	hdmiVic       uint8
	reserved      [46]byte
}

// v4l2DVTimings - size 132 bytes
type v4l2DVTimings struct {
	typ uint32
	bt  v4l2BTTimings
	_   [4]byte
}

// v4l2EventSubscription - size 32 bytes (same as 64-bit)
type v4l2EventSubscription struct {
	typ      uint32
	id       uint32
	flags    uint32
	reserved [5]uint32
}

// v4l2Event - size 124 bytes on 32-bit (vs 136 on 64-bit)
// The difference is due to struct timespec being 8 bytes on 32-bit vs 16 on 64-bit.
type v4l2Event struct {
	typ       uint32
	_         [4]byte
	u         [64]byte // union
	pending   uint32
	sequence  uint32
	timestamp [8]byte // struct timespec - 8 bytes on 32-bit
	id        uint32
	reserved  [8]uint32
}

// getSrcChangeChanges extracts the changes field from the event union
func (e *v4l2Event) getSrcChangeChanges() uint32 {
	return uint32(e.u[0]) | uint32(e.u[1])<<8 | uint32(e.u[2])<<16 | uint32(e.u[3])<<24
}
