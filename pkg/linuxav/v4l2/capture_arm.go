//go:build linux && arm && !arm64

package v4l2

import "unsafe"

// Compile-time struct size assertions for the streaming API on 32-bit ARM.
var (
	_ [204]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2Requestbuffers{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2Control{})]byte{}
)

// Streaming ioctls whose struct sizes differ between architectures.
const (
	vidiocSFmt     = 0xc0cc5605 // v4l2Format is 204 bytes on 32-bit
	vidiocQuerybuf = 0xc0445609 // v4l2Buffer is 68 bytes on 32-bit
	vidiocQbuf     = 0xc044560f
	vidiocDqbuf    = 0xc0445611
)

// v4l2PixFormat has size 48 bytes (same as 64-bit).
type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// v4l2Format has size 204 bytes on 32-bit: the union is 4-aligned, so
// there is no padding after the type field.
type v4l2Format struct {
	typ uint32
	pix v4l2PixFormat
	_   [152]byte
}
