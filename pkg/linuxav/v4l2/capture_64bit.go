//go:build linux && (amd64 || arm64)

package v4l2

import "unsafe"

// Compile-time struct size assertions for the streaming API.
var (
	_ [208]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [88]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2Requestbuffers{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2Control{})]byte{}
)

// Streaming ioctls whose struct sizes differ between architectures.
const (
	vidiocSFmt     = 0xc0d05605 // v4l2Format is 208 bytes on 64-bit
	vidiocQuerybuf = 0xc0585609 // v4l2Buffer is 88 bytes on 64-bit
	vidiocQbuf     = 0xc058560f
	vidiocDqbuf    = 0xc0585611
)

// v4l2PixFormat has size 48 bytes.
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

// v4l2Format has size 208 bytes: a 4-byte type, 4 bytes of padding for
// the 8-aligned union, and the 200-byte format union.
type v4l2Format struct {
	typ uint32
	_   [4]byte
	pix v4l2PixFormat
	_   [152]byte
}
