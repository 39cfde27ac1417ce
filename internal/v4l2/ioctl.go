// Package v4l2 binds the subset of the Video4Linux2 ioctl surface this
// daemon needs: format negotiation, memory-mapped streaming, and control
// enumeration/read/write. It mirrors the kernel's wire structs directly
// and issues ioctls via golang.org/x/sys/unix.
package v4l2

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Pixel formats (V4L2 fourcc codes), computed the same way the kernel
// does: a | b<<8 | c<<16 | d<<24.
func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var (
	PixFmtYUYV  = fourcc('Y', 'U', 'Y', 'V')
	PixFmtMJPEG = fourcc('M', 'J', 'P', 'G')
	PixFmtRGB24 = fourcc('R', 'G', 'B', '3')
	PixFmtBGR24 = fourcc('B', 'G', 'R', '3')
)

const (
	bufTypeVideoCapture uint32 = 1
	bufTypeVideoOutput  uint32 = 2

	memoryMMAP uint32 = 1

	fieldAny uint32 = 0
)

// ioctl numbers, matching the kernel's VIDIOC_* _IOWR encodings.
const (
	vidiocQueryCap       uintptr = 0x80685600
	vidiocEnumFmt        uintptr = 0xC0405602
	vidiocGFmt           uintptr = 0xC0D05604
	vidiocSFmt           uintptr = 0xC0D05605
	vidiocReqBufs        uintptr = 0xC0145608
	vidiocQueryBuf       uintptr = 0xC0585609
	vidiocQBuf           uintptr = 0xC058560F
	vidiocDQBuf          uintptr = 0xC0585611
	vidiocStreamOn       uintptr = 0x40045612
	vidiocStreamOff      uintptr = 0x40045613
	vidiocGParm          uintptr = 0xC0CC5615
	vidiocSParm          uintptr = 0xC0CC5616
	vidiocQueryCtrl      uintptr = 0xC0445624
	vidiocQueryMenu      uintptr = 0xC02C5625
	vidiocGCtrl          uintptr = 0xC008561B
	vidiocSCtrl          uintptr = 0xC008561C
	vidiocEnumFSizes     uintptr = 0xC02C564A
	vidiocEnumFIntervals uintptr = 0xC034564B
)

// ctrlFlagNextCtrl asks QUERYCTRL to walk controls in id order rather
// than probe one at a time.
const ctrlFlagNextCtrl uint32 = 0x80000000

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return fmt.Errorf("ioctl 0x%x: %w", req, errno)
	}
	return nil
}
