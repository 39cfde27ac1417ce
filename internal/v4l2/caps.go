package v4l2

import "unsafe"

// fmtDescReq mirrors struct v4l2_fmtdesc.
type fmtDescReq struct {
	Index       uint32
	Type        uint32
	Flags       uint32
	Description [32]byte
	Pixelformat uint32
	MbusCode    uint32
	reserved    [3]uint32
}

// FrameSizeType tags which shape of resolution range a driver reports.
type FrameSizeType uint32

const (
	FrameSizeDiscrete   FrameSizeType = 1
	FrameSizeContinuous FrameSizeType = 2
	FrameSizeStepwise   FrameSizeType = 3
)

// frmSizeEnumReq mirrors struct v4l2_frmsizeenum. Only the discrete and
// stepwise union arms are modeled; both are six-uint32 wide so one layout
// covers both.
type frmSizeEnumReq struct {
	Index            uint32
	PixelFormat      uint32
	Type             uint32
	a, b, c, d, e, f uint32 // discrete: a,b only; stepwise: all six
	reserved         [2]uint32
}

// frmIvalEnumReq mirrors struct v4l2_frmivalenum. Discrete interval is a
// single v4l2_fract (numerator/denominator); stepwise is three fracts.
type frmIvalEnumReq struct {
	Index            uint32
	PixelFormat      uint32
	Width            uint32
	Height           uint32
	Type             uint32
	a, b, c, d, e, f uint32
	reserved         [2]uint32
}

// FrameSize is one resolution a device can negotiate for a given pixel
// format, expressed as a single width/height (for discrete and stepwise
// alike; stepwise ranges are reported as their maximum).
type FrameSize struct {
	Width, Height int
}

// FrameRate is one negotiable frame rate, expressed as frames per second
// (the kernel exposes these as 1/fps fractions).
type FrameRate struct {
	FPS float64
}

// FormatInfo is one pixel format a device supports, with its enumerated
// resolutions and, per resolution, enumerated frame rates.
type FormatInfo struct {
	Pixelformat uint32
	Description string
	FrameSizes  []FrameSize
	FrameRates  map[FrameSize][]FrameRate
}

// EnumerateFormats walks VIDIOC_ENUM_FMT for the capture type, then for
// each format enumerates its frame sizes and, for each listed frame size
// (including a stepwise range's maximum), its frame rates. Used to build
// the capabilities snapshot that video-settings proposals are validated
// against.
func EnumerateFormats(fd int) ([]FormatInfo, error) {
	var out []FormatInfo

	for index := uint32(0); ; index++ {
		var fd32 fmtDescReq
		fd32.Index = index
		fd32.Type = bufTypeVideoCapture
		if err := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&fd32)); err != nil {
			break
		}

		info := FormatInfo{
			Pixelformat: fd32.Pixelformat,
			Description: cString(fd32.Description[:]),
			FrameRates:  make(map[FrameSize][]FrameRate),
		}

		sizes := enumerateFrameSizes(fd, fd32.Pixelformat)
		info.FrameSizes = sizes
		for _, sz := range sizes {
			info.FrameRates[sz] = enumerateFrameIntervals(fd, fd32.Pixelformat, sz.Width, sz.Height)
		}

		out = append(out, info)
	}
	return out, nil
}

func enumerateFrameSizes(fd int, pixelformat uint32) []FrameSize {
	var out []FrameSize
	for index := uint32(0); ; index++ {
		var r frmSizeEnumReq
		r.Index = index
		r.PixelFormat = pixelformat
		if err := ioctl(fd, vidiocEnumFSizes, unsafe.Pointer(&r)); err != nil {
			break
		}
		switch FrameSizeType(r.Type) {
		case FrameSizeDiscrete:
			out = append(out, FrameSize{Width: int(r.a), Height: int(r.b)})
		case FrameSizeStepwise, FrameSizeContinuous:
			// r.b, r.e are max_width, max_height in the stepwise layout.
			out = append(out, FrameSize{Width: int(r.b), Height: int(r.e)})
			return out // stepwise ranges are not further enumerable by index
		default:
			return out
		}
	}
	return out
}

func enumerateFrameIntervals(fd int, pixelformat uint32, width, height int) []FrameRate {
	var out []FrameRate
	for index := uint32(0); ; index++ {
		var r frmIvalEnumReq
		r.Index = index
		r.PixelFormat = pixelformat
		r.Width = uint32(width)
		r.Height = uint32(height)
		if err := ioctl(fd, vidiocEnumFIntervals, unsafe.Pointer(&r)); err != nil {
			break
		}
		switch r.Type {
		case 1: // discrete: a=numerator, b=denominator
			if r.a > 0 {
				out = append(out, FrameRate{FPS: float64(r.b) / float64(r.a)})
			}
		default: // stepwise/continuous: report the fastest (min interval = a/b)
			if r.a > 0 {
				out = append(out, FrameRate{FPS: float64(r.b) / float64(r.a)})
			}
			return out
		}
	}
	return out
}
