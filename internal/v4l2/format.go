package v4l2

import "unsafe"

// pixFormat mirrors the kernel's struct v4l2_pix_format (the capture-type
// member of the v4l2_format union).
type pixFormat struct {
	Width, Height                    uint32
	Pixelformat                      uint32
	Field                            uint32
	BytesPerLine, SizeImage          uint32
	Colorspace, Priv, Flags          uint32
	YCbCrEnc, Quantization, XferFunc uint32
}

// formatReq mirrors struct v4l2_format: a type tag followed by the union
// (here always the pix_format arm), padded to the union's reserved size
// so later additions to pixFormat don't shift ioctl argument layout.
type formatReq struct {
	Type uint32
	_    uint32 // alignment padding before the union on 64-bit
	pixFormat
	reserved [38]uint32 // pads the 48-byte pix_format arm to the 200-byte union
}

// Format is the negotiated capture/output format.
type Format struct {
	Width, Height int
	Pixelformat   uint32
	BytesPerLine  int
	SizeImage     int
}

func newFormatReq(bufType uint32, fourccCode uint32, width, height int) formatReq {
	var r formatReq
	r.Type = bufType
	r.pixFormat.Width = uint32(width)
	r.pixFormat.Height = uint32(height)
	r.pixFormat.Pixelformat = fourccCode
	r.pixFormat.Field = fieldAny
	return r
}

// setFormat issues VIDIOC_S_FMT for the given fourcc/width/height and
// returns what the driver actually accepted (which may differ: drivers
// are permitted to round resolution or refuse the format outright).
func setFormat(fd int, bufType uint32, fourccCode uint32, width, height int) (Format, error) {
	r := newFormatReq(bufType, fourccCode, width, height)
	if err := ioctl(fd, vidiocSFmt, unsafe.Pointer(&r)); err != nil {
		return Format{}, err
	}
	return Format{
		Width:        int(r.pixFormat.Width),
		Height:       int(r.pixFormat.Height),
		Pixelformat:  r.pixFormat.Pixelformat,
		BytesPerLine: int(r.pixFormat.BytesPerLine),
		SizeImage:    int(r.pixFormat.SizeImage),
	}, nil
}

// SetOutputFormat issues VIDIOC_S_FMT against a video-output node (a
// kernel loopback device), trying a single fourcc. Callers negotiate by
// trying several in sequence and keeping the first accepted.
func SetOutputFormat(fd int, fourccCode uint32, width, height int) (Format, error) {
	return setFormat(fd, bufTypeVideoOutput, fourccCode, width, height)
}

// GetOutputFormat issues VIDIOC_G_FMT against a video-output node.
func GetOutputFormat(fd int) (Format, error) {
	return getFormat(fd, bufTypeVideoOutput)
}

// getFormat issues VIDIOC_G_FMT to read back the device's current format.
func getFormat(fd int, bufType uint32) (Format, error) {
	var r formatReq
	r.Type = bufType
	if err := ioctl(fd, vidiocGFmt, unsafe.Pointer(&r)); err != nil {
		return Format{}, err
	}
	return Format{
		Width:        int(r.pixFormat.Width),
		Height:       int(r.pixFormat.Height),
		Pixelformat:  r.pixFormat.Pixelformat,
		BytesPerLine: int(r.pixFormat.BytesPerLine),
		SizeImage:    int(r.pixFormat.SizeImage),
	}, nil
}

// streamParm mirrors struct v4l2_streamparm's capture-type timeperframe
// fields, used to set the capture frame interval (1/fps). The trailing
// reserved words pad the parm union to its full 200 bytes.
type streamParm struct {
	Type                                           uint32
	Capability, CaptureMode                        uint32
	TimeperframeNumerator, TimeperframeDenominator uint32
	ExtendedMode, ReadBuffers                      uint32
	reserved                                       [44]uint32
}

// setFrameRate issues VIDIOC_S_PARM requesting the given fps as a
// timeperframe of 1/fps.
func setFrameRate(fd int, bufType uint32, fps int) error {
	if fps <= 0 {
		fps = 30
	}
	p := streamParm{
		Type:                    bufType,
		TimeperframeNumerator:   1,
		TimeperframeDenominator: uint32(fps),
	}
	return ioctl(fd, vidiocSParm, unsafe.Pointer(&p))
}
