package colorspace

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
)

// ErrDecodeFailed wraps any MJPEG decode failure, hardware or software.
var ErrDecodeFailed = errors.New("mjpeg decode failed")

// Decoder turns one MJPEG-compressed frame into packed RGB24 at the
// negotiated resolution.
type Decoder interface {
	Decode(jpegData []byte, width, height int) ([]byte, error)
	Close()
	Name() string
	IsHardware() bool
}

type decoderFactory func() (Decoder, error)

var (
	hardwareDecoderMu      sync.Mutex
	hardwareDecoderFactory decoderFactory
)

// RegisterHardwareDecoder installs the process-wide hardware MJPEG
// decoder factory (a SIMD-capable thread-local decompressor). No
// implementation ships in this repository; an external collaborator
// registers one at init time when available.
func RegisterHardwareDecoder(factory func() (Decoder, error)) {
	hardwareDecoderMu.Lock()
	defer hardwareDecoderMu.Unlock()
	hardwareDecoderFactory = factory
}

// NewDecoder prefers the registered hardware decoder. If none is
// registered or it fails to construct, it returns the software decoder;
// otherwise the returned decoder falls back to software per frame when
// the hardware decode fails. NewDecoder itself never returns an error:
// absence of a hardware backend is normal, not a failure.
func NewDecoder() Decoder {
	hardwareDecoderMu.Lock()
	factory := hardwareDecoderFactory
	hardwareDecoderMu.Unlock()

	if factory != nil {
		if d, err := factory(); err == nil && d != nil {
			return &fallbackDecoder{primary: d, software: NewSoftwareDecoder()}
		}
	}
	return NewSoftwareDecoder()
}

// fallbackDecoder tries the hardware backend first and falls back to
// software per-frame on failure, matching the teacher's hardware-then-
// software encoder selection shape.
type fallbackDecoder struct {
	primary  Decoder
	software Decoder
}

func (f *fallbackDecoder) Decode(jpegData []byte, width, height int) ([]byte, error) {
	rgb, err := f.primary.Decode(jpegData, width, height)
	if err == nil {
		return rgb, nil
	}
	return f.software.Decode(jpegData, width, height)
}

func (f *fallbackDecoder) Close() {
	f.primary.Close()
	f.software.Close()
}

func (f *fallbackDecoder) Name() string     { return f.primary.Name() + "+software-fallback" }
func (f *fallbackDecoder) IsHardware() bool { return true }

// softwareDecoder decodes MJPEG with the standard library, accepting both
// RGB24 (image.YCbCr/image.RGBA as decoded by image/jpeg) and L8
// (grayscale, replicated to three channels) pixel formats.
type softwareDecoder struct{}

// NewSoftwareDecoder returns the pure-Go JPEG decoder fallback.
func NewSoftwareDecoder() Decoder { return &softwareDecoder{} }

func (softwareDecoder) Decode(jpegData []byte, width, height int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w != width || h != height {
		return nil, fmt.Errorf("%w: decoded %dx%d, want %dx%d", ErrDecodeFailed, w, h, width, height)
	}

	rgb := make([]byte, width*height*3)
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			row := y * width
			for x := 0; x < width; x++ {
				v := src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
				o := (row + x) * 3
				rgb[o], rgb[o+1], rgb[o+2] = v, v, v
			}
		}
	default:
		for y := 0; y < height; y++ {
			row := y * width
			for x := 0; x < width; x++ {
				r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				o := (row + x) * 3
				rgb[o] = byte(r >> 8)
				rgb[o+1] = byte(g >> 8)
				rgb[o+2] = byte(b >> 8)
			}
		}
	}
	return rgb, nil
}

func (softwareDecoder) Close()           {}
func (softwareDecoder) Name() string     { return "software-jpeg" }
func (softwareDecoder) IsHardware() bool { return false }
