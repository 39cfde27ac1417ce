// Package output writes rectified RGB24 frames to a pre-created kernel
// loopback video device, converting to the negotiated wire format and
// never blocking the pipeline thread on backpressure.
package output

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/instance-id/hypercalibrate/internal/colorspace"
	"github.com/instance-id/hypercalibrate/internal/hcerr"
	"github.com/instance-id/hypercalibrate/internal/logging"
	"github.com/instance-id/hypercalibrate/internal/v4l2"
)

var log = logging.L("output")

// Writer owns the loopback device for its entire lifetime.
type Writer struct {
	file   *os.File
	fd     int
	format uint32
	width  int
	height int

	staging []byte

	mu           sync.Mutex
	droppedTotal uint64
	lastWarnAt   time.Time
}

// formatPreference is the order in which the writer attempts to set the
// loopback's pixel format.
var formatPreference = []uint32{v4l2.PixFmtYUYV, v4l2.PixFmtRGB24, v4l2.PixFmtBGR24}

// Open opens path read+write, non-blocking, and negotiates one of
// YUYV/RGB24/BGR24 via the format ioctl. If every format is refused, a
// raw open with whatever format the driver reports is accepted instead of
// failing outright.
func Open(path string, width, height int) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", hcerr.ErrDeviceUnavailable, path, err)
	}
	fd := int(file.Fd())

	var negotiated v4l2.Format
	var ok bool
	for _, f := range formatPreference {
		got, err := v4l2.SetOutputFormat(fd, f, width, height)
		if err == nil && got.Pixelformat == f {
			negotiated = got
			ok = true
			break
		}
	}
	if !ok {
		got, err := v4l2.GetOutputFormat(fd)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: no negotiable loopback format: %v", hcerr.ErrFormatUnsupported, err)
		}
		negotiated = got
	}

	return &Writer{
		file:   file,
		fd:     fd,
		format: negotiated.Pixelformat,
		width:  width,
		height: height,
	}, nil
}

// Format returns the negotiated wire pixel format.
func (w *Writer) Format() uint32 { return w.format }

// WriteRGB converts rgb (packed RGB24 at width x height) to the
// negotiated wire format and writes one whole frame. On EAGAIN/EWOULDBLOCK
// the frame is dropped, a counter is bumped, a warning logs at most once
// per 5 seconds, and ErrOutputBackpressure is returned so the caller can
// count the drop — the producer never blocks. EINVAL is fatal for this
// frame and surfaced; any other error propagates.
func (w *Writer) WriteRGB(rgb []byte) error {
	frame := w.encode(rgb)

	_, err := unix.Write(w.fd, frame)
	if err == nil {
		return nil
	}

	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		w.recordDrop()
		return fmt.Errorf("%w: loopback buffer full", hcerr.ErrOutputBackpressure)
	}
	if errors.Is(err, unix.EINVAL) {
		return fmt.Errorf("loopback write rejected frame: %w", err)
	}
	return fmt.Errorf("loopback write: %w", err)
}

// encode converts rgb into the negotiated wire format, reusing the
// staging buffer for formats that need a conversion.
func (w *Writer) encode(rgb []byte) []byte {
	switch w.format {
	case v4l2.PixFmtYUYV:
		if need := w.width * w.height * 2; cap(w.staging) < need {
			w.staging = make([]byte, need)
		}
		yuyv := w.staging[:w.width*w.height*2]
		colorspace.RGBToYUYVInto(yuyv, rgb, w.width, w.height)
		return yuyv
	case v4l2.PixFmtBGR24:
		if cap(w.staging) < len(rgb) {
			w.staging = make([]byte, len(rgb))
		}
		bgr := w.staging[:len(rgb)]
		copy(bgr, rgb)
		colorspace.BGRToRGB(bgr) // swap is its own inverse
		return bgr
	default: // RGB24 and the raw-open fallback pass through unchanged
		return rgb
	}
}

func (w *Writer) recordDrop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.droppedTotal++
	if time.Since(w.lastWarnAt) >= 5*time.Second {
		log.Warn("loopback backpressure, dropping frame", "totalDropped", w.droppedTotal)
		w.lastWarnAt = time.Now()
	}
}

// DroppedFrames returns the cumulative count of frames dropped to
// backpressure.
func (w *Writer) DroppedFrames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.droppedTotal
}

// Close closes the loopback device.
func (w *Writer) Close() error {
	return w.file.Close()
}
