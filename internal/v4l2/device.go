package v4l2

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/instance-id/hypercalibrate/internal/hcerr"
)

// Device is an open, streaming-capable V4L2 capture device.
type Device struct {
	path      string
	file      *os.File
	fd        int
	format    Format
	buffers   []mappedBuffer
	streaming bool
}

// FormatPreference is an ordered list of fourcc codes to attempt during
// negotiation; the first one the driver accepts wins.
var FormatPreference = []uint32{PixFmtMJPEG, PixFmtYUYV, PixFmtRGB24, PixFmtBGR24}

// Open opens path read-write, negotiates the first acceptable format from
// prefer (trying each in order), requests memory-mapped buffers, and
// queues them all. It does not start streaming; call Start for that.
func Open(path string, width, height, fps int, prefer []uint32) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	fd := int(file.Fd())

	if len(prefer) == 0 {
		prefer = FormatPreference
	}

	// Enumerate the driver's supported fourccs first so negotiation only
	// attempts formats the device actually advertises. An empty
	// enumeration (some drivers don't implement ENUM_FMT) falls back to
	// trying every preferred format blind.
	supported := make(map[uint32]bool)
	if infos, err := EnumerateFormats(fd); err == nil {
		for _, info := range infos {
			supported[info.Pixelformat] = true
		}
	}

	var negotiated Format
	var negotiatedOK bool
	for _, fourccCode := range prefer {
		if len(supported) > 0 && !supported[fourccCode] {
			continue
		}
		f, err := setFormat(fd, bufTypeVideoCapture, fourccCode, width, height)
		if err == nil && f.Pixelformat == fourccCode {
			negotiated = f
			negotiatedOK = true
			break
		}
	}
	if !negotiatedOK {
		// Raw-open fallback: accept whatever format the device reports.
		f, err := getFormat(fd, bufTypeVideoCapture)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: no negotiable format and raw G_FMT failed: %v", hcerr.ErrFormatUnsupported, err)
		}
		negotiated = f
	}

	if err := setFrameRate(fd, bufTypeVideoCapture, fps); err != nil {
		// Frame rate is advisory; continue at the driver's chosen rate.
		_ = err
	}

	buffers, err := requestBuffers(fd, 4)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("request buffers: %w", err)
	}

	for i := range buffers {
		if err := queueBuffer(fd, uint32(i)); err != nil {
			unmapBuffers(buffers)
			file.Close()
			return nil, fmt.Errorf("initial queue buffer %d: %w", i, err)
		}
	}

	return &Device{path: path, file: file, fd: fd, format: negotiated, buffers: buffers}, nil
}

// Format returns the negotiated capture format.
func (d *Device) Format() Format { return d.format }

// Start begins streaming.
func (d *Device) Start() error {
	if d.streaming {
		return nil
	}
	if err := streamOn(d.fd); err != nil {
		return fmt.Errorf("STREAMON: %w", err)
	}
	d.streaming = true
	return nil
}

// Stop halts streaming. The device handle and buffers remain mapped and
// can be restarted with Start.
func (d *Device) Stop() error {
	if !d.streaming {
		return nil
	}
	err := streamOff(d.fd)
	d.streaming = false
	if err != nil {
		return fmt.Errorf("STREAMOFF: %w", err)
	}
	return nil
}

// NextFrame waits up to timeout for a filled buffer, copies its bytes
// out, re-queues the buffer, and returns the copy. A zero-length result
// with a nil error means the wait timed out with nothing ready.
func (d *Device) NextFrame(timeout time.Duration) ([]byte, error) {
	ready, err := d.waitReadable(timeout)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, nil
	}

	index, bytesUsed, err := dequeueBuffer(d.fd)
	if err != nil {
		return nil, fmt.Errorf("DQBUF: %w", err)
	}
	if int(index) >= len(d.buffers) {
		return nil, fmt.Errorf("driver returned out-of-range buffer index %d", index)
	}

	out := make([]byte, bytesUsed)
	copy(out, d.buffers[index].data[:bytesUsed])

	if err := queueBuffer(d.fd, index); err != nil {
		return nil, fmt.Errorf("re-QBUF %d: %w", index, err)
	}
	return out, nil
}

func (d *Device) waitReadable(timeout time.Duration) (bool, error) {
	fdSet := &unix.FdSet{}
	fdSet.Bits[d.fd/64] |= 1 << (uint(d.fd) % 64)

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	n, err := unix.Select(d.fd+1, fdSet, nil, nil, &tv)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

// Fd returns the raw file descriptor, for callers that need to probe
// device capabilities directly.
func (d *Device) Fd() int { return d.fd }

// Close stops streaming if active, unmaps all buffers, and closes the
// device file.
func (d *Device) Close() error {
	_ = d.Stop()
	unmapBuffers(d.buffers)
	d.buffers = nil
	return d.file.Close()
}
