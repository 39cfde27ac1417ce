// Package hcerr defines the domain error kinds shared across the capture,
// warp, and camera-control subsystems.
package hcerr

import "errors"

// Sentinel errors identifying the kinds named in the daemon's error design.
// Callers should wrap these with fmt.Errorf("...: %w", ErrX) for context and
// compare with errors.Is.
var (
	// ErrDeviceUnavailable means the capture or loopback device could not
	// be opened or ioctl'd.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrFormatUnsupported means no negotiable pixel format was accepted
	// by the device and the raw-open fallback also failed.
	ErrFormatUnsupported = errors.New("format unsupported")

	// ErrFrameDecodeFailed is a transient per-frame decode failure. The
	// caller should skip the frame and continue.
	ErrFrameDecodeFailed = errors.New("frame decode failed")

	// ErrOutputBackpressure means the loopback buffer was full and the
	// frame was dropped.
	ErrOutputBackpressure = errors.New("output backpressure")

	// ErrInvalidCalibrationPoint means an update referenced an unknown
	// corner or edge-point id or an out-of-range edge index. The
	// camera-control bridge also returns it for an unknown control id or
	// name.
	ErrInvalidCalibrationPoint = errors.New("invalid calibration point")

	// ErrInvalidSettings means the requested resolution/fps is not in the
	// device's enumerated capabilities.
	ErrInvalidSettings = errors.New("invalid video settings")

	// ErrControlWriteFailed means the kernel rejected a camera-control
	// write.
	ErrControlWriteFailed = errors.New("control write failed")

	// ErrPersistenceFailed means the configuration file could not be
	// read or written.
	ErrPersistenceFailed = errors.New("persistence failed")
)
