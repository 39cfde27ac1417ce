// Package shared holds the single process-lifetime core of live mutable
// state: the current calibration and its derived warp transform, the
// preview JPEG slots, and the lock-free counters and flags the pipeline
// and the HTTP-facing controller both read and write concurrently.
package shared

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/instance-id/hypercalibrate/internal/calib"
	"github.com/instance-id/hypercalibrate/internal/warp"
)

// PreviewKind selects which preview slot to read or write.
type PreviewKind int

const (
	PreviewRaw PreviewKind = iota
	PreviewRectified
)

// previewSlot is one independently lockable preview JPEG buffer.
type previewSlot struct {
	mu   sync.RWMutex
	data []byte
}

func (s *previewSlot) set(data []byte) {
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

func (s *previewSlot) get() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// VideoSettings is the width/height/fps triple negotiated with the
// capture device.
type VideoSettings struct {
	Width, Height, FPS int
}

// PendingSettings records a proposed VideoSettings change awaiting a
// coordinated restart.
type PendingSettings struct {
	Settings     VideoSettings
	NeedsRestart bool
}

// StatsSnapshot is a point-in-time copy of the pipeline's live counters.
type StatsSnapshot struct {
	FramesProcessed uint64
	DroppedFrames   uint64
	CaptureUs       uint64
	DecodeUs        uint64
	TransformUs     uint64
	OutputUs        uint64
	PreviewEncodeUs uint64
	LastFrameTime   time.Time
}

// SharedState is the daemon's single shared live-state core. Calibration
// and the cached transform are guarded by one writer-preferring read/write
// lock pair (Go's sync.RWMutex blocks new readers once a writer is
// waiting, giving writers priority under contention). Preview slots are
// independently lockable. Flags and counters are lock-free atomics.
type SharedState struct {
	mu          sync.RWMutex
	calibration calib.Calibration
	transform   *warp.Transform
	srcW, srcH  int
	dstW, dstH  int

	previews [2]previewSlot

	previewClientsActive   atomic.Bool
	cameraReleaseRequested atomic.Bool
	cameraReleased         atomic.Bool
	restartRequested       atomic.Bool

	framesProcessed uint64
	droppedFrames   uint64
	captureUs       uint64
	decodeUs        uint64
	transformUs     uint64
	outputUs        uint64
	previewEncodeUs uint64

	statsMu       sync.Mutex
	lastFrameTime time.Time

	pendingMu sync.Mutex
	pending   PendingSettings
}

// New builds a SharedState with the given initial calibration, building
// its transform immediately. srcW/srcH is the captured frame size;
// dstW/dstH is the rectified output size.
func New(c calib.Calibration, srcW, srcH, dstW, dstH int) *SharedState {
	s := &SharedState{
		srcW: srcW, srcH: srcH,
		dstW: dstW, dstH: dstH,
	}
	s.calibration = c.Clone()
	s.transform = warp.Build(s.calibration, srcW, srcH, dstW, dstH)
	return s
}

// Snapshot returns a clone of the current calibration and a reference to
// the current transform (the transform, including its LUT, is treated as
// immutable once published, so sharing the pointer across readers is
// safe; a writer always installs a brand new Transform rather than
// mutating one in place).
func (s *SharedState) Snapshot() (calib.Calibration, *warp.Transform) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibration.Clone(), s.transform
}

// Calibration returns a clone of the current calibration only.
func (s *SharedState) Calibration() calib.Calibration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibration.Clone()
}

// Mutate applies fn to a working clone of the calibration, then commits
// the clone and rebuilds the transform, all under one write-lock critical
// section. This is how bulk updates (replace-all-points) stay atomic:
// readers never observe a calibration with only some of fn's edits
// applied.
func (s *SharedState) Mutate(fn func(c *calib.Calibration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	working := s.calibration.Clone()
	fn(&working)
	s.calibration = working
	s.transform = warp.Build(s.calibration, s.srcW, s.srcH, s.dstW, s.dstH)
}

// SetOutputSize changes the rectified output dimensions and rebuilds the
// transform for the current calibration.
func (s *SharedState) SetOutputSize(dstW, dstH int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dstW, s.dstH = dstW, dstH
	s.transform = warp.Build(s.calibration, s.srcW, s.srcH, dstW, dstH)
}

// OutputSize returns the current rectified output dimensions.
func (s *SharedState) OutputSize() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dstW, s.dstH
}

// SetPreview publishes a freshly encoded preview JPEG into the given
// slot in one swap.
func (s *SharedState) SetPreview(kind PreviewKind, jpegBytes []byte) {
	s.previews[kind].set(jpegBytes)
}

// LatestPreview returns a copy of the most recently published preview
// bytes for the given slot, or nil if none has been published yet.
func (s *SharedState) LatestPreview(kind PreviewKind) []byte {
	return s.previews[kind].get()
}

// SetPreviewClientActive toggles whether any preview consumer is
// currently attached; the capture loop gates preview JPEG encoding on
// this flag.
func (s *SharedState) SetPreviewClientActive(active bool) {
	s.previewClientsActive.Store(active)
}

// PreviewClientsActive reports whether preview encoding should run.
func (s *SharedState) PreviewClientsActive() bool {
	return s.previewClientsActive.Load()
}

// RequestCameraRelease asks the capture loop to drop the device handle at
// its next cooperative checkpoint.
func (s *SharedState) RequestCameraRelease() { s.cameraReleaseRequested.Store(true) }

// CameraReleaseRequested reports whether a release has been requested.
func (s *SharedState) CameraReleaseRequested() bool { return s.cameraReleaseRequested.Load() }

// MarkCameraReleased is called by the capture loop once the device handle
// has been closed.
func (s *SharedState) MarkCameraReleased() { s.cameraReleased.Store(true) }

// CameraReleased reports whether the capture loop has released the
// device.
func (s *SharedState) CameraReleased() bool { return s.cameraReleased.Load() }

// RequestRestart asks the capture loop to exit its shutdown poll and let
// the process terminate for a supervisor-driven restart.
func (s *SharedState) RequestRestart() { s.restartRequested.Store(true) }

// RestartRequested reports whether a restart has been requested.
func (s *SharedState) RestartRequested() bool { return s.restartRequested.Load() }

// RecordFrameStats performs the per-frame atomic fetch-adds for the five
// timing accumulators plus the frame counter, and stamps last_frame_time
// under a small dedicated lock.
func (s *SharedState) RecordFrameStats(captureUs, decodeUs, transformUs, outputUs, previewEncodeUs uint64) {
	atomic.AddUint64(&s.framesProcessed, 1)
	atomic.AddUint64(&s.captureUs, captureUs)
	atomic.AddUint64(&s.decodeUs, decodeUs)
	atomic.AddUint64(&s.transformUs, transformUs)
	atomic.AddUint64(&s.outputUs, outputUs)
	atomic.AddUint64(&s.previewEncodeUs, previewEncodeUs)

	s.statsMu.Lock()
	s.lastFrameTime = time.Now()
	s.statsMu.Unlock()
}

// RecordDroppedFrame bumps the dropped-frame counter (loopback
// backpressure).
func (s *SharedState) RecordDroppedFrame() {
	atomic.AddUint64(&s.droppedFrames, 1)
}

// Stats returns a point-in-time snapshot of the live counters.
func (s *SharedState) Stats() StatsSnapshot {
	s.statsMu.Lock()
	lastFrame := s.lastFrameTime
	s.statsMu.Unlock()

	return StatsSnapshot{
		FramesProcessed: atomic.LoadUint64(&s.framesProcessed),
		DroppedFrames:   atomic.LoadUint64(&s.droppedFrames),
		CaptureUs:       atomic.LoadUint64(&s.captureUs),
		DecodeUs:        atomic.LoadUint64(&s.decodeUs),
		TransformUs:     atomic.LoadUint64(&s.transformUs),
		OutputUs:        atomic.LoadUint64(&s.outputUs),
		PreviewEncodeUs: atomic.LoadUint64(&s.previewEncodeUs),
		LastFrameTime:   lastFrame,
	}
}

// SetPendingSettings records a proposed video-settings change awaiting
// restart.
func (s *SharedState) SetPendingSettings(p PendingSettings) {
	s.pendingMu.Lock()
	s.pending = p
	s.pendingMu.Unlock()
}

// PendingSettings returns the currently pending settings change, if any.
func (s *SharedState) PendingSettings() PendingSettings {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return s.pending
}

// ClearPendingRestart marks the pending change as applied (no longer
// needing a restart), used once the process has relaunched with new
// settings.
func (s *SharedState) ClearPendingRestart() {
	s.pendingMu.Lock()
	s.pending.NeedsRestart = false
	s.pendingMu.Unlock()
}
