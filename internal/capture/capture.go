// Package capture drives the capture-transform-output pipeline: it owns
// the input and loopback devices for their entire lifetimes, pulls
// frames, decodes/converts/warps/writes them, and publishes timing stats
// and preview JPEGs into shared.SharedState.
package capture

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/instance-id/hypercalibrate/internal/colorcorrect"
	"github.com/instance-id/hypercalibrate/internal/colorspace"
	"github.com/instance-id/hypercalibrate/internal/hcerr"
	"github.com/instance-id/hypercalibrate/internal/logging"
	"github.com/instance-id/hypercalibrate/internal/output"
	"github.com/instance-id/hypercalibrate/internal/previewenc"
	"github.com/instance-id/hypercalibrate/internal/shared"
	"github.com/instance-id/hypercalibrate/internal/v4l2"
	"github.com/instance-id/hypercalibrate/internal/warp"
	"github.com/instance-id/hypercalibrate/internal/workerpool"
)

var log = logging.L("capture")

// previewEveryN gates preview JPEG encoding to every Nth captured frame.
const previewEveryN = 3

// Config is the subset of the persisted video configuration the pipeline
// needs to open its devices.
type Config struct {
	InputDevice  string
	OutputDevice string
	Width        int
	Height       int
	FPS          int
}

// Pipeline owns the open input/output devices and the reused working
// buffers for one run of the capture loop.
type Pipeline struct {
	dev *v4l2.Device
	out *output.Writer

	state      *shared.SharedState
	corrector  *colorcorrect.Corrector
	decoder    colorspace.Decoder
	previewEnc *previewenc.Encoder
	pool       *workerpool.Pool
	numWorkers int

	srcW, srcH int
	dstW, dstH int

	decodeBuf   []byte
	warpBuf     []byte
	frameIndex  uint64
	decodeFails uint64
}

// Open opens the input capture device and the loopback output device
// concurrently (they are independent file descriptors, so their
// format-negotiation attempts don't interfere with each other), and
// builds a Pipeline ready to Run.
func Open(cfg Config, state *shared.SharedState, corrector *colorcorrect.Corrector, pool *workerpool.Pool, previewQuality int) (*Pipeline, error) {
	var dev *v4l2.Device
	var out *output.Writer

	var g errgroup.Group
	g.Go(func() error {
		d, err := v4l2.Open(cfg.InputDevice, cfg.Width, cfg.Height, cfg.FPS, nil)
		if err != nil {
			if errors.Is(err, hcerr.ErrFormatUnsupported) {
				return err
			}
			return fmt.Errorf("%w: %v", hcerr.ErrDeviceUnavailable, err)
		}
		dev = d
		return nil
	})
	g.Go(func() error {
		w, err := output.Open(cfg.OutputDevice, cfg.Width, cfg.Height)
		if err != nil {
			return err
		}
		out = w
		return nil
	})
	if err := g.Wait(); err != nil {
		if dev != nil {
			dev.Close()
		}
		if out != nil {
			out.Close()
		}
		return nil, err
	}

	format := dev.Format()
	numWorkers := runtime.NumCPU()
	if numWorkers < 1 {
		numWorkers = 1
	}

	p := &Pipeline{
		dev:        dev,
		out:        out,
		state:      state,
		corrector:  corrector,
		decoder:    colorspace.NewDecoder(),
		previewEnc: previewenc.New(previewQuality),
		pool:       pool,
		numWorkers: numWorkers,
		srcW:       format.Width,
		srcH:       format.Height,
		dstW:       cfg.Width,
		dstH:       cfg.Height,
		decodeBuf:  make([]byte, format.Width*format.Height*3),
		warpBuf:    make([]byte, cfg.Width*cfg.Height*3),
	}

	if err := dev.Start(); err != nil {
		dev.Close()
		out.Close()
		return nil, fmt.Errorf("%w: start streaming: %v", hcerr.ErrDeviceUnavailable, err)
	}
	return p, nil
}

// Fd returns the input device's file descriptor, for callers (the
// camera-control bridge, capability queries) that need to ioctl it
// directly.
func (p *Pipeline) Fd() int { return p.dev.Fd() }

// SourceSize returns the negotiated capture resolution.
func (p *Pipeline) SourceSize() (int, int) { return p.srcW, p.srcH }

// Run drives the capture loop until a fatal stream error occurs or the
// cooperative camera-release/restart protocol completes. It blocks the
// calling goroutine; callers run it on a dedicated goroutine/thread.
func (p *Pipeline) Run() error {
	const pollInterval = 5 * time.Millisecond
	const frameTimeout = 500 * time.Millisecond

	for {
		if p.state.CameraReleaseRequested() {
			return p.shutdownAndAwaitRestart(pollInterval)
		}

		waitStart := time.Now()
		raw, err := p.dev.NextFrame(frameTimeout)
		captureUs := uint64(time.Since(waitStart).Microseconds())
		if err != nil {
			return fmt.Errorf("capture stream read: %w", err)
		}
		if raw == nil {
			continue
		}

		p.frameIndex++
		calibration, transform := p.state.Snapshot()

		decodeStart := time.Now()
		rgb, decErr := p.decodeToRGB(raw)
		decodeUs := uint64(time.Since(decodeStart).Microseconds())
		if decErr != nil {
			p.decodeFails++
			if p.decodeFails%100 == 1 {
				log.Warn("frame decode failed", "count", p.decodeFails, "error", decErr)
			}
			continue
		}

		p.corrector.Apply(rgb)

		outRGB := rgb
		var transformUs uint64
		if calibration.Enabled && transform != nil {
			tStart := time.Now()
			warp.Apply(p.pool, p.numWorkers, transform, rgb, p.srcW, p.srcH, 3, p.warpBuf, false)
			transformUs = uint64(time.Since(tStart).Microseconds())
			outRGB = p.warpBuf
		}

		outStart := time.Now()
		if werr := p.out.WriteRGB(outRGB); werr != nil {
			if errors.Is(werr, hcerr.ErrOutputBackpressure) {
				p.state.RecordDroppedFrame()
			} else {
				log.Error("loopback write failed", "error", werr)
			}
		}
		outputUs := uint64(time.Since(outStart).Microseconds())

		var previewUs uint64
		if p.frameIndex%previewEveryN == 0 && p.state.PreviewClientsActive() {
			previewUs = p.encodePreviews(rgb, outRGB)
		}

		p.state.RecordFrameStats(captureUs, decodeUs, transformUs, outputUs, previewUs)
	}
}

// encodePreviews JPEG-encodes the raw and rectified frames into the
// shared preview slots and returns the total encode time in
// microseconds. Encode failures are logged and leave the previous
// preview slot contents in place.
func (p *Pipeline) encodePreviews(rawRGB, rectifiedRGB []byte) uint64 {
	start := time.Now()

	if raw, err := p.previewEnc.Encode(rawRGB, p.srcW, p.srcH); err == nil {
		p.state.SetPreview(shared.PreviewRaw, raw)
	} else {
		log.Warn("raw preview encode failed", "error", err)
	}

	if rect, err := p.previewEnc.Encode(rectifiedRGB, p.dstW, p.dstH); err == nil {
		p.state.SetPreview(shared.PreviewRectified, rect)
	} else {
		log.Warn("rectified preview encode failed", "error", err)
	}

	return uint64(time.Since(start).Microseconds())
}

// shutdownAndAwaitRestart drops the streaming device, marks it released,
// then polls the restart flag so the process can exit for a
// supervisor-driven relaunch. Closing the device before the restart path
// runs guarantees the relaunched process can claim it.
func (p *Pipeline) shutdownAndAwaitRestart(pollInterval time.Duration) error {
	if err := p.dev.Close(); err != nil {
		log.Warn("error closing capture device during release", "error", err)
	}
	p.state.MarkCameraReleased()
	log.Info("camera released, awaiting restart request")

	for !p.state.RestartRequested() {
		time.Sleep(pollInterval)
	}
	return nil
}

// decodeToRGB dispatches on the negotiated capture pixel format, reusing
// the decode working buffer for the raw formats.
func (p *Pipeline) decodeToRGB(raw []byte) ([]byte, error) {
	switch p.dev.Format().Pixelformat {
	case v4l2.PixFmtMJPEG:
		rgb, err := p.decoder.Decode(raw, p.srcW, p.srcH)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", hcerr.ErrFrameDecodeFailed, err)
		}
		return rgb, nil
	case v4l2.PixFmtYUYV:
		if len(raw) < p.srcW*p.srcH*2 {
			return nil, fmt.Errorf("%w: short YUYV frame (%d bytes)", hcerr.ErrFrameDecodeFailed, len(raw))
		}
		colorspace.YUYVToRGBInto(p.decodeBuf, raw, p.srcW, p.srcH, colorspace.BT601, colorspace.Full)
		return p.decodeBuf, nil
	case v4l2.PixFmtBGR24:
		if len(raw) < len(p.decodeBuf) {
			return nil, fmt.Errorf("%w: short BGR24 frame (%d bytes)", hcerr.ErrFrameDecodeFailed, len(raw))
		}
		copy(p.decodeBuf, raw)
		colorspace.BGRToRGB(p.decodeBuf)
		return p.decodeBuf, nil
	default: // RGB24 and any unrecognized raw-open fallback pass through
		if len(raw) < len(p.decodeBuf) {
			return nil, fmt.Errorf("%w: short frame (%d bytes)", hcerr.ErrFrameDecodeFailed, len(raw))
		}
		copy(p.decodeBuf, raw)
		return p.decodeBuf, nil
	}
}

// Close stops streaming and releases both devices unconditionally; safe
// to call after Run has already closed the input device via the
// cooperative shutdown path.
func (p *Pipeline) Close() {
	_ = p.dev.Close()
	_ = p.out.Close()
}
