// Package api implements the daemon's contract surface: the operations an
// HTTP handler layer calls into, decoupled from any particular transport.
// Controller owns no goroutines of its own; it reads and mutates the
// shared pipeline state and the camera-control bridge under their own
// locking.
package api

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/instance-id/hypercalibrate/internal/calib"
	"github.com/instance-id/hypercalibrate/internal/cameractl"
	"github.com/instance-id/hypercalibrate/internal/capture"
	"github.com/instance-id/hypercalibrate/internal/config"
	"github.com/instance-id/hypercalibrate/internal/hcerr"
	"github.com/instance-id/hypercalibrate/internal/logging"
	"github.com/instance-id/hypercalibrate/internal/restart"
	"github.com/instance-id/hypercalibrate/internal/shared"
	"github.com/instance-id/hypercalibrate/internal/v4l2"
)

var log = logging.L("api")

// releasePollInterval and releaseTimeout bound how long RequestRestart
// waits for the capture loop to cooperatively release the camera device
// before giving up.
const (
	releasePollInterval = 10 * time.Millisecond
	releaseTimeout      = 5 * time.Second
)

// Controller is the daemon's single contract-surface type: calibration
// editing, preview retrieval, camera-control bridging, video-settings
// negotiation, stats, and restart.
type Controller struct {
	state    *shared.SharedState
	controls *cameractl.Bridge
	pipeline *capture.Pipeline

	cfg     *config.Config
	cfgPath string
}

// New builds a Controller over an already-running pipeline.
func New(state *shared.SharedState, controls *cameractl.Bridge, pipeline *capture.Pipeline, cfg *config.Config, cfgPath string) *Controller {
	return &Controller{state: state, controls: controls, pipeline: pipeline, cfg: cfg, cfgPath: cfgPath}
}

// GetCalibration returns the current calibration as a read model.
func (c *Controller) GetCalibration() CalibrationView {
	cal := c.state.Calibration()
	w, h := c.state.OutputSize()

	view := CalibrationView{
		OutputWidth:  w,
		OutputHeight: h,
		Enabled:      cal.Enabled,
	}
	for i, corner := range cal.Corners {
		view.Corners[i] = PointView{X: corner.X, Y: corner.Y}
	}
	for _, ep := range cal.EdgePoints {
		view.EdgePoints = append(view.EdgePoints, EdgePointView{
			ID:   ep.ID,
			Edge: int(ep.Edge),
			T:    ep.T,
			X:    ep.X,
			Y:    ep.Y,
		})
	}
	return view
}

// ReplacePoints atomically repositions every named point in one bulk
// update. Unknown ids are collected into the returned error but do not
// abort the rest of the batch; points that do resolve are still applied
// under the same write lock.
func (c *Controller) ReplacePoints(points []PointUpdate) error {
	var unknown []int
	c.state.Mutate(func(cal *calib.Calibration) {
		for _, pu := range points {
			if !cal.UpdatePoint(pu.ID, pu.X, pu.Y) {
				unknown = append(unknown, pu.ID)
			}
		}
	})
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown point ids %v", hcerr.ErrInvalidCalibrationPoint, unknown)
	}
	return nil
}

// AddEdgePoint adds a new edge-point landmark on the given edge (0=top,
// 1=right, 2=bottom, 3=left) and returns its allocated id.
func (c *Controller) AddEdgePoint(edge int, x, y float64) (int, error) {
	if edge < 0 || edge > 3 {
		return 0, fmt.Errorf("%w: edge %d out of range", hcerr.ErrInvalidCalibrationPoint, edge)
	}
	var id int
	c.state.Mutate(func(cal *calib.Calibration) {
		ep := cal.AddEdgePoint(calib.Edge(edge), x, y)
		id = ep.ID
	})
	return id, nil
}

// DeleteEdgePoint removes the edge point with the given id.
func (c *Controller) DeleteEdgePoint(id int) error {
	var removed bool
	c.state.Mutate(func(cal *calib.Calibration) {
		removed = cal.RemoveEdgePoint(id)
	})
	if !removed {
		return fmt.Errorf("%w: unknown edge point id %d", hcerr.ErrInvalidCalibrationPoint, id)
	}
	return nil
}

// UpdatePoint moves a single corner or edge point.
func (c *Controller) UpdatePoint(id int, x, y float64) error {
	var ok bool
	c.state.Mutate(func(cal *calib.Calibration) {
		ok = cal.UpdatePoint(id, x, y)
	})
	if !ok {
		return fmt.Errorf("%w: unknown point id %d", hcerr.ErrInvalidCalibrationPoint, id)
	}
	return nil
}

// ResetCalibration restores the default inset-rectangle calibration.
func (c *Controller) ResetCalibration() {
	c.state.Mutate(func(cal *calib.Calibration) {
		cal.Reset()
	})
}

// SetEnabled toggles whether the warp is applied to captured frames.
func (c *Controller) SetEnabled(enabled bool) {
	c.state.Mutate(func(cal *calib.Calibration) {
		cal.Enabled = enabled
	})
}

// LatestPreviewJPEG returns the most recently published preview JPEG for
// the given slot.
func (c *Controller) LatestPreviewJPEG(kind PreviewKind) ([]byte, error) {
	data := c.state.LatestPreview(kind.toShared())
	if data == nil {
		return nil, fmt.Errorf("no preview available yet")
	}
	return data, nil
}

// SubscribePreviewStream returns a channel delivering newly published
// preview JPEGs for the given slot at roughly fps, until ctx is
// cancelled. It does not itself mark preview clients active; callers own
// that lifecycle via SetPreviewClientActive.
func (c *Controller) SubscribePreviewStream(ctx context.Context, kind PreviewKind, fps float64) (<-chan []byte, error) {
	if fps <= 0 {
		fps = 10
	}
	sharedKind := kind.toShared()
	ch := make(chan []byte, 1)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
		defer ticker.Stop()

		var last []byte
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				data := c.state.LatestPreview(sharedKind)
				if data == nil || bytes.Equal(data, last) {
					continue
				}
				last = data
				select {
				case ch <- data:
				default:
				}
			}
		}
	}()

	return ch, nil
}

// ListControls returns every known camera control.
func (c *Controller) ListControls() ([]cameractl.Control, error) {
	return c.controls.List(), nil
}

// SetControl writes a new value to the control identified by id.
func (c *Controller) SetControl(id uint32, value int64) error {
	return c.controls.SetByID(id, int32(value))
}

// ResetControls resets every writable control to its default value.
func (c *Controller) ResetControls() error {
	return c.controls.ResetAll()
}

// RefreshControls re-reads the current value of every known control from
// the device.
func (c *Controller) RefreshControls() error {
	return c.controls.RefreshValues()
}

// Capabilities enumerates the formats, resolutions, and frame rates the
// capture device supports.
func (c *Controller) Capabilities() DeviceCapabilities {
	infos, err := v4l2.EnumerateFormats(c.pipeline.Fd())
	if err != nil {
		log.Warn("enumerate capabilities failed", "error", err)
		return DeviceCapabilities{}
	}

	var caps DeviceCapabilities
	for _, info := range infos {
		fc := FormatCapability{Pixelformat: fourccName(info.Pixelformat)}
		for _, sz := range info.FrameSizes {
			res := Resolution{Width: sz.Width, Height: sz.Height}
			for _, fr := range info.FrameRates[sz] {
				res.FrameRates = append(res.FrameRates, fr.FPS)
			}
			fc.Resolutions = append(fc.Resolutions, res)
		}
		caps.Formats = append(caps.Formats, fc)
	}
	return caps
}

func fourccName(v uint32) string {
	b := [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return string(b[:])
}

// GetVideoSettings returns the currently negotiated capture resolution
// and configured frame rate.
func (c *Controller) GetVideoSettings() VideoSettings {
	w, h := c.pipeline.SourceSize()
	return VideoSettings{Width: w, Height: h, FPS: c.cfg.Video.FPS}
}

// ProposeVideoSettings validates a proposed resolution/fps against the
// device's enumerated capabilities, and if valid and different from the
// current settings (as reported by GetVideoSettings: the negotiated
// capture resolution and the configured frame rate), persists it and marks a restart as
// pending (the change only takes effect once the coordinated restart
// sequence runs). An unsupported proposal leaves the persisted
// configuration and pending-restart state untouched.
func (c *Controller) ProposeVideoSettings(v VideoSettings) error {
	if !c.Capabilities().supports(v) {
		return fmt.Errorf("%w: %dx%d@%d not supported by device", hcerr.ErrInvalidSettings, v.Width, v.Height, v.FPS)
	}

	current := c.GetVideoSettings()
	if current == v {
		return nil
	}

	c.cfg.Video.Width = v.Width
	c.cfg.Video.Height = v.Height
	c.cfg.Video.FPS = v.FPS
	if err := config.Save(c.cfg, c.cfgPath); err != nil {
		return fmt.Errorf("%w: %v", hcerr.ErrPersistenceFailed, err)
	}

	c.state.SetPendingSettings(shared.PendingSettings{Settings: v, NeedsRestart: true})
	return nil
}

// Stats returns a point-in-time snapshot of the pipeline's live counters.
func (c *Controller) Stats() StatsSnapshot {
	return c.state.Stats()
}

// SetPreviewClientActive toggles whether any preview consumer is
// currently attached, gating whether the capture loop spends time
// encoding preview JPEGs.
func (c *Controller) SetPreviewClientActive(active bool) {
	c.state.SetPreviewClientActive(active)
}

// RequestRestart runs the coordinated restart sequence: ask the capture
// loop to release the camera device, wait for it to confirm release,
// then hand off to the process-restart hook. Returns an error if the
// capture loop does not release the device within releaseTimeout.
func (c *Controller) RequestRestart() error {
	c.state.RequestCameraRelease()

	deadline := time.Now().Add(releaseTimeout)
	for !c.state.CameraReleased() {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for camera release")
		}
		time.Sleep(releasePollInterval)
	}

	c.state.RequestRestart()
	return restart.Restart()
}
