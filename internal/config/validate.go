package config

import (
	"fmt"
	"strings"
)

var validFormats = map[string]bool{
	"mjpeg": true,
	"yuyv":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"warning": true,
	"error": true,
}

// ValidationResult separates validation problems into fatals (block
// startup) and warnings (logged, auto-corrected, and otherwise ignored).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal error was recorded.
func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// AllErrors returns fatals followed by warnings, for callers that want a
// single combined list.
func (r ValidationResult) AllErrors() []error {
	out := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	out = append(out, r.Fatals...)
	out = append(out, r.Warnings...)
	return out
}

// ValidateTiered checks the config for invalid values. Values that would
// make the daemon fail to start meaningfully (non-positive resolution,
// unknown pixel format, out-of-range port) are fatal. Values that can be
// safely clamped or defaulted (calibration coordinates, log level) are
// warnings and the config is corrected in place.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		r.Fatals = append(r.Fatals, fmt.Errorf("video width/height must be positive, got %dx%d", c.Video.Width, c.Video.Height))
	}
	if c.Video.FPS <= 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("video.fps %d is non-positive, defaulting to 30", c.Video.FPS))
		c.Video.FPS = 30
	}
	if c.Video.Format != "" && !validFormats[strings.ToLower(c.Video.Format)] {
		r.Fatals = append(r.Fatals, fmt.Errorf("video.format %q is not one of mjpeg, yuyv", c.Video.Format))
	}
	if c.Video.InputDevice == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("video.input_device must not be empty"))
	}
	if c.Video.OutputDevice == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("video.output_device must not be empty"))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		r.Fatals = append(r.Fatals, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	for i := range c.Calibration.Corners {
		clampPoint(&c.Calibration.Corners[i], &r, fmt.Sprintf("calibration.corners[%d]", i))
	}
	for i := range c.Calibration.EdgePoints {
		ep := &c.Calibration.EdgePoints[i]
		if ep.Edge < 0 || ep.Edge > 3 {
			r.Warnings = append(r.Warnings, fmt.Errorf("calibration.edge_points[%d].edge %d out of range, clamping to 0", i, ep.Edge))
			ep.Edge = 0
		}
		if ep.T < 0 || ep.T > 1 {
			r.Warnings = append(r.Warnings, fmt.Errorf("calibration.edge_points[%d].t %g out of range, clamping", i, ep.T))
			ep.T = clamp01(ep.T)
		}
		p := PointConfig{X: ep.X, Y: ep.Y}
		clampPoint(&p, &r, fmt.Sprintf("calibration.edge_points[%d]", i))
		ep.X, ep.Y = p.X, p.Y
	}
	if c.Calibration.NextEdgePointID < 100 {
		r.Warnings = append(r.Warnings, fmt.Errorf("calibration.next_edge_point_id %d below minimum 100, clamping", c.Calibration.NextEdgePointID))
		c.Calibration.NextEdgePointID = 100
	}

	for name, value := range c.Camera.Controls {
		if name != strings.ToLower(name) {
			r.Warnings = append(r.Warnings, fmt.Errorf("camera control name %q is not normalized lowercase", name))
		}
		_ = value
	}

	if c.Color.GainR < 0.5 || c.Color.GainR > 2.0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("color.gain_r %g out of [0.5,2.0], clamping", c.Color.GainR))
		c.Color.GainR = clampGain(c.Color.GainR)
	}
	if c.Color.GainG < 0.5 || c.Color.GainG > 2.0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("color.gain_g %g out of [0.5,2.0], clamping", c.Color.GainG))
		c.Color.GainG = clampGain(c.Color.GainG)
	}
	if c.Color.GainB < 0.5 || c.Color.GainB > 2.0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("color.gain_b %g out of [0.5,2.0], clamping", c.Color.GainB))
		c.Color.GainB = clampGain(c.Color.GainB)
	}
	if c.Color.PreviewJPEGQuality <= 0 || c.Color.PreviewJPEGQuality > 100 {
		r.Warnings = append(r.Warnings, fmt.Errorf("color.preview_jpeg_quality %d out of (0,100], defaulting to 80", c.Color.PreviewJPEGQuality))
		c.Color.PreviewJPEGQuality = 80
	}

	if c.Color.LogLevel != "" && !validLogLevels[strings.ToLower(c.Color.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("color.log_level %q is not valid (use debug, info, warn, error), defaulting to info", c.Color.LogLevel))
		c.Color.LogLevel = "info"
	}
	if c.Color.LogFormat != "" && c.Color.LogFormat != "text" && c.Color.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("color.log_format %q is not valid (use text or json), defaulting to text", c.Color.LogFormat))
		c.Color.LogFormat = "text"
	}

	return r
}

func clampPoint(p *PointConfig, r *ValidationResult, label string) {
	if p.X < 0 || p.X > 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("%s.x %g out of [0,1], clamping", label, p.X))
		p.X = clamp01(p.X)
	}
	if p.Y < 0 || p.Y > 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("%s.y %g out of [0,1], clamping", label, p.Y))
		p.Y = clamp01(p.Y)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampGain(v float64) float64 {
	if v < 0.5 {
		return 0.5
	}
	if v > 2.0 {
		return 2.0
	}
	return v
}
