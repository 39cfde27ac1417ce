// Package config loads and saves the daemon's persisted configuration:
// capture/output device selection, the HTTP server bind address, the
// calibration geometry, camera control values, and color-correction
// parameters. The document shape and its defaults are part of the
// daemon's contract with its operators; the file store itself carries no
// business logic.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/instance-id/hypercalibrate/internal/calib"
	"github.com/instance-id/hypercalibrate/internal/colorcorrect"
	"github.com/instance-id/hypercalibrate/internal/hcerr"
	"github.com/instance-id/hypercalibrate/internal/logging"
)

var log = logging.L("config")

// VideoConfig is the §6 `video` section: capture/output device selection
// and the negotiated resolution/frame-rate/format.
type VideoConfig struct {
	InputDevice  string `mapstructure:"input_device"`
	OutputDevice string `mapstructure:"output_device"`
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
	FPS          int    `mapstructure:"fps"`
	Format       string `mapstructure:"format"` // "mjpeg" | "yuyv"
}

// ServerConfig is the §6 `server` section. The HTTP surface itself is an
// external collaborator; this is only where it would bind.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PointConfig is a normalized [0,1] corner coordinate.
type PointConfig struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

// EdgePointConfig is one persisted calibration landmark.
type EdgePointConfig struct {
	ID   int     `mapstructure:"id"`
	Edge int     `mapstructure:"edge"`
	T    float64 `mapstructure:"t"`
	X    float64 `mapstructure:"x"`
	Y    float64 `mapstructure:"y"`
}

// CalibrationConfig is the §6 `calibration` section.
type CalibrationConfig struct {
	Corners         [4]PointConfig    `mapstructure:"corners"`
	EdgePoints      []EdgePointConfig `mapstructure:"edge_points"`
	NextEdgePointID int               `mapstructure:"next_edge_point_id"`
	Enabled         bool              `mapstructure:"enabled"`
}

// CameraConfig is the §6 `camera` section: persisted control values,
// keyed by normalized (lowercase, spaces->underscores) control name.
type CameraConfig struct {
	Controls map[string]int `mapstructure:"controls"`
}

// ColorConfig is the `color` section, matching colorcorrect.Params plus
// the preview JPEG quality knob.
type ColorConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	GainR              float64 `mapstructure:"gain_r"`
	GainG              float64 `mapstructure:"gain_g"`
	GainB              float64 `mapstructure:"gain_b"`
	Saturation         float64 `mapstructure:"saturation"`
	HueDegrees         float64 `mapstructure:"hue_degrees"`
	Brightness         float64 `mapstructure:"brightness"`
	Contrast           float64 `mapstructure:"contrast"`
	Gamma              float64 `mapstructure:"gamma"`
	PreviewJPEGQuality int     `mapstructure:"preview_jpeg_quality"`

	// Logging configuration.
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

// Config is the full persisted document.
type Config struct {
	Video       VideoConfig       `mapstructure:"video"`
	Server      ServerConfig      `mapstructure:"server"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Camera      CameraConfig      `mapstructure:"camera"`
	Color       ColorConfig       `mapstructure:"color"`
}

// Default returns the documented defaults for every field the config
// file may omit.
func Default() *Config {
	def := calib.Default()
	return &Config{
		Video: VideoConfig{
			InputDevice:  "/dev/video0",
			OutputDevice: "/dev/video10",
			Width:        1280,
			Height:       720,
			FPS:          30,
			Format:       "mjpeg",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Calibration: calibrationConfigFrom(def),
		Camera: CameraConfig{
			Controls: map[string]int{},
		},
		Color: ColorConfig{
			Enabled:            true,
			GainR:              1.0,
			GainG:              1.0,
			GainB:              1.0,
			Saturation:         1.0,
			HueDegrees:         0,
			Brightness:         0,
			Contrast:           1.0,
			Gamma:              1.0,
			PreviewJPEGQuality: 80,
			LogLevel:           "info",
			LogFormat:          "text",
			LogMaxSizeMB:       50,
			LogMaxBackups:      3,
		},
	}
}

// calibrationConfigFrom converts a calib.Calibration into its persisted
// shape.
func calibrationConfigFrom(c calib.Calibration) CalibrationConfig {
	var corners [4]PointConfig
	for i, p := range c.Corners {
		corners[i] = PointConfig{X: p.X, Y: p.Y}
	}
	eps := make([]EdgePointConfig, len(c.EdgePoints))
	for i, ep := range c.EdgePoints {
		eps[i] = EdgePointConfig{ID: ep.ID, Edge: int(ep.Edge), T: ep.T, X: ep.X, Y: ep.Y}
	}
	return CalibrationConfig{
		Corners:         corners,
		EdgePoints:      eps,
		NextEdgePointID: c.NextID,
		Enabled:         c.Enabled,
	}
}

// ToCalibration converts the persisted calibration section into the live
// calib.Calibration model used by the warp engine and shared state.
func (cc CalibrationConfig) ToCalibration() calib.Calibration {
	var c calib.Calibration
	for i, p := range cc.Corners {
		c.Corners[i] = calib.Point{X: p.X, Y: p.Y}
	}
	for _, ep := range cc.EdgePoints {
		c.EdgePoints = append(c.EdgePoints, calib.EdgePoint{
			ID: ep.ID, Edge: calib.Edge(ep.Edge), T: ep.T, X: ep.X, Y: ep.Y,
		})
	}
	c.NextID = cc.NextEdgePointID
	if c.NextID < 100 {
		c.NextID = 100
	}
	c.Enabled = cc.Enabled
	return c
}

// FromCalibration updates the receiver in place from a live calibration,
// for persisting changes made through the core's mutation operations.
func (cc *CalibrationConfig) FromCalibration(c calib.Calibration) {
	*cc = calibrationConfigFrom(c)
}

// ToColorParams converts the persisted color section into
// colorcorrect.Params.
func (col ColorConfig) ToColorParams() colorcorrect.Params {
	return colorcorrect.Params{
		Enabled:    col.Enabled,
		GainR:      col.GainR,
		GainG:      col.GainG,
		GainB:      col.GainB,
		Saturation: col.Saturation,
		HueDegrees: col.HueDegrees,
		Brightness: col.Brightness,
		Contrast:   col.Contrast,
		Gamma:      col.Gamma,
	}
}

// FromColorParams updates the receiver's correction fields in place,
// leaving PreviewJPEGQuality and logging fields untouched.
func (col *ColorConfig) FromColorParams(p colorcorrect.Params) {
	col.Enabled = p.Enabled
	col.GainR, col.GainG, col.GainB = p.GainR, p.GainG, p.GainB
	col.Saturation = p.Saturation
	col.HueDegrees = p.HueDegrees
	col.Brightness = p.Brightness
	col.Contrast = p.Contrast
	col.Gamma = p.Gamma
}

// Load reads the configuration from cfgFile, or the default search path
// (/etc/hypercalibrate/config.yaml, then ./config.yaml) if cfgFile is
// empty. When cfgFile is empty and no file is found on the search path,
// defaults are used and Load returns them unmodified; an explicitly named
// cfgFile that cannot be read is an error. Read and unmarshal failures
// wrap hcerr.ErrPersistenceFailed. Environment variables prefixed
// HYPERCAL_ override fields present in the loaded file (e.g.
// HYPERCAL_VIDEO_WIDTH for video.width).
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/hypercalibrate")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HYPERCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: read config: %v", hcerr.ErrPersistenceFailed, err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %v", hcerr.ErrPersistenceFailed, err)
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %w", result.Fatals[0])
	}

	return cfg, nil
}

// Save writes cfg to cfgFile (or the default path if empty) as YAML,
// restricting the file to owner-only access since camera.controls and
// the server bind address may be operationally sensitive.
func Save(cfg *Config, cfgFile string) error {
	v := viper.New()
	v.Set("video.input_device", cfg.Video.InputDevice)
	v.Set("video.output_device", cfg.Video.OutputDevice)
	v.Set("video.width", cfg.Video.Width)
	v.Set("video.height", cfg.Video.Height)
	v.Set("video.fps", cfg.Video.FPS)
	v.Set("video.format", cfg.Video.Format)

	v.Set("server.host", cfg.Server.Host)
	v.Set("server.port", cfg.Server.Port)

	corners := make([]map[string]float64, len(cfg.Calibration.Corners))
	for i, p := range cfg.Calibration.Corners {
		corners[i] = map[string]float64{"x": p.X, "y": p.Y}
	}
	eps := make([]map[string]any, len(cfg.Calibration.EdgePoints))
	for i, ep := range cfg.Calibration.EdgePoints {
		eps[i] = map[string]any{"id": ep.ID, "edge": ep.Edge, "t": ep.T, "x": ep.X, "y": ep.Y}
	}
	v.Set("calibration.corners", corners)
	v.Set("calibration.edge_points", eps)
	v.Set("calibration.next_edge_point_id", cfg.Calibration.NextEdgePointID)
	v.Set("calibration.enabled", cfg.Calibration.Enabled)

	v.Set("camera.controls", cfg.Camera.Controls)

	v.Set("color.enabled", cfg.Color.Enabled)
	v.Set("color.gain_r", cfg.Color.GainR)
	v.Set("color.gain_g", cfg.Color.GainG)
	v.Set("color.gain_b", cfg.Color.GainB)
	v.Set("color.saturation", cfg.Color.Saturation)
	v.Set("color.hue_degrees", cfg.Color.HueDegrees)
	v.Set("color.brightness", cfg.Color.Brightness)
	v.Set("color.contrast", cfg.Color.Contrast)
	v.Set("color.gamma", cfg.Color.Gamma)
	v.Set("color.preview_jpeg_quality", cfg.Color.PreviewJPEGQuality)
	v.Set("color.log_level", cfg.Color.LogLevel)
	v.Set("color.log_format", cfg.Color.LogFormat)
	v.Set("color.log_file", cfg.Color.LogFile)
	v.Set("color.log_max_size_mb", cfg.Color.LogMaxSizeMB)
	v.Set("color.log_max_backups", cfg.Color.LogMaxBackups)

	path := cfgFile
	if path == "" {
		path = filepath.Join("/etc/hypercalibrate", "config.yaml")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Chmod(path, 0600)
}
