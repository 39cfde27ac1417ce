package config

import (
	"path/filepath"
	"testing"

	"github.com/instance-id/hypercalibrate/internal/calib"
)

func TestDefaultHasDocumentedValues(t *testing.T) {
	cfg := Default()
	if cfg.Video.InputDevice != "/dev/video0" {
		t.Errorf("input_device = %q, want /dev/video0", cfg.Video.InputDevice)
	}
	if cfg.Video.Width != 1280 || cfg.Video.Height != 720 || cfg.Video.FPS != 30 {
		t.Errorf("video defaults = %dx%d@%d, want 1280x720@30", cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS)
	}
	if cfg.Video.Format != "mjpeg" {
		t.Errorf("format = %q, want mjpeg", cfg.Video.Format)
	}
	if cfg.Calibration.NextEdgePointID < 100 {
		t.Errorf("next_edge_point_id = %d, want >= 100", cfg.Calibration.NextEdgePointID)
	}
	if !cfg.Calibration.Enabled {
		t.Error("default calibration should be enabled")
	}
	if cfg.Color.PreviewJPEGQuality != 80 {
		t.Errorf("preview_jpeg_quality = %d, want 80", cfg.Color.PreviewJPEGQuality)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Video.Width = 1920
	cfg.Video.Height = 1080
	cfg.Video.FPS = 60
	cfg.Camera.Controls = map[string]int{"brightness": 42}
	cfg.Calibration.EdgePoints = []EdgePointConfig{
		{ID: 100, Edge: 0, T: 0.5, X: 0.5, Y: 0.12},
	}
	cfg.Calibration.NextEdgePointID = 101

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Video.Width != 1920 || loaded.Video.Height != 1080 || loaded.Video.FPS != 60 {
		t.Fatalf("video = %dx%d@%d, want 1920x1080@60", loaded.Video.Width, loaded.Video.Height, loaded.Video.FPS)
	}
	if loaded.Camera.Controls["brightness"] != 42 {
		t.Fatalf("camera.controls[brightness] = %d, want 42", loaded.Camera.Controls["brightness"])
	}
	if len(loaded.Calibration.EdgePoints) != 1 || loaded.Calibration.EdgePoints[0].ID != 100 {
		t.Fatalf("edge points did not round-trip: %+v", loaded.Calibration.EdgePoints)
	}
	if loaded.Calibration.NextEdgePointID != 101 {
		t.Fatalf("next_edge_point_id = %d, want 101", loaded.Calibration.NextEdgePointID)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		// viper treats an explicitly named missing file as an error; either
		// outcome is acceptable as long as defaults survive when it loads.
		if cfg.Video.Width != 1280 {
			t.Fatalf("expected defaults, got %+v", cfg.Video)
		}
	}
}

func TestCalibrationConfigConversionRoundTrip(t *testing.T) {
	c := calib.Default()
	c.AddEdgePoint(calib.EdgeTop, 0.5, 0.12)

	var cc CalibrationConfig
	cc.FromCalibration(c)
	back := cc.ToCalibration()

	if back.NextID != c.NextID {
		t.Fatalf("NextID = %d, want %d", back.NextID, c.NextID)
	}
	if len(back.EdgePoints) != 1 || back.EdgePoints[0].Edge != calib.EdgeTop {
		t.Fatalf("edge points did not convert: %+v", back.EdgePoints)
	}
	for i := range back.Corners {
		if back.Corners[i] != c.Corners[i] {
			t.Fatalf("corner %d = %+v, want %+v", i, back.Corners[i], c.Corners[i])
		}
	}
}
