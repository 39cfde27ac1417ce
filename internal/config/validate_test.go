package config

import (
	"fmt"
	"testing"
)

func TestValidateTieredZeroResolutionIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Video.Width = 0
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("zero width should be fatal")
	}
}

func TestValidateTieredUnknownFormatIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Video.Format = "h264"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("unsupported format should be fatal")
	}
}

func TestValidateTieredEmptyDeviceIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Video.InputDevice = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("empty input device should be fatal")
	}
}

func TestValidateTieredBadPortIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("out-of-range port should be fatal")
	}
}

func TestValidateTieredFPSClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Video.FPS = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("zero fps should be a warning, not fatal: %v", result.Fatals)
	}
	if cfg.Video.FPS != 30 {
		t.Fatalf("FPS = %d, want 30 (defaulted)", cfg.Video.FPS)
	}
}

func TestValidateTieredCornerClamping(t *testing.T) {
	cfg := Default()
	cfg.Calibration.Corners[0].X = 1.5
	cfg.Calibration.Corners[0].Y = -0.5
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("out-of-range corner should be a warning, not fatal: %v", result.Fatals)
	}
	if cfg.Calibration.Corners[0].X != 1 || cfg.Calibration.Corners[0].Y != 0 {
		t.Fatalf("corner not clamped: %+v", cfg.Calibration.Corners[0])
	}
}

func TestValidateTieredNextEdgePointIDClamping(t *testing.T) {
	cfg := Default()
	cfg.Calibration.NextEdgePointID = 3
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("low next_edge_point_id should be a warning")
	}
	if cfg.Calibration.NextEdgePointID != 100 {
		t.Fatalf("NextEdgePointID = %d, want 100", cfg.Calibration.NextEdgePointID)
	}
}

func TestValidateTieredGainClamping(t *testing.T) {
	cfg := Default()
	cfg.Color.GainR = 5.0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("out-of-range gain should be a warning")
	}
	if cfg.Color.GainR != 2.0 {
		t.Fatalf("GainR = %g, want 2.0 (clamped)", cfg.Color.GainR)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Color.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
	if cfg.Color.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info (defaulted)", cfg.Color.LogLevel)
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestAllErrorsReturnsBoth(t *testing.T) {
	cfg := Default()
	cfg.Video.Width = 0    // fatal
	cfg.Video.FPS = 0      // warning
	result := cfg.ValidateTiered()

	all := result.AllErrors()
	if len(all) < 2 {
		t.Fatalf("AllErrors() returned %d errors, expected at least 2 (fatals + warnings)", len(all))
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("default config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("default config has warnings: %v", result.Warnings)
	}
}

func TestCalibrationRoundTrip(t *testing.T) {
	cfg := Default()
	c := cfg.Calibration.ToCalibration()
	ep := c.AddEdgePoint(0, 0.5, 0.1)
	cfg.Calibration.FromCalibration(c)

	found := false
	for _, e := range cfg.Calibration.EdgePoints {
		if e.ID == ep.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected round-tripped edge point in persisted config")
	}
}
