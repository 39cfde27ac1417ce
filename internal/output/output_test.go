package output

import (
	"testing"

	"github.com/instance-id/hypercalibrate/internal/v4l2"
)

func TestEncodePassesThroughRGB24(t *testing.T) {
	w := &Writer{format: v4l2.PixFmtRGB24, width: 2, height: 1}
	rgb := []byte{1, 2, 3, 4, 5, 6}
	got := w.encode(rgb)
	for i := range rgb {
		if got[i] != rgb[i] {
			t.Fatalf("RGB24 passthrough mutated byte %d", i)
		}
	}
}

func TestEncodeSwapsForBGR24(t *testing.T) {
	w := &Writer{format: v4l2.PixFmtBGR24, width: 2, height: 1}
	rgb := []byte{10, 20, 30, 40, 50, 60}
	got := w.encode(rgb)
	want := []byte{30, 20, 10, 60, 50, 40}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEncodeProducesYUYVHalfSize(t *testing.T) {
	w := &Writer{format: v4l2.PixFmtYUYV, width: 4, height: 1}
	rgb := make([]byte, 4*1*3)
	for i := range rgb {
		rgb[i] = 128
	}
	got := w.encode(rgb)
	if len(got) != 4*1*2 {
		t.Fatalf("len = %d, want %d", len(got), 4*1*2)
	}
}

func TestDroppedFrameCounterIncrements(t *testing.T) {
	w := &Writer{}
	w.recordDrop()
	w.recordDrop()
	if got := w.DroppedFrames(); got != 2 {
		t.Fatalf("DroppedFrames = %d, want 2", got)
	}
}
