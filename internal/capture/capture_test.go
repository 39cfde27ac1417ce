package capture

import (
	"testing"

	"github.com/instance-id/hypercalibrate/internal/calib"
	"github.com/instance-id/hypercalibrate/internal/previewenc"
	"github.com/instance-id/hypercalibrate/internal/shared"
)

func solidRGB(w, h int, r, g, b byte) []byte {
	buf := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		buf[i*3+0] = r
		buf[i*3+1] = g
		buf[i*3+2] = b
	}
	return buf
}

func TestEncodePreviewsPublishesBothSlots(t *testing.T) {
	state := shared.New(calib.Default(), 16, 16, 16, 16)
	p := &Pipeline{
		state:      state,
		previewEnc: previewenc.New(80),
		srcW:       16, srcH: 16,
		dstW: 16, dstH: 16,
	}

	raw := solidRGB(16, 16, 200, 10, 10)
	rect := solidRGB(16, 16, 10, 200, 10)
	p.encodePreviews(raw, rect)

	if data := state.LatestPreview(shared.PreviewRaw); len(data) == 0 {
		t.Fatal("raw preview slot empty after encode")
	}
	if data := state.LatestPreview(shared.PreviewRectified); len(data) == 0 {
		t.Fatal("rectified preview slot empty after encode")
	}
}

func TestEncodePreviewsLeavesSlotOnFailure(t *testing.T) {
	state := shared.New(calib.Default(), 16, 16, 16, 16)
	state.SetPreview(shared.PreviewRaw, []byte{1, 2, 3})

	p := &Pipeline{
		state:      state,
		previewEnc: previewenc.New(80),
		srcW:       16, srcH: 16,
		dstW: 16, dstH: 16,
	}

	// Undersized raw buffer makes the raw encode fail; the previous slot
	// contents must survive.
	p.encodePreviews(make([]byte, 4), solidRGB(16, 16, 0, 0, 0))

	if data := state.LatestPreview(shared.PreviewRaw); len(data) != 3 {
		t.Fatalf("raw slot = %v, want previous 3 bytes preserved", data)
	}
	if data := state.LatestPreview(shared.PreviewRectified); len(data) == 0 {
		t.Fatal("rectified slot should still have been published")
	}
}
