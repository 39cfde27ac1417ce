package previewenc

import (
	"bytes"
	"image/jpeg"
	"testing"
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

func TestEncodeProducesDecodableJPEG(t *testing.T) {
	enc := New(85)
	rgb := solidRGB(16, 16, 200, 100, 50)

	data, err := enc.Encode(rgb, 16, 16)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode encoded output: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 16 || bounds.Dy() != 16 {
		t.Fatalf("decoded size = %dx%d, want 16x16", bounds.Dx(), bounds.Dy())
	}
}

func TestEncodeRejectsUndersizedBuffer(t *testing.T) {
	enc := New(85)
	if _, err := enc.Encode(make([]byte, 10), 16, 16); err == nil {
		t.Fatal("Encode with undersized buffer did not error")
	}
}

func TestNewClampsQuality(t *testing.T) {
	if got := New(0).quality; got != 1 {
		t.Errorf("New(0).quality = %d, want 1", got)
	}
	if got := New(500).quality; got != 100 {
		t.Errorf("New(500).quality = %d, want 100", got)
	}
}

func TestSetQualityClamps(t *testing.T) {
	e := New(50)
	e.SetQuality(-5)
	if e.quality != 1 {
		t.Errorf("SetQuality(-5) = %d, want 1", e.quality)
	}
	e.SetQuality(1000)
	if e.quality != 100 {
		t.Errorf("SetQuality(1000) = %d, want 100", e.quality)
	}
}

func TestFramePoolResetsOnResolutionChange(t *testing.T) {
	enc := New(80)
	small := solidRGB(8, 8, 1, 2, 3)
	if _, err := enc.Encode(small, 8, 8); err != nil {
		t.Fatalf("Encode small: %v", err)
	}
	large := solidRGB(32, 32, 4, 5, 6)
	data, err := enc.Encode(large, 32, 32)
	if err != nil {
		t.Fatalf("Encode large: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Fatalf("decoded size = %v, want 32x32", img.Bounds())
	}
}
