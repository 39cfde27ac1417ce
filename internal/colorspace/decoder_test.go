package colorspace

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSoftwareDecoderRGB(t *testing.T) {
	const w, h = 4, 4
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 10, A: 255})
		}
	}

	dec := NewSoftwareDecoder()
	rgb, err := dec.Decode(encodeJPEG(t, img), w, h)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rgb) != w*h*3 {
		t.Fatalf("len = %d, want %d", len(rgb), w*h*3)
	}
	// lossy JPEG: allow generous tolerance
	if rgb[0] < 150 {
		t.Fatalf("red channel = %d, expected roughly 200", rgb[0])
	}
}

func TestSoftwareDecoderGrayscale(t *testing.T) {
	const w, h = 4, 4
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 77})
		}
	}

	dec := NewSoftwareDecoder()
	rgb, err := dec.Decode(encodeJPEG(t, img), w, h)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := 0; i < len(rgb); i += 3 {
		if rgb[i] != rgb[i+1] || rgb[i+1] != rgb[i+2] {
			t.Fatalf("pixel %d not grayscale-replicated: %d,%d,%d", i/3, rgb[i], rgb[i+1], rgb[i+2])
		}
	}
}

func TestDecodeFailureWraps(t *testing.T) {
	dec := NewSoftwareDecoder()
	_, err := dec.Decode([]byte("not a jpeg"), 4, 4)
	if err == nil {
		t.Fatal("expected error for garbage input")
	}
}
