// Package previewenc JPEG-encodes packed RGB24 preview frames at a
// configurable quality, reusing encode buffers across frames the way the
// teacher's remote-desktop streaming path pools its frame buffers.
package previewenc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
)

// bufferPool pools bytes.Buffer instances for JPEG encoding, avoiding a
// fresh allocation on every preview frame (encoded at 1/3 capture rate,
// but still on the hot pipeline thread).
var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 2*1024*1024 {
		return // don't pool oversized buffers
	}
	bufferPool.Put(buf)
}

// rgbaPool pools *image.RGBA instances for a single fixed resolution; the
// capture pipeline runs at one negotiated resolution for its whole
// lifetime, so a simple single-slot pool is enough.
type rgbaPool struct {
	mu   sync.Mutex
	pool sync.Pool
	w, h int
}

func (p *rgbaPool) get(w, h int) *image.RGBA {
	p.mu.Lock()
	if p.w == w && p.h == h {
		p.mu.Unlock()
		if v := p.pool.Get(); v != nil {
			return v.(*image.RGBA)
		}
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	p.w, p.h = w, h
	p.pool = sync.Pool{}
	p.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func (p *rgbaPool) put(img *image.RGBA) {
	b := img.Bounds()
	p.mu.Lock()
	match := p.w == b.Dx() && p.h == b.Dy()
	p.mu.Unlock()
	if match {
		p.pool.Put(img)
	}
}

var framePool rgbaPool

// Encoder JPEG-encodes packed RGB24 frames at a fixed quality.
type Encoder struct {
	quality int
}

// New returns an Encoder at the given JPEG quality (1-100, clamped).
func New(quality int) *Encoder {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &Encoder{quality: quality}
}

// SetQuality updates the encode quality for subsequent calls to Encode.
func (e *Encoder) SetQuality(quality int) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	e.quality = quality
}

// Encode converts packed RGB24 rgb (width x height x 3 bytes) into an
// *image.RGBA from the pool, JPEG-encodes it into a pooled buffer, and
// returns a fresh copy of the encoded bytes (the pooled buffer is
// returned to the pool before Encode returns).
func (e *Encoder) Encode(rgb []byte, width, height int) ([]byte, error) {
	if len(rgb) < width*height*3 {
		return nil, fmt.Errorf("previewenc: rgb buffer too small for %dx%d", width, height)
	}

	img := framePool.get(width, height)
	defer framePool.put(img)

	for y := 0; y < height; y++ {
		srcRow := y * width * 3
		dstRow := img.PixOffset(0, y)
		for x := 0; x < width; x++ {
			so := srcRow + x*3
			do := dstRow + x*4
			img.Pix[do+0] = rgb[so+0]
			img.Pix[do+1] = rgb[so+1]
			img.Pix[do+2] = rgb[so+2]
			img.Pix[do+3] = 255
		}
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("previewenc: encode: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
