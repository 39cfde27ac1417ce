package warp

import (
	"sync"

	"github.com/instance-id/hypercalibrate/internal/workerpool"
)

// Apply warps src (srcW x srcH, channels-per-pixel interleaved) into dst
// (t.Width x t.Height, same channel count) using t's LUT. The destination
// is split into numWorkers disjoint row bands, each submitted to pool as
// one task; no synchronization between bands is required since each
// writes a disjoint slice of dst. If the pool rejects a band (queue full)
// it runs inline so no rows are ever dropped.
func Apply(pool *workerpool.Pool, numWorkers int, t *Transform, src []byte, srcW, srcH, channels int, dst []byte, nearest bool) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > t.Height {
		numWorkers = t.Height
	}

	rowsPerBand := (t.Height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for band := 0; band < numWorkers; band++ {
		y0 := band * rowsPerBand
		y1 := y0 + rowsPerBand
		if y1 > t.Height {
			y1 = t.Height
		}
		if y0 >= y1 {
			continue
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			warpRows(t, src, srcW, srcH, channels, dst, y0, y1, nearest)
		}
		if pool == nil || !pool.Submit(task) {
			wg.Done()
			warpRows(t, src, srcW, srcH, channels, dst, y0, y1, nearest)
		}
	}
	wg.Wait()
}

func warpRows(t *Transform, src []byte, srcW, srcH, channels int, dst []byte, y0, y1 int, nearest bool) {
	pixel := make([]byte, channels)
	for y := y0; y < y1; y++ {
		rowOff := y * t.Width * channels
		for x := 0; x < t.Width; x++ {
			sx, sy := t.At(x, y)
			if nearest {
				sampleNearest(src, srcW, srcH, channels, sx, sy, pixel)
			} else {
				sampleBilinear(src, srcW, srcH, channels, sx, sy, pixel)
			}
			copy(dst[rowOff+x*channels:rowOff+(x+1)*channels], pixel)
		}
	}
}
