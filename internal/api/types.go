package api

import "github.com/instance-id/hypercalibrate/internal/shared"

// PreviewKind selects which preview slot a caller wants, mirroring
// shared.PreviewKind at the contract boundary so HTTP-layer code never
// needs to import the internal shared-state package directly.
type PreviewKind int

const (
	PreviewRaw PreviewKind = iota
	PreviewRectified
)

func (k PreviewKind) toShared() shared.PreviewKind {
	if k == PreviewRectified {
		return shared.PreviewRectified
	}
	return shared.PreviewRaw
}

// VideoSettings is the width/height/fps triple video-settings negotiation
// operates on.
type VideoSettings = shared.VideoSettings

// StatsSnapshot is a point-in-time copy of the pipeline's live counters.
type StatsSnapshot = shared.StatsSnapshot

// PointView is a normalized [0,1] corner or edge-point coordinate as
// exposed to callers.
type PointView struct {
	X, Y float64
}

// EdgePointView is one calibration edge-point landmark.
type EdgePointView struct {
	ID, Edge int
	T        float64
	X, Y     float64
}

// CalibrationView is the full read model of the current calibration plus
// the output size it was built against.
type CalibrationView struct {
	Corners      [4]PointView
	EdgePoints   []EdgePointView
	OutputWidth  int
	OutputHeight int
	Enabled      bool
}

// PointUpdate names one point (a corner, id 0-3, or an existing edge
// point, id >=100) and its new normalized position. ReplacePoints never
// changes which edge a point lives on or creates new ids; it only moves
// points that already exist.
type PointUpdate struct {
	ID   int
	X, Y float64
}

// Resolution is one negotiable capture resolution and the frame rates
// available at it.
type Resolution struct {
	Width, Height int
	FrameRates    []float64
}

// FormatCapability is one pixel format a device supports, with its
// resolutions.
type FormatCapability struct {
	Pixelformat string
	Resolutions []Resolution
}

// DeviceCapabilities is the full set of negotiable formats, resolutions,
// and framerates a capture device reports.
type DeviceCapabilities struct {
	Formats []FormatCapability
}

// supports reports whether v names a width/height/fps combination present
// in the capabilities snapshot: the resolution must appear under some
// format, and the fps must appear in that resolution's frame-rate list
// (within half a frame per second, since drivers report rates as
// rounded fractions).
func (d DeviceCapabilities) supports(v VideoSettings) bool {
	for _, f := range d.Formats {
		for _, r := range f.Resolutions {
			if r.Width != v.Width || r.Height != v.Height {
				continue
			}
			for _, fr := range r.FrameRates {
				if fr >= float64(v.FPS)-0.5 && fr <= float64(v.FPS)+0.5 {
					return true
				}
			}
		}
	}
	return false
}
