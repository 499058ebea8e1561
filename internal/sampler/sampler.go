// Package sampler extracts neighborhood-mean color signals from an image buffer.
package sampler

import (
	"image"
	"math"

	pimage "plate-scanner/internal/image"
	"plate-scanner/pkg/geometry"

	"gocv.io/x/gocv"
)

// Sampling radii in pixels. A square of side 2*radius is averaged around each
// point; denser plates need a smaller radius so neighboring wells don't bleed
// into the sample, sparser targets can afford more noise reduction.
const (
	DefaultCalibrationRadius = 4
	DefaultScanRadius        = 3
)

// Frame is the image a sample is read from.
type Frame interface {
	Bounds() image.Rectangle
	Mean(view pimage.View, r image.Rectangle) gocv.Scalar
}

// Sample holds one neighborhood mean per channel. Each channel is averaged
// over its own value range (H is 0-180, the rest 0-255).
type Sample struct {
	R    float64 `json:"r"`
	G    float64 `json:"g"`
	B    float64 `json:"b"`
	H    float64 `json:"h"`
	S    float64 `json:"s"`
	V    float64 `json:"v"`
	Gray float64 `json:"gray"`
}

// Value returns the signal of one channel.
func (s Sample) Value(ch Channel) float64 {
	switch ch {
	case ChannelR:
		return s.R
	case ChannelG:
		return s.G
	case ChannelB:
		return s.B
	case ChannelH:
		return s.H
	case ChannelS:
		return s.S
	case ChannelV:
		return s.V
	case ChannelGray:
		return s.Gray
	default:
		return math.NaN()
	}
}

// Region returns the pixel square sampled around p: the point is rounded to
// the nearest pixel and [ix-r, ix+r) x [iy-r, iy+r) is clipped to bounds.
// ok is false when nothing of the square is left.
func Region(bounds image.Rectangle, p geometry.Point2D, radius int) (image.Rectangle, bool) {
	if !p.IsFinite() || radius <= 0 {
		return image.Rectangle{}, false
	}
	ix := int(math.RoundToEven(p.X))
	iy := int(math.RoundToEven(p.Y))

	xMin := max(bounds.Min.X, ix-radius)
	xMax := min(bounds.Max.X, ix+radius)
	yMin := max(bounds.Min.Y, iy-radius)
	yMax := min(bounds.Max.Y, iy+radius)

	if xMin >= xMax || yMin >= yMax {
		return image.Rectangle{}, false
	}
	return image.Rect(xMin, yMin, xMax, yMax), true
}

// At samples every channel around p. ok is false when the region clipped to
// empty; no Sample is fabricated in that case.
func At(frame Frame, p geometry.Point2D, radius int) (Sample, bool) {
	r, ok := Region(frame.Bounds(), p, radius)
	if !ok {
		return Sample{}, false
	}

	bgr := frame.Mean(pimage.ViewBGR, r)
	hsv := frame.Mean(pimage.ViewHSV, r)
	gray := frame.Mean(pimage.ViewGray, r)

	return Sample{
		B:    bgr.Val1,
		G:    bgr.Val2,
		R:    bgr.Val3,
		H:    hsv.Val1,
		S:    hsv.Val2,
		V:    hsv.Val3,
		Gray: gray.Val1,
	}, true
}

// Points samples each point in order. Entries that could not be sampled are
// reported with ok=false at the same index.
func Points(frame Frame, points []geometry.Point2D, radius int) []Result {
	results := make([]Result, len(points))
	for i, p := range points {
		s, ok := At(frame, p, radius)
		results[i] = Result{Point: p, Sample: s, OK: ok}
	}
	return results
}

// Result pairs a requested point with its sample.
type Result struct {
	Point  geometry.Point2D
	Sample Sample
	OK     bool
}

// Valid returns the samples of the results that could be read, in order.
func Valid(results []Result) []Sample {
	var out []Sample
	for _, r := range results {
		if r.OK {
			out = append(out, r.Sample)
		}
	}
	return out
}
