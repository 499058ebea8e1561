// Package viewport maps between a downscaled display image and the original
// image's pixel space.
package viewport

import (
	"fmt"

	"plate-scanner/pkg/geometry"
)

// DefaultDisplayWidth is the width the presentation layer shrinks photographs to.
const DefaultDisplayWidth = 800

// Viewport relates display coordinates to real image coordinates. Display
// coordinates are a presentation concern only; everything downstream of
// ToReal works in real pixels.
type Viewport struct {
	RealWidth     int
	RealHeight    int
	DisplayWidth  int
	DisplayHeight int
	ScaleX        float64 // real / display along x
	ScaleY        float64 // real / display along y
}

// New fits an image into a fixed display width and keeps its aspect ratio,
// so a single scale factor serves both axes.
func New(realWidth, realHeight, displayWidth int) (Viewport, error) {
	if realWidth <= 0 || realHeight <= 0 || displayWidth <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport %dx%d -> width %d", realWidth, realHeight, displayWidth)
	}
	scale := float64(realWidth) / float64(displayWidth)
	return Viewport{
		RealWidth:     realWidth,
		RealHeight:    realHeight,
		DisplayWidth:  displayWidth,
		DisplayHeight: int(float64(realHeight) / scale),
		ScaleX:        scale,
		ScaleY:        scale,
	}, nil
}

// NewFit stretches an image into an arbitrary display box. The x and y scale
// factors differ when the aspect ratios do.
func NewFit(realWidth, realHeight, displayWidth, displayHeight int) (Viewport, error) {
	if realWidth <= 0 || realHeight <= 0 || displayWidth <= 0 || displayHeight <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport %dx%d -> %dx%d", realWidth, realHeight, displayWidth, displayHeight)
	}
	return Viewport{
		RealWidth:     realWidth,
		RealHeight:    realHeight,
		DisplayWidth:  displayWidth,
		DisplayHeight: displayHeight,
		ScaleX:        float64(realWidth) / float64(displayWidth),
		ScaleY:        float64(realHeight) / float64(displayHeight),
	}, nil
}

// Identity is a viewport whose display space is the real image.
func Identity(realWidth, realHeight int) Viewport {
	return Viewport{
		RealWidth:     realWidth,
		RealHeight:    realHeight,
		DisplayWidth:  realWidth,
		DisplayHeight: realHeight,
		ScaleX:        1,
		ScaleY:        1,
	}
}

// Isotropic reports whether both axes share one scale factor.
func (v Viewport) Isotropic() bool {
	return v.ScaleX == v.ScaleY
}

// Transform returns the display-to-real transform.
func (v Viewport) Transform() geometry.AffineTransform {
	return geometry.Scale(v.ScaleX, v.ScaleY)
}

// ToReal converts a display coordinate to a real image coordinate.
func (v Viewport) ToReal(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X * v.ScaleX, Y: p.Y * v.ScaleY}
}

// ToDisplay converts a real image coordinate to a display coordinate.
func (v Viewport) ToDisplay(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X / v.ScaleX, Y: p.Y / v.ScaleY}
}

// AllToReal converts a batch of display coordinates.
func (v Viewport) AllToReal(points []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = v.ToReal(p)
	}
	return out
}
