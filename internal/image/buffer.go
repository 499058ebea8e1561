// Package image provides image loading and the denoised multi-view buffer the
// sampler reads from.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"plate-scanner/pkg/geometry"

	"github.com/cespare/xxhash/v2"
	"github.com/tliron/commonlog"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// MedianKernel is the aperture of the denoise filter applied on load.
const MedianKernel = 3

// ErrDecodeFailure is returned when a path cannot be read or decoded as an image.
var ErrDecodeFailure = errors.New("image could not be decoded")

var log = commonlog.GetLogger("platescan.image")

// View selects one of the co-registered representations of a Buffer.
type View int

const (
	ViewBGR  View = iota // 3 channels: B, G, R
	ViewHSV              // 3 channels: H (0-180), S, V
	ViewGray             // 1 channel
)

func (v View) String() string {
	switch v {
	case ViewBGR:
		return "BGR"
	case ViewHSV:
		return "HSV"
	case ViewGray:
		return "GRAY"
	default:
		return "Unknown"
	}
}

// Buffer holds one loaded photograph as three denoised views sharing the same
// pixel grid. It is immutable after construction; a new photograph gets a new
// Buffer.
type Buffer struct {
	Path string // Original file path ("" for in-memory images)
	Hash uint64 // xxhash64 of the source file bytes

	width  int
	height int
	bgr    gocv.Mat
	hsv    gocv.Mat
	gray   gocv.Mat
}

// Load reads and decodes the image at path and builds its Buffer.
func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, filepath.Base(path), err)
	}

	buf, err := NewBuffer(img)
	if err != nil {
		return nil, err
	}
	buf.Path = path
	buf.Hash = xxhash.Sum64(data)

	log.Infof("loaded %s image %s: %dx%d", format, path, buf.width, buf.height)
	return buf, nil
}

// NewBuffer converts a decoded image into BGR, HSV and GRAY views after a
// median blur that suppresses single-pixel noise.
func NewBuffer(src image.Image) (*Buffer, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecodeFailure)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	raw := gocv.NewMat()
	defer raw.Close()
	gocv.CvtColor(mat, &raw, gocv.ColorRGBAToBGR)

	buf := &Buffer{
		width:  w,
		height: h,
		bgr:    gocv.NewMat(),
		hsv:    gocv.NewMat(),
		gray:   gocv.NewMat(),
	}
	gocv.MedianBlur(raw, &buf.bgr, MedianKernel)
	gocv.CvtColor(buf.bgr, &buf.hsv, gocv.ColorBGRToHSV)
	gocv.CvtColor(buf.bgr, &buf.gray, gocv.ColorBGRToGray)

	return buf, nil
}

// Width returns the image width in pixels.
func (b *Buffer) Width() int {
	return b.width
}

// Height returns the image height in pixels.
func (b *Buffer) Height() int {
	return b.height
}

// Size returns the image dimensions.
func (b *Buffer) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(b.width),
		Height: float64(b.height),
	}
}

// Bounds returns the pixel rectangle shared by all views.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// Mean averages each channel of one view over r. The rectangle is clipped to
// the image; an empty intersection yields a zero Scalar, so callers that need
// to distinguish "no data" must check the region themselves.
func (b *Buffer) Mean(view View, r image.Rectangle) gocv.Scalar {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return gocv.Scalar{}
	}

	m := b.mat(view)
	region := m.Region(r)
	defer region.Close()
	return region.Mean()
}

// CloneView returns a copy of one view that the caller owns and must Close.
func (b *Buffer) CloneView(view View) gocv.Mat {
	m := b.mat(view)
	return m.Clone()
}

func (b *Buffer) mat(view View) gocv.Mat {
	switch view {
	case ViewHSV:
		return b.hsv
	case ViewGray:
		return b.gray
	default:
		return b.bgr
	}
}

// Close releases the OpenCV memory held by the views.
func (b *Buffer) Close() error {
	return errors.Join(b.bgr.Close(), b.hsv.Close(), b.gray.Close())
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
