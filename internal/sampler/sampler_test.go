package sampler

import (
	"encoding/json"
	"image"
	"image/color"
	"math"
	"testing"

	pimage "plate-scanner/internal/image"
	"plate-scanner/pkg/geometry"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// opencvHSV is the HSV of an 8-bit RGB color on OpenCV's scale: H 0-180,
// S and V 0-255.
func opencvHSV(r, g, b uint8) (h, s, v float64) {
	h, s, v = colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsv()
	return h / 2, s * 255, v * 255
}

type fakeFrame struct {
	bounds image.Rectangle
	seen   []image.Rectangle
}

func (f *fakeFrame) Bounds() image.Rectangle { return f.bounds }

func (f *fakeFrame) Mean(view pimage.View, r image.Rectangle) gocv.Scalar {
	f.seen = append(f.seen, r)
	switch view {
	case pimage.ViewBGR:
		return gocv.Scalar{Val1: 1, Val2: 2, Val3: 3}
	case pimage.ViewHSV:
		return gocv.Scalar{Val1: 4, Val2: 5, Val3: 6}
	default:
		return gocv.Scalar{Val1: 7}
	}
}

func TestRegion(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)

	tests := []struct {
		name   string
		p      geometry.Point2D
		radius int
		want   image.Rectangle
		ok     bool
	}{
		{"interior", geometry.NewPoint2D(50, 25), 4, image.Rect(46, 21, 54, 29), true},
		{"rounds to nearest", geometry.NewPoint2D(50.6, 24.4), 3, image.Rect(48, 21, 54, 27), true},
		{"half rounds to even", geometry.NewPoint2D(10.5, 11.5), 2, image.Rect(8, 10, 12, 14), true},
		{"top-left corner", geometry.NewPoint2D(0, 0), 4, image.Rect(0, 0, 4, 4), true},
		{"bottom-right edge", geometry.NewPoint2D(100, 50), 4, image.Rect(96, 46, 100, 50), true},
		{"collapses at edge", geometry.NewPoint2D(-4, 10), 4, image.Rectangle{}, false},
		{"far outside", geometry.NewPoint2D(-500, -500), 4, image.Rectangle{}, false},
		{"beyond far edge", geometry.NewPoint2D(104, 10), 4, image.Rectangle{}, false},
		{"zero radius", geometry.NewPoint2D(10, 10), 0, image.Rectangle{}, false},
		{"nan", geometry.NewPoint2D(math.NaN(), 10), 4, image.Rectangle{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Region(bounds, tt.p, tt.radius)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				assert.True(t, got.In(bounds), "region %v escapes %v", got, bounds)
			}
		})
	}
}

func TestAtMapsViews(t *testing.T) {
	f := &fakeFrame{bounds: image.Rect(0, 0, 40, 40)}

	s, ok := At(f, geometry.NewPoint2D(20, 20), DefaultCalibrationRadius)
	require.True(t, ok)
	assert.Equal(t, Sample{B: 1, G: 2, R: 3, H: 4, S: 5, V: 6, Gray: 7}, s)
	assert.Len(t, f.seen, 3)
}

func TestAtNearEdgesStaysInBounds(t *testing.T) {
	f := &fakeFrame{bounds: image.Rect(0, 0, 30, 20)}

	for _, p := range []geometry.Point2D{
		{X: 0, Y: 0}, {X: 1, Y: 19}, {X: 29.4, Y: 0.2}, {X: 30, Y: 20}, {X: 2, Y: 10},
	} {
		_, ok := At(f, p, 4)
		assert.True(t, ok, "point %v", p)
	}
	for _, r := range f.seen {
		assert.True(t, r.In(f.bounds))
	}
}

func TestAtOutsideReturnsNoSample(t *testing.T) {
	f := &fakeFrame{bounds: image.Rect(0, 0, 30, 20)}

	s, ok := At(f, geometry.NewPoint2D(-1000, 5), 4)
	assert.False(t, ok)
	assert.Equal(t, Sample{}, s)
	assert.Empty(t, f.seen)
}

func TestPointsAndValid(t *testing.T) {
	f := &fakeFrame{bounds: image.Rect(0, 0, 30, 20)}
	results := Points(f, []geometry.Point2D{{X: 5, Y: 5}, {X: -99, Y: 5}, {X: 10, Y: 10}}, 3)

	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.True(t, results[2].OK)
	assert.Len(t, Valid(results), 2)
}

func TestAtOnBuffer(t *testing.T) {
	// Left half teal, right half orange.
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	teal := color.RGBA{R: 0, G: 128, B: 128, A: 255}
	orange := color.RGBA{R: 255, G: 128, B: 0, A: 255}
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			if x < 30 {
				img.SetRGBA(x, y, teal)
			} else {
				img.SetRGBA(x, y, orange)
			}
		}
	}

	buf, err := pimage.NewBuffer(img)
	require.NoError(t, err)
	defer buf.Close()

	s, ok := At(buf, geometry.NewPoint2D(45, 15), DefaultScanRadius)
	require.True(t, ok)

	h, sat, v := opencvHSV(255, 128, 0)
	assert.InDelta(t, 255.0, s.R, 1e-9)
	assert.InDelta(t, 128.0, s.G, 1e-9)
	assert.InDelta(t, 0.0, s.B, 1e-9)
	assert.InDelta(t, h, s.H, 1.0)
	assert.InDelta(t, sat, s.S, 1.0)
	assert.InDelta(t, v, s.V, 1.0)
	assert.InDelta(t, 0.299*255+0.587*128, s.Gray, 1.0)

	left, ok := At(buf, geometry.NewPoint2D(10, 15), DefaultScanRadius)
	require.True(t, ok)
	assert.InDelta(t, 0.0, left.R, 1e-9)
	assert.InDelta(t, 128.0, left.B, 1e-9)
}

func TestSampleValue(t *testing.T) {
	s := Sample{R: 1, G: 2, B: 3, H: 4, S: 5, V: 6, Gray: 7}
	for i, ch := range Channels {
		assert.Equal(t, float64(i+1), s.Value(ch), ch.String())
	}
	assert.True(t, math.IsNaN(s.Value(Channel(42))))
}

func TestChannelText(t *testing.T) {
	ch, err := ParseChannel("gray")
	require.NoError(t, err)
	assert.Equal(t, ChannelGray, ch)

	_, err = ParseChannel("L")
	assert.Error(t, err)

	data, err := json.Marshal(struct {
		Channel Channel `json:"channel"`
	}{ChannelH})
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"H"}`, string(data))

	var decoded struct {
		Channel Channel `json:"channel"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"channel":"S"}`), &decoded))
	assert.Equal(t, ChannelS, decoded.Channel)
}
