package scan

import (
	"bytes"
	"encoding/csv"
	"image"
	"strings"
	"testing"

	"plate-scanner/internal/calibration"
	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/sampler"
	"plate-scanner/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// gradientFrame reports a hue equal to the x coordinate of the region center
// divided by ten; the other channels are constant.
type gradientFrame struct {
	bounds image.Rectangle
}

func (f gradientFrame) Bounds() image.Rectangle { return f.bounds }

func (f gradientFrame) Mean(view pimage.View, r image.Rectangle) gocv.Scalar {
	cx := float64(r.Min.X+r.Max.X) / 2
	switch view {
	case pimage.ViewHSV:
		return gocv.Scalar{Val1: cx / 10, Val2: 100, Val3: 200}
	case pimage.ViewBGR:
		return gocv.Scalar{Val1: 10, Val2: 20, Val3: 30}
	default:
		return gocv.Scalar{Val1: 50}
	}
}

func testLattice(t *testing.T) *grid.Lattice {
	t.Helper()
	lat, err := grid.BuildLattice(grid.Layout128, grid.Anchors{
		A1:        geometry.NewPoint2D(100, 100),
		RowEnd:    geometry.NewPoint2D(400, 100),
		ColumnEnd: geometry.NewPoint2D(100, 300),
	})
	require.NoError(t, err)
	return lat
}

func TestApply(t *testing.T) {
	model := &calibration.Model{Channel: sampler.ChannelH, K: 0.1, B: 1}
	frame := gradientFrame{bounds: image.Rect(0, 0, 1000, 1000)}

	m, err := Apply(model, testLattice(t), frame, sampler.DefaultScanRadius)
	require.NoError(t, err)

	require.Len(t, m.Cells, 8)
	for _, row := range m.Cells {
		require.Len(t, row, 16)
	}

	// A1 at x=100 -> hue 10 -> 0.1*10 + 1 = 2.
	a1 := m.At(0, 0)
	assert.Equal(t, "A1", a1.Well)
	assert.True(t, a1.Sampled)
	assert.InDelta(t, 10.0, a1.Signal, 1e-9)
	assert.InDelta(t, 2.0, a1.Concentration, 1e-9)

	// A16 at x=400 -> hue 40 -> 5.
	assert.InDelta(t, 5.0, m.At(0, 15).Concentration, 1e-9)
	assert.Empty(t, m.Unsampled())
	assert.Len(t, m.Exceeds(4.0), 8*6)
}

func TestApplyClampsNegative(t *testing.T) {
	model := &calibration.Model{Channel: sampler.ChannelH, K: -1, B: 5}
	frame := gradientFrame{bounds: image.Rect(0, 0, 1000, 1000)}

	m, err := Apply(model, testLattice(t), frame, 3)
	require.NoError(t, err)

	cell := m.At(0, 15)
	assert.Less(t, cell.Raw, 0.0)
	assert.Equal(t, 0.0, cell.Concentration)
	for _, row := range m.Cells {
		for _, c := range row {
			assert.GreaterOrEqual(t, c.Concentration, 0.0)
		}
	}
}

func TestApplyMarksUnsampleable(t *testing.T) {
	model := &calibration.Model{Channel: sampler.ChannelH, K: 0.1, B: 1}
	// Only the first 250 pixels of width exist: columns beyond x~254 fall off.
	frame := gradientFrame{bounds: image.Rect(0, 0, 250, 1000)}

	m, err := Apply(model, testLattice(t), frame, 3)
	require.NoError(t, err)

	assert.True(t, m.At(0, 7).Sampled)  // x=240
	assert.False(t, m.At(0, 8).Sampled) // x=260
	assert.Equal(t, 0.0, m.At(0, 8).Concentration)
	assert.Len(t, m.Unsampled(), 8*8)

	values := m.Values()
	assert.NotNil(t, values[0][7])
	assert.Nil(t, values[0][8])
}

func TestApplyPrerequisites(t *testing.T) {
	frame := gradientFrame{bounds: image.Rect(0, 0, 100, 100)}
	model := calibration.DemoModel

	_, err := Apply(nil, testLattice(t), frame, 3)
	assert.ErrorIs(t, err, ErrNoActiveModel)

	_, err = Apply(&model, nil, frame, 3)
	assert.ErrorIs(t, err, ErrNoLattice)

	_, err = Apply(&model, testLattice(t), nil, 3)
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestWriteCSV(t *testing.T) {
	model := &calibration.Model{Channel: sampler.ChannelH, K: 0.1, B: 1}
	m, err := Apply(model, testLattice(t), gradientFrame{bounds: image.Rect(0, 0, 250, 1000)}, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 9)

	assert.Equal(t, "Row", records[0][0])
	assert.Equal(t, "1", records[0][1])
	assert.Equal(t, "16", records[0][16])
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H"},
		[]string{records[1][0], records[2][0], records[3][0], records[4][0],
			records[5][0], records[6][0], records[7][0], records[8][0]})

	assert.Equal(t, "2.00", records[1][1])
	assert.Equal(t, Placeholder, records[1][16])
	for _, rec := range records {
		assert.Len(t, rec, 17)
	}
}

func TestWriteTable(t *testing.T) {
	model := &calibration.Model{Channel: sampler.ChannelH, K: 0.1, B: 1}
	m, err := Apply(model, testLattice(t), gradientFrame{bounds: image.Rect(0, 0, 1000, 1000)}, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.WriteTable(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 9)
	assert.Contains(t, lines[0], "Row")
	assert.Contains(t, lines[1], "2.00")
}
