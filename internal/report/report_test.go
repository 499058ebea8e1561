package report

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"plate-scanner/internal/calibration"
	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/sampler"
	"plate-scanner/internal/scan"
	"plate-scanner/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type flatFrame struct{ bounds image.Rectangle }

func (f flatFrame) Bounds() image.Rectangle { return f.bounds }

func (f flatFrame) Mean(pimage.View, image.Rectangle) gocv.Scalar {
	return gocv.Scalar{Val1: 20, Val2: 20, Val3: 20}
}

func TestSaveLoad(t *testing.T) {
	anchors := grid.Anchors{
		A1:        geometry.NewPoint2D(10, 10),
		RowEnd:    geometry.NewPoint2D(120, 10),
		ColumnEnd: geometry.NewPoint2D(10, 80),
	}
	lat, err := grid.BuildLattice(grid.Layout96, anchors)
	require.NoError(t, err)

	model := calibration.DemoModel
	m, err := scan.Apply(&model, lat, flatFrame{bounds: image.Rect(0, 0, 100, 200)}, 3)
	require.NoError(t, err)

	dir := t.TempDir()
	imgPath := filepath.Join(dir, "photos", "plate.jpg")
	reportPath := filepath.Join(dir, "plate.scan.json")

	f := New(m, calibration.DemoName, anchors, imgPath, 0xdeadbeef)
	assert.Equal(t, "deadbeef", f.ImageHash)
	require.NoError(t, f.Save(reportPath))

	loaded, err := Load(reportPath)
	require.NoError(t, err)

	assert.Equal(t, Version, loaded.Version)
	assert.Equal(t, calibration.DemoName, loaded.CurveName)
	assert.Equal(t, grid.Layout96, loaded.Layout)
	assert.Equal(t, anchors, loaded.Anchors)
	assert.Equal(t, model, loaded.Model)
	assert.Equal(t, filepath.Join("photos", "plate.jpg"), loaded.ImagePath)
	assert.Equal(t, imgPath, loaded.GetImagePath(reportPath))

	require.Len(t, loaded.Values, 8)
	require.Len(t, loaded.Values[0], 12)
	require.NotNil(t, loaded.Values[0][0])
	assert.InDelta(t, model.Concentration(sampler.Sample{H: 20}), *loaded.Values[0][0], 1e-9)
	assert.Nil(t, loaded.Values[0][11]) // x=120 is past the 100 px frame
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	future := filepath.Join(dir, "future.json")
	require.NoError(t, os.WriteFile(future, []byte(`{"version": 99}`), 0644))
	_, err = Load(future)
	assert.Error(t, err)
}
