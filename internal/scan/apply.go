// Package scan evaluates a calibration model over every well of a plate.
package scan

import (
	"errors"

	"plate-scanner/internal/calibration"
	"plate-scanner/internal/grid"
	"plate-scanner/internal/sampler"
	"plate-scanner/pkg/geometry"

	"github.com/tliron/commonlog"
)

var (
	// ErrNoActiveModel is returned when a scan is requested without a model.
	ErrNoActiveModel = errors.New("no calibration model selected")

	// ErrNoLattice is returned when a scan is requested before anchors were set.
	ErrNoLattice = errors.New("no well lattice defined")

	// ErrNoFrame is returned when a scan is requested without an image.
	ErrNoFrame = errors.New("no image loaded")
)

var log = commonlog.GetLogger("platescan.scan")

// Cell is the reading of one well.
type Cell struct {
	Well          string           `json:"well"`
	Point         geometry.Point2D `json:"point"`
	Sampled       bool             `json:"sampled"`       // false: no pixels under the well
	Signal        float64          `json:"signal"`        // channel mean
	Raw           float64          `json:"raw"`           // unclamped model output
	Concentration float64          `json:"concentration"` // reported value, >= 0
}

// Matrix is the Rows x Cols grid of well readings in lattice order.
type Matrix struct {
	Layout grid.Layout
	Model  calibration.Model
	Radius int
	Cells  [][]Cell
}

// Apply samples the model's channel at every lattice point and converts it to
// a concentration. Wells whose sample region falls outside the image are
// marked unsampled rather than given a value.
func Apply(model *calibration.Model, lattice *grid.Lattice, frame sampler.Frame, radius int) (*Matrix, error) {
	if model == nil {
		return nil, ErrNoActiveModel
	}
	if lattice == nil {
		return nil, ErrNoLattice
	}
	if frame == nil {
		return nil, ErrNoFrame
	}

	layout := lattice.Layout
	m := &Matrix{
		Layout: layout,
		Model:  *model,
		Radius: radius,
		Cells:  make([][]Cell, layout.Rows),
	}

	missing := 0
	for r, row := range lattice.Rows() {
		m.Cells[r] = make([]Cell, len(row))
		for c, p := range row {
			cell := Cell{Well: layout.WellName(r, c), Point: p}
			if s, ok := sampler.At(frame, p, radius); ok {
				cell.Sampled = true
				cell.Signal = s.Value(model.Channel)
				cell.Raw = model.Predict(cell.Signal)
				cell.Concentration = model.Concentration(s)
			} else {
				missing++
			}
			m.Cells[r][c] = cell
		}
	}

	if missing > 0 {
		log.Warningf("%d of %d wells could not be sampled", missing, layout.Wells())
	}
	log.Infof("scanned %s with %s", layout, model)
	return m, nil
}

// At returns the cell at row r, column c.
func (m *Matrix) At(r, c int) Cell {
	return m.Cells[r][c]
}

// Values returns the concentrations with nil for unsampled wells.
func (m *Matrix) Values() [][]*float64 {
	out := make([][]*float64, len(m.Cells))
	for r, row := range m.Cells {
		out[r] = make([]*float64, len(row))
		for c, cell := range row {
			if cell.Sampled {
				v := cell.Concentration
				out[r][c] = &v
			}
		}
	}
	return out
}

// Exceeds returns the sampled cells at or above threshold, in lattice order.
func (m *Matrix) Exceeds(threshold float64) []Cell {
	var out []Cell
	for _, row := range m.Cells {
		for _, cell := range row {
			if cell.Sampled && cell.Concentration >= threshold {
				out = append(out, cell)
			}
		}
	}
	return out
}

// Unsampled returns the names of wells without a reading.
func (m *Matrix) Unsampled() []string {
	var out []string
	for _, row := range m.Cells {
		for _, cell := range row {
			if !cell.Sampled {
				out = append(out, cell.Well)
			}
		}
	}
	return out
}
