// Package report provides scan report files and their persistence.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"plate-scanner/internal/calibration"
	"plate-scanner/internal/grid"
	"plate-scanner/internal/scan"
)

// Version is the current report file format version.
const Version = 1

// File is a saved scan (.scan.json): what was measured, with which curve and
// where on the photograph.
type File struct {
	Version   int               `json:"version"`
	Created   time.Time         `json:"created"`
	ImagePath string            `json:"image,omitempty"` // relative to the report file when possible
	ImageHash string            `json:"image_xxhash,omitempty"`
	CurveName string            `json:"curve,omitempty"`
	Layout    grid.Layout       `json:"layout"`
	Anchors   grid.Anchors      `json:"anchors"`
	Model     calibration.Model `json:"model"`
	Radius    int               `json:"radius"`
	Values    [][]*float64      `json:"values"` // null = well could not be sampled
}

// New builds a report for a finished scan read with the named curve.
func New(m *scan.Matrix, curveName string, anchors grid.Anchors, imagePath string, imageHash uint64) *File {
	f := &File{
		Version:   Version,
		Created:   time.Now(),
		ImagePath: imagePath,
		CurveName: curveName,
		Layout:    m.Layout,
		Anchors:   anchors,
		Model:     m.Model,
		Radius:    m.Radius,
		Values:    m.Values(),
	}
	if imageHash != 0 {
		f.ImageHash = strconv.FormatUint(imageHash, 16)
	}
	return f
}

// Load loads a report from a file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	if f.Version > Version {
		return nil, fmt.Errorf("report %s has unsupported version %d", path, f.Version)
	}
	return &f, nil
}

// Save writes the report to path, storing the image path relative to it.
func (f *File) Save(path string) error {
	if f.ImagePath != "" && filepath.IsAbs(f.ImagePath) {
		if rel, err := filepath.Rel(filepath.Dir(path), f.ImagePath); err == nil {
			f.ImagePath = rel
		}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetImagePath returns the absolute path to the scanned image.
func (f *File) GetImagePath(reportPath string) string {
	if f.ImagePath == "" {
		return ""
	}
	if filepath.IsAbs(f.ImagePath) {
		return f.ImagePath
	}
	return filepath.Join(filepath.Dir(reportPath), f.ImagePath)
}
