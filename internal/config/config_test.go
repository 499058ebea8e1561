package config

import (
	"os"
	"path/filepath"
	"testing"

	"plate-scanner/internal/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	ConstantConfigEnv,
	"PLATESCAN_DISPLAY_WIDTH",
	"PLATESCAN_CALIBRATION_RADIUS",
	"PLATESCAN_SCAN_RADIUS",
	"PLATESCAN_LAYOUT",
	"PLATESCAN_CURVES_FILE",
	"PLATESCAN_LOG_FILE",
	"PLATESCAN_LOG_VERBOSITY",
}

// clearEnv unsets every key for the duration of the test; t.Setenv restores
// the previous values afterwards.
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, DefaultDisplayWidth, cfg.DisplayWidth)
	assert.Equal(t, DefaultCalibrationRadius, cfg.CalibrationRadius)
	assert.Equal(t, DefaultScanRadius, cfg.ScanRadius)
	assert.Equal(t, DefaultLayout, cfg.Layout)
	assert.Equal(t, DefaultLogVerbosity, cfg.LogVerbosity)
	assert.Empty(t, cfg.CurvesFile)
	assert.Empty(t, cfg.LogFile)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, grid.Layout128, cfg.PlateLayout())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "platescan.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"PLATESCAN_LAYOUT=96\nPLATESCAN_SCAN_RADIUS=2\nPLATESCAN_CURVES_FILE=/tmp/curves.json\n"), 0644))

	cfg := Load(path)
	assert.Equal(t, 96, cfg.Layout)
	assert.Equal(t, 2, cfg.ScanRadius)
	assert.Equal(t, grid.Layout96, cfg.PlateLayout())

	curves, err := cfg.CurvesPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/curves.json", curves)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLATESCAN_DISPLAY_WIDTH", "640")

	path := filepath.Join(t.TempDir(), "platescan.env")
	require.NoError(t, os.WriteFile(path, []byte("PLATESCAN_DISPLAY_WIDTH=1024\n"), 0644))

	cfg := Load(path)
	assert.Equal(t, 640, cfg.DisplayWidth)
}

func TestInvalidIntegerFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLATESCAN_CALIBRATION_RADIUS", "wide")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, DefaultCalibrationRadius, cfg.CalibrationRadius)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"96 wells", func(c *Config) { c.Layout = 96 }, false},
		{"zero width", func(c *Config) { c.DisplayWidth = 0 }, true},
		{"negative calibration radius", func(c *Config) { c.CalibrationRadius = -1 }, true},
		{"zero scan radius", func(c *Config) { c.ScanRadius = 0 }, true},
		{"384 wells", func(c *Config) { c.Layout = 384 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DisplayWidth:      DefaultDisplayWidth,
				CalibrationRadius: DefaultCalibrationRadius,
				ScanRadius:        DefaultScanRadius,
				Layout:            DefaultLayout,
			}
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
