// Package config loads scanner settings from the environment and an optional
// env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"plate-scanner/internal/calibration"
	"plate-scanner/internal/grid"
	"plate-scanner/internal/sampler"
	"plate-scanner/internal/viewport"

	"github.com/joho/godotenv"
)

const (
	ConstantConfigFilename = ".env"
	ConstantConfigEnv      = "PLATESCAN_CONFIG"

	DefaultDisplayWidth      = viewport.DefaultDisplayWidth
	DefaultCalibrationRadius = sampler.DefaultCalibrationRadius
	DefaultScanRadius        = sampler.DefaultScanRadius
	DefaultLayout            = 128
	DefaultLogVerbosity      = 1
)

type Config struct {
	DisplayWidth      int
	CalibrationRadius int
	ScanRadius        int
	Layout            int // number of wells
	CurvesFile        string
	LogFile           string // "" = stderr
	LogVerbosity      int
}

// Load reads filename (or $PLATESCAN_CONFIG, or ./.env) if it exists and
// builds a Config from the environment. Variables already set in the process
// environment win over the file.
func Load(filename string) *Config {
	if filename == "" {
		filename = getEnv(ConstantConfigEnv, ConstantConfigFilename)
	}
	_ = godotenv.Load(filename)

	return &Config{
		DisplayWidth:      getEnvInt("PLATESCAN_DISPLAY_WIDTH", DefaultDisplayWidth),
		CalibrationRadius: getEnvInt("PLATESCAN_CALIBRATION_RADIUS", DefaultCalibrationRadius),
		ScanRadius:        getEnvInt("PLATESCAN_SCAN_RADIUS", DefaultScanRadius),
		Layout:            getEnvInt("PLATESCAN_LAYOUT", DefaultLayout),
		CurvesFile:        getEnv("PLATESCAN_CURVES_FILE", ""),
		LogFile:           getEnv("PLATESCAN_LOG_FILE", ""),
		LogVerbosity:      getEnvInt("PLATESCAN_LOG_VERBOSITY", DefaultLogVerbosity),
	}
}

func (c *Config) Validate() error {
	if c.DisplayWidth <= 0 {
		return fmt.Errorf("display width must be positive, got %d", c.DisplayWidth)
	}
	if c.CalibrationRadius <= 0 {
		return fmt.Errorf("calibration radius must be positive, got %d", c.CalibrationRadius)
	}
	if c.ScanRadius <= 0 {
		return fmt.Errorf("scan radius must be positive, got %d", c.ScanRadius)
	}
	if _, err := grid.LayoutForWells(c.Layout); err != nil {
		return err
	}
	return nil
}

// PlateLayout returns the configured layout. Call Validate first.
func (c *Config) PlateLayout() grid.Layout {
	l, err := grid.LayoutForWells(c.Layout)
	if err != nil {
		return grid.Layout128
	}
	return l
}

// CurvesPath returns the curve store location, falling back to the per-user
// config directory.
func (c *Config) CurvesPath() (string, error) {
	if c.CurvesFile != "" {
		return c.CurvesFile, nil
	}
	return calibration.DefaultStorePath()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
