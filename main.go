// Package main provides the platescan command line tool.
package main

import (
	"fmt"
	"os"

	"plate-scanner/internal/app"
	"plate-scanner/internal/calibration"
	"plate-scanner/internal/config"
	"plate-scanner/internal/grid"
	"plate-scanner/internal/version"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	flagConfig       string
	flagVerbose      int
	flagLogFile      string
	flagLayout       int
	flagDisplayWidth int
	flagCurves       string

	cfg *config.Config
)

// newRootCmd builds the complete command tree. Flags are bound afresh on
// every call.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "platescan",
		Short:   "Quantify colorimetric well plates from photographs",
		Version: version.String(),
		Long: `platescan reads concentrations off a photographed well plate.

Calibrate a curve from standard wells of known concentration, then scan a
plate by picking three anchor wells (A1, the end of row A and H1).`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "env file with PLATESCAN_* settings (default $PLATESCAN_CONFIG or ./.env)")
	pf.CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (repeatable)")
	pf.StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")
	pf.IntVar(&flagLayout, "layout", 0, "plate layout in wells: 128 or 96")
	pf.IntVar(&flagDisplayWidth, "display-width", 0, "width of the display that --display coordinates refer to")
	pf.StringVar(&flagCurves, "curves", "", "calibration curve store")

	root.AddCommand(newCalibrateCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newLatticeCmd())
	root.AddCommand(newCurvesCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// setup loads configuration, applies flag overrides and configures logging.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.Load(flagConfig)

	flags := cmd.Flags()
	if flags.Changed("layout") {
		cfg.Layout = flagLayout
	}
	if flags.Changed("display-width") {
		cfg.DisplayWidth = flagDisplayWidth
	}
	if flags.Changed("curves") {
		cfg.CurvesFile = flagCurves
	}
	if flags.Changed("log-file") {
		cfg.LogFile = flagLogFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logPath *string
	if cfg.LogFile != "" {
		logPath = &cfg.LogFile
	}
	commonlog.Configure(cfg.LogVerbosity+flagVerbose, logPath)
	return nil
}

func openStore() (*calibration.Store, error) {
	path, err := cfg.CurvesPath()
	if err != nil {
		return nil, err
	}
	return calibration.OpenStore(path)
}

func newSession(imagePath string) (*app.Session, error) {
	s := app.NewSession(cfg)
	if err := s.LoadImage(imagePath); err != nil {
		return nil, err
	}
	return s, nil
}

func plateLayout() grid.Layout {
	return cfg.PlateLayout()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
