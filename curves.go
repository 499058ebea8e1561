package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"plate-scanner/internal/calibration"

	"github.com/spf13/cobra"
)

func newCurvesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curves",
		Short: "Manage saved calibration curves",
	}
	cmd.AddCommand(newCurvesListCmd())
	cmd.AddCommand(newCurvesShowCmd())
	cmd.AddCommand(newCurvesDeleteCmd())
	return cmd
}

func newCurvesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved curves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCHANNEL\tK\tB\tR²")
			names := store.Names()
			if !containsName(names, calibration.DemoName) {
				names = append([]string{calibration.DemoName}, names...)
			}
			for _, name := range names {
				m, err := store.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\n", name, m.Channel, m.K, m.B, m.R2)
			}
			return tw.Flush()
		},
	}
}

func newCurvesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a curve as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			m, err := store.Get(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		},
	}
}

func newCurvesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved curve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if !store.Delete(args[0]) {
				return fmt.Errorf("%w: %q", calibration.ErrCurveNotFound, args[0])
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return nil
		},
	}
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
