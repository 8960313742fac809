package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/areascope/areascope/internal/model"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [area-id]",
	Short: "Compute derived urban-form metrics",
	Long:  "Computes mix diversity, intersection density, and accessibility for a saved area, or for a fresh selection when --selection is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state, st, err := initSession(ctx, "stats")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var areaID string
		if len(args) == 1 {
			id, err := resolveAreaID(state.Areas(), args[0])
			if err != nil {
				return err
			}
			areaID = id
		} else {
			selPath, _ := cmd.Flags().GetString("selection")
			if selPath == "" {
				return eris.New("an area id or --selection is required")
			}
			polygon, err := loadSelectionPolygon(selPath)
			if err != nil {
				return err
			}

			dataDir, _ := cmd.Flags().GetString("data")
			if dataDir == "" {
				dataDir = cfg.Layers.DataDir
			}
			if err := state.LoadLayerDirectory(dataDir); err != nil {
				return err
			}
			if _, err := state.SetSelection(ctx, polygon); err != nil {
				return eris.Wrap(err, "metrics")
			}
		}

		dm, err := state.DerivedMetrics(areaID)
		if err != nil {
			return eris.Wrap(err, "metrics")
		}
		formatMetrics(os.Stdout, dm)
		return nil
	},
}

func init() {
	metricsCmd.Flags().String("selection", "", "GeoJSON file holding a selection polygon")
	metricsCmd.Flags().String("data", "", "layer data directory (default from config)")
	rootCmd.AddCommand(metricsCmd)
}

func formatMetrics(out io.Writer, dm model.DerivedMetrics) {
	fmt.Fprintf(out, "Mix diversity:        %.3f\n", dm.MixDiversity)
	fmt.Fprintf(out, "Intersection density: %.1f /km²\n", dm.IntersectionDensity)
	fmt.Fprintf(out, "Accessibility:        %.1f\n", dm.Accessibility)
}
