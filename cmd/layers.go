package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/areascope/areascope/internal/app"
	"github.com/areascope/areascope/internal/layer"
	"github.com/areascope/areascope/internal/model"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Inspect the feature layer manifest",
}

var layersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known layers and their stat recipes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		state := app.New(cfg)

		dataDir, _ := cmd.Flags().GetString("data")
		if dataDir == "" {
			dataDir = cfg.Layers.DataDir
		}
		if _, err := os.Stat(dataDir); err == nil {
			if err := state.LoadLayerDirectory(dataDir); err != nil {
				return err
			}
		}

		formatLayersList(os.Stdout, state)
		return nil
	},
}

var layersShowCmd = &cobra.Command{
	Use:   "show <layer-id>",
	Short: "List a layer's features with display labels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state := app.New(cfg)

		dataDir, _ := cmd.Flags().GetString("data")
		if dataDir == "" {
			dataDir = cfg.Layers.DataDir
		}
		if err := state.LoadLayerDirectory(dataDir); err != nil {
			return err
		}

		ld, ok := state.Repository().Get(args[0])
		if !ok || ld.Features == nil {
			return eris.Errorf("layer %s has no data", args[0])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		formatLayerFeatures(os.Stdout, ld, limit)
		return nil
	},
}

func init() {
	layersListCmd.Flags().String("data", "", "layer data directory (default from config)")
	layersShowCmd.Flags().String("data", "", "layer data directory (default from config)")
	layersShowCmd.Flags().Int("limit", 50, "max number of features to display")
	layersCmd.AddCommand(layersListCmd)
	layersCmd.AddCommand(layersShowCmd)
	rootCmd.AddCommand(layersCmd)
}

// formatLayersList writes the manifest as a table, with feature counts for
// layers that have data loaded.
func formatLayersList(out io.Writer, state *app.State) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tGROUP\tGEOMETRY\tRECIPE\tFEATURES")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t--------\t------\t--------")

	for _, lc := range state.Manifest() {
		features := "-"
		if ld, ok := state.Repository().Get(lc.ID); ok && ld.Features != nil {
			features = fmt.Sprintf("%d", len(ld.Features.Features))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			lc.ID, lc.Name, lc.Group, lc.GeometryType, recipeString(lc.Recipe), features)
	}
	_ = w.Flush()
}

// formatLayerFeatures writes up to limit features with their display labels
// and geometry types.
func formatLayerFeatures(out io.Writer, ld *model.LayerData, limit int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LABEL\tGEOMETRY")
	_, _ = fmt.Fprintln(w, "-----\t--------")

	for i, f := range ld.Features.Features {
		if limit > 0 && i >= limit {
			_, _ = fmt.Fprintf(w, "… %d more\t\n", len(ld.Features.Features)-limit)
			break
		}
		fallback := fmt.Sprintf("feature-%d", i)
		_, _ = fmt.Fprintf(w, "%s\t%s\n", layer.DisplayLabel(f.Properties, fallback), f.Geometry.GeoJSONType())
	}
	_ = w.Flush()
}

func recipeString(r model.StatsRecipe) string {
	var parts []byte
	if r.Count {
		parts = append(parts, 'c')
	}
	if r.Density {
		parts = append(parts, 'd')
	}
	if r.Length {
		parts = append(parts, 'l')
	}
	if r.Area {
		parts = append(parts, 'a')
	}
	if r.AreaShare {
		parts = append(parts, 's')
	}
	if len(parts) == 0 {
		return "-"
	}
	return string(parts)
}
