package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/areascope/areascope/internal/app"
	"github.com/areascope/areascope/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats <selection.geojson>",
	Short: "Compute layer statistics for a selection polygon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("stats"); err != nil {
			return err
		}

		polygon, err := loadSelectionPolygon(args[0])
		if err != nil {
			return err
		}

		state := app.New(cfg)
		dataDir, _ := cmd.Flags().GetString("data")
		if dataDir == "" {
			dataDir = cfg.Layers.DataDir
		}
		if err := state.LoadLayerDirectory(dataDir); err != nil {
			return err
		}

		if only, _ := cmd.Flags().GetStringSlice("layer"); len(only) > 0 {
			if err := restrictLayers(state, only); err != nil {
				return err
			}
		}

		sel, err := state.SetSelection(ctx, polygon)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"selection":  sel,
				"layers":     layerStatsByID(state),
				"categories": state.CategoryStats(),
			})
		}

		fmt.Printf("Selection area: %.3f km²\n\n", sel.AreaM2/1e6)
		formatLayerStats(os.Stdout, state)
		fmt.Println()
		formatCategoryStats(os.Stdout, state.CategoryStats())
		return nil
	},
}

func init() {
	statsCmd.Flags().String("data", "", "layer data directory (default from config)")
	statsCmd.Flags().StringSlice("layer", nil, "restrict to these layer ids (repeatable)")
	statsCmd.Flags().Bool("json", false, "emit JSON instead of tables")
	rootCmd.AddCommand(statsCmd)
}

// restrictLayers deactivates every layer not named in only.
func restrictLayers(state *app.State, only []string) error {
	want := map[string]bool{}
	for _, id := range only {
		want[id] = true
	}
	for _, lc := range state.Manifest() {
		if err := state.SetLayerActive(lc.ID, want[lc.ID]); err != nil {
			return err
		}
		delete(want, lc.ID)
	}
	for id := range want {
		return eris.Errorf("unknown layer %s", id)
	}
	return nil
}

func layerStatsByID(state *app.State) map[string]*model.LayerStats {
	out := map[string]*model.LayerStats{}
	for _, lc := range state.ActiveLayers() {
		if ld, ok := state.Repository().Get(lc.ID); ok && ld.Stats != nil {
			out[lc.ID] = ld.Stats
		}
	}
	return out
}

// formatLayerStats writes per-layer statistics for all active layers with
// data. Measures outside a layer's recipe print as "-".
func formatLayerStats(out io.Writer, state *app.State) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LAYER\tCOUNT\tDENSITY/KM²\tLENGTH_M\tAREA_M²\tSHARE_%")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-----------\t--------\t-------\t-------")

	for _, lc := range state.ActiveLayers() {
		ld, ok := state.Repository().Get(lc.ID)
		if !ok || ld.Stats == nil {
			continue
		}
		s := ld.Stats
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			lc.Name,
			fmtInt(s.Count),
			fmtFloat(s.Density, 1),
			fmtFloat(s.TotalLength, 0),
			fmtFloat(s.TotalArea, 0),
			fmtFloat(s.AreaShare, 1),
		)
	}
	_ = w.Flush()
}

// formatCategoryStats writes the per-category aggregates.
func formatCategoryStats(out io.Writer, cats []model.CategoryMetrics) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tCOUNT\tDENSITY/KM²\tLAYERS")
	_, _ = fmt.Fprintln(w, "--------\t-----\t-----------\t------")
	for _, c := range cats {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.1f\t%d\n", c.Category, c.Count, c.Density, c.ActiveLayers)
	}
	_ = w.Flush()
}

func fmtInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func fmtFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}
