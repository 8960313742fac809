package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/areascope/areascope/internal/model"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Score data completeness against expected category minimums",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		state, st, err := initSession(ctx, "stats")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// With no saved areas the score falls back to live layer data.
		if len(state.Areas()) == 0 {
			dataDir, _ := cmd.Flags().GetString("data")
			if dataDir == "" {
				dataDir = cfg.Layers.DataDir
			}
			if _, err := os.Stat(dataDir); err == nil {
				if err := state.LoadLayerDirectory(dataDir); err != nil {
					return err
				}
			}
		}

		formatQuality(os.Stdout, state.Quality())
		return nil
	},
}

func init() {
	qualityCmd.Flags().String("data", "", "layer data directory (default from config)")
	rootCmd.AddCommand(qualityCmd)
}

// formatQuality writes the overall score, per-category scores, and warnings.
func formatQuality(out io.Writer, dq model.DataQuality) {
	fmt.Fprintf(out, "Overall score: %.0f/100\n\n", dq.OverallScore)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tSCORE\tAVG_COUNT\tEXPECTED_MIN")
	_, _ = fmt.Fprintln(w, "--------\t-----\t---------\t------------")
	for _, cs := range dq.CategoryScores {
		_, _ = fmt.Fprintf(w, "%s\t%.0f\t%.1f\t%d\n", cs.Category, cs.Score, cs.Count, cs.ExpectedMin)
	}
	_ = w.Flush()

	if len(dq.Warnings) > 0 {
		fmt.Fprintln(out)
		for _, warn := range dq.Warnings {
			fmt.Fprintf(out, "[%s] %s\n", warn.Severity, warn.Message)
		}
	}
}
