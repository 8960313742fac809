package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/areascope/areascope/internal/app"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare multiple selection polygons in one pass",
	Long:  "Reads every selection polygon in --selection-dir, computes its layer statistics, and emits the comparison matrix. Areas are transient and not persisted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("stats"); err != nil {
			return err
		}

		selDir, _ := cmd.Flags().GetString("selection-dir")
		if selDir == "" {
			return eris.New("--selection-dir is required")
		}

		entries, err := os.ReadDir(selDir)
		if err != nil {
			return eris.Wrap(err, "read selection dir")
		}
		var paths []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if ext == ".geojson" || ext == ".json" {
				paths = append(paths, filepath.Join(selDir, e.Name()))
			}
		}
		sort.Strings(paths)
		if len(paths) == 0 {
			return eris.Errorf("no selection files in %s", selDir)
		}

		state := app.New(cfg)
		dataDir, _ := cmd.Flags().GetString("data")
		if dataDir == "" {
			dataDir = cfg.Layers.DataDir
		}
		if err := state.LoadLayerDirectory(dataDir); err != nil {
			return err
		}

		for _, path := range paths {
			polygon, err := loadSelectionPolygon(path)
			if err != nil {
				return eris.Wrapf(err, "%s", filepath.Base(path))
			}
			if _, err := state.SetSelection(ctx, polygon); err != nil {
				return eris.Wrapf(err, "%s", filepath.Base(path))
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if _, err := state.AddArea(ctx, name); err != nil {
				return eris.Wrap(err, "compare")
			}
		}

		displayed := state.Areas()
		matrix := state.Matrix(displayed)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(matrix)
		}
		formatMatrix(os.Stdout, matrix, displayed)
		return nil
	},
}

func init() {
	compareCmd.Flags().String("selection-dir", "", "directory of selection polygon files")
	compareCmd.Flags().String("data", "", "layer data directory (default from config)")
	compareCmd.Flags().Bool("json", false, "emit the matrix as JSON")
	rootCmd.AddCommand(compareCmd)
}
