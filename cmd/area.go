package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/areascope/areascope/internal/compare"
	"github.com/areascope/areascope/internal/model"
)

var areaCmd = &cobra.Command{
	Use:   "area",
	Short: "Manage saved comparison areas",
	Long:  "Commands for pinning, listing, renaming, reordering, and comparing saved areas.",
}

// -- area add --

var areaAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Pin the given selection as a named comparison area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state, st, err := initSession(ctx, "area")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		selPath, _ := cmd.Flags().GetString("selection")
		if selPath == "" {
			return eris.New("--selection is required")
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
			return eris.Wrap(err, "area add")
		}
		area, err := state.AddArea(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "area add")
		}

		fmt.Printf("Added area %s (%s), %.3f km²\n", area.Name, truncateID(area.ID), area.AreaM2/1e6)
		return nil
	},
}

// -- area list --

var areaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved comparison areas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		state, st, err := initSession(ctx, "area")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		areas := state.SortAreas(sortFlag(cmd))
		if len(areas) == 0 {
			fmt.Fprintln(os.Stderr, "No saved areas.")
			return nil
		}

		formatAreaList(os.Stdout, areas)
		return nil
	},
}

// -- area remove --

var areaRemoveCmd = &cobra.Command{
	Use:   "remove <area-id>",
	Short: "Delete a saved area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state, st, err := initSession(ctx, "area")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		id, err := resolveAreaID(state.Areas(), args[0])
		if err != nil {
			return err
		}
		if err := state.RemoveArea(ctx, id); err != nil {
			return eris.Wrap(err, "area remove")
		}
		fmt.Printf("Removed area %s\n", truncateID(id))
		return nil
	},
}

// -- area rename --

var areaRenameCmd = &cobra.Command{
	Use:   "rename <area-id> <name>",
	Short: "Rename a saved area",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state, st, err := initSession(ctx, "area")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		id, err := resolveAreaID(state.Areas(), args[0])
		if err != nil {
			return err
		}
		if err := state.RenameArea(ctx, id, args[1]); err != nil {
			return eris.Wrap(err, "area rename")
		}
		fmt.Printf("Renamed area %s to %s\n", truncateID(id), args[1])
		return nil
	},
}

// -- area reorder --

var areaReorderCmd = &cobra.Command{
	Use:   "reorder <area-id> <up|down>",
	Short: "Move an area one step in the manual order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir := compare.Direction(args[1])
		if dir != compare.DirectionUp && dir != compare.DirectionDown {
			return eris.Errorf("direction must be up or down, got %q", args[1])
		}

		state, st, err := initSession(ctx, "area")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		id, err := resolveAreaID(state.Areas(), args[0])
		if err != nil {
			return err
		}
		if err := state.ReorderArea(ctx, id, dir); err != nil {
			return eris.Wrap(err, "area reorder")
		}

		formatAreaList(os.Stdout, state.Areas())
		return nil
	},
}

// -- area sort --

var areaSortCmd = &cobra.Command{
	Use:   "sort <manual|name|size>",
	Short: "List areas under a sort strategy without changing the manual order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		strategy := compare.SortStrategy(args[0])
		switch strategy {
		case compare.SortManual, compare.SortName, compare.SortSize:
		default:
			return eris.Errorf("unknown sort strategy %q", args[0])
		}

		state, st, err := initSession(ctx, "area")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		areas := state.SortAreas(strategy)
		if len(areas) == 0 {
			fmt.Fprintln(os.Stderr, "No saved areas.")
			return nil
		}
		formatAreaList(os.Stdout, areas)
		return nil
	},
}

// -- area matrix --

var areaMatrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Show the layer × area comparison matrix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		state, st, err := initSession(ctx, "area")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		displayed := state.SortAreas(sortFlag(cmd))
		if len(displayed) == 0 {
			fmt.Fprintln(os.Stderr, "No saved areas.")
			return nil
		}

		formatMatrix(os.Stdout, state.Matrix(displayed), displayed)
		return nil
	},
}

func init() {
	areaAddCmd.Flags().String("selection", "", "GeoJSON file holding the selection polygon")
	areaAddCmd.Flags().String("data", "", "layer data directory (default from config)")

	areaListCmd.Flags().String("sort", "manual", "sort order (manual, name, size)")
	areaMatrixCmd.Flags().String("sort", "manual", "display order (manual, name, size)")

	areaCmd.AddCommand(areaAddCmd)
	areaCmd.AddCommand(areaListCmd)
	areaCmd.AddCommand(areaRemoveCmd)
	areaCmd.AddCommand(areaRenameCmd)
	areaCmd.AddCommand(areaReorderCmd)
	areaCmd.AddCommand(areaSortCmd)
	areaCmd.AddCommand(areaMatrixCmd)
	rootCmd.AddCommand(areaCmd)
}

func sortFlag(cmd *cobra.Command) compare.SortStrategy {
	s, _ := cmd.Flags().GetString("sort")
	switch compare.SortStrategy(s) {
	case compare.SortName:
		return compare.SortName
	case compare.SortSize:
		return compare.SortSize
	default:
		return compare.SortManual
	}
}

// resolveAreaID accepts a full area id or an unambiguous prefix.
func resolveAreaID(areas []*model.ComparisonArea, arg string) (string, error) {
	var match string
	for _, a := range areas {
		if a.ID == arg {
			return a.ID, nil
		}
		if len(arg) >= 4 && len(a.ID) > len(arg) && a.ID[:len(arg)] == arg {
			if match != "" {
				return "", eris.Errorf("area id prefix %q is ambiguous", arg)
			}
			match = a.ID
		}
	}
	if match == "" {
		return "", eris.Wrapf(compare.ErrAreaNotFound, "%s", arg)
	}
	return match, nil
}

// formatAreaList writes a tabular list of areas in the given order.
func formatAreaList(out io.Writer, areas []*model.ComparisonArea) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tAREA_KM²\tLAYERS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t------\t-------")

	for _, a := range areas {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\t%s\n",
			truncateID(a.ID),
			a.Name,
			a.AreaM2/1e6,
			len(a.Layers),
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatMatrix writes one table per layer group, areas as columns. Cells
// show the layer's count when its recipe has one, falling back to length or
// area. Row maxima are starred.
func formatMatrix(out io.Writer, groups []compare.Group, displayed []*model.ComparisonArea) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := "LAYER"
	for _, a := range displayed {
		header += "\t" + a.Name
	}

	for _, g := range groups {
		_, _ = fmt.Fprintf(w, "[%s]\n", g.Group)
		_, _ = fmt.Fprintln(w, header)
		for _, row := range g.Rows {
			line := row.LayerName
			for _, cell := range row.Cells {
				line += "\t" + matrixCell(cell)
			}
			_, _ = fmt.Fprintln(w, line)
		}
		_, _ = fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func matrixCell(c compare.Cell) string {
	if c.Stats == nil {
		return "-"
	}
	var val, key string
	switch {
	case c.Stats.Count != nil:
		val, key = fmt.Sprintf("%d", *c.Stats.Count), compare.StatCount
	case c.Stats.TotalLength != nil:
		val, key = fmt.Sprintf("%.0fm", *c.Stats.TotalLength), compare.StatTotalLength
	case c.Stats.TotalArea != nil:
		val, key = fmt.Sprintf("%.0fm²", *c.Stats.TotalArea), compare.StatTotalArea
	default:
		return "-"
	}
	if c.Max[key] {
		val += "*"
	}
	return val
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
