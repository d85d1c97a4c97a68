package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paleobytes/gheval/internal/export"
	"github.com/paleobytes/gheval/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalogue to GIS and spreadsheet formats",
}

// -- export geojson --

var exportGeoJSONCmd = &cobra.Command{
	Use:   "geojson <out.geojson>",
	Short: "Export sites as a GeoJSON FeatureCollection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sites, err := st.ListSites(ctx, store.SiteFilter{})
		if err != nil {
			return eris.Wrap(err, "export geojson")
		}

		out, closer, err := createFile(args[0])
		if err != nil {
			return err
		}
		defer closer()

		if err := export.WriteGeoJSON(out, sites); err != nil {
			return err
		}
		fmt.Printf("Wrote %d site(s) to %s\n", len(sites), args[0])
		return nil
	},
}

// -- export shapefile --

var exportShapefileCmd = &cobra.Command{
	Use:   "shapefile <out.shp>",
	Short: "Export sites as an ESRI point shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sites, err := st.ListSites(ctx, store.SiteFilter{})
		if err != nil {
			return eris.Wrap(err, "export shapefile")
		}

		if err := export.WriteShapefile(args[0], sites); err != nil {
			return err
		}
		fmt.Printf("Wrote %d site(s) to %s\n", len(sites), args[0])
		return nil
	},
}

// -- export csv / xlsx --

var exportCSVCmd = &cobra.Command{
	Use:   "csv <out.csv>",
	Short: "Export the report as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return exportReport(cmd, args[0], "csv") },
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx <out.xlsx>",
	Short: "Export the report as an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return exportReport(cmd, args[0], "xlsx") },
}

func exportReport(cmd *cobra.Command, path, format string) error {
	ctx := cmd.Context()

	_, st, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	rows, err := st.Report(ctx)
	if err != nil {
		return eris.Wrap(err, "export "+format)
	}

	out, closer, err := createFile(path)
	if err != nil {
		return err
	}
	defer closer()

	switch format {
	case "csv":
		err = export.WriteCSV(out, rows)
	case "xlsx":
		err = export.WriteXLSX(out, rows)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d row(s) to %s\n", len(rows), path)
	return nil
}

func createFile(path string) (*os.File, func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

func init() {
	exportCmd.AddCommand(exportGeoJSONCmd)
	exportCmd.AddCommand(exportShapefileCmd)
	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportXLSXCmd)
	rootCmd.AddCommand(exportCmd)
}
