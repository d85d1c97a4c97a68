package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paleobytes/gheval/internal/export"
	"github.com/paleobytes/gheval/internal/model"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report every site with its latest risk evaluation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.Report(ctx)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No sites found.")
			return nil
		}

		format, _ := cmd.Flags().GetString("format")
		out, closer, err := outputWriter(cmd)
		if err != nil {
			return err
		}
		defer closer()

		switch format {
		case "table":
			formatReport(out, rows)
			return nil
		case "json":
			return export.WriteJSON(out, rows)
		case "csv":
			return export.WriteCSV(out, rows)
		case "xlsx":
			return export.WriteXLSX(out, rows)
		default:
			return eris.Errorf("unknown format %q", format)
		}
	},
}

// outputWriter honors --out; an empty value means stdout.
func outputWriter(cmd *cobra.Command) (io.Writer, func(), error) {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

func formatReport(w io.Writer, rows []model.ReportRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tRISK\tLEVEL\tSHOTS\tPHOTOS")
	for _, r := range rows {
		risk, level := "-", "N/A"
		if r.Evaluation != nil {
			risk = fmt.Sprintf("%d", r.Evaluation.OverallRisk)
			level = string(r.Evaluation.RiskLevel)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.Name, r.SiteType, risk, level, r.ScreenshotCount, r.PhotoCount)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	reportCmd.Flags().String("format", "table", "output format: table, json, csv, xlsx")
	reportCmd.Flags().String("out", "", "write to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
