package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/ocr"
	"github.com/paleobytes/gheval/internal/pdfimport"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import sites from external documents",
}

var importPDFCmd = &cobra.Command{
	Use:   "pdf <pdf-or-dir> [more...]",
	Short: "Import sites from coordinates found in PDF documents",
	Long:  "Extracts text from PDFs, scans it for coordinates, and catalogues each distinct coordinate as a site. Directories are searched recursively.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		siteType, _ := cmd.Flags().GetString("type")
		workers, _ := cmd.Flags().GetInt("max-concurrent")
		if workers == 0 {
			workers = cfg.Import.MaxConcurrent
		}

		extractor, err := ocr.NewExtractor(cfg.OCR, cfg.Import.MistralKey)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		importer := pdfimport.New(extractor, cfg.Import.ContextChars)
		batch, err := importer.ExtractBatch(ctx, args, workers)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		for _, fe := range batch.Errors {
			fmt.Fprintf(os.Stderr, "failed: %s: %v\n", fe.Path, fe.Err)
		}
		if batch.Found() == 0 {
			fmt.Fprintln(os.Stderr, "No coordinates found.")
			return nil
		}

		formatCandidates(os.Stdout, batch)

		if dryRun {
			fmt.Printf("\nDry run: %d candidate(s) not imported.\n", batch.Found())
			return nil
		}

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var sites []model.Site
		for _, file := range batch.Files {
			for _, c := range file.Candidates {
				in := c.SiteInput(siteType)
				sites = append(sites, model.Site{
					Name:        in.Name,
					Description: in.Description,
					Latitude:    in.Latitude,
					Longitude:   in.Longitude,
					SiteType:    in.SiteType,
				})
			}
		}

		n, err := st.ImportSites(ctx, sites)
		if err != nil {
			return eris.Wrap(err, "import")
		}
		fmt.Printf("\nImported %d site(s).\n", n)
		return nil
	},
}

func formatCandidates(w io.Writer, batch *pdfimport.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tPAGE\tNAME\tLAT\tLNG")
	for _, file := range batch.Files {
		for _, c := range file.Candidates {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.6f\t%.6f\n",
				filepath.Base(file.Path), c.Page, c.Name, c.Latitude, c.Longitude)
		}
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	importPDFCmd.Flags().Bool("dry-run", false, "list candidates without importing")
	importPDFCmd.Flags().String("type", "Paleontological", "site type assigned to imported sites")
	importPDFCmd.Flags().Int("max-concurrent", 0, "PDFs processed in parallel (0 uses import.max_concurrent)")

	importCmd.AddCommand(importPDFCmd)
	rootCmd.AddCommand(importCmd)
}
