package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paleobytes/gheval/internal/coord"
	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/store"
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage catalogued sites",
	Long:  "Commands for adding, listing, inspecting, updating, and deleting geoheritage sites.",
}

// -- site add --

var siteAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		in, err := siteInputFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		site, err := st.CreateSite(ctx, in)
		if err != nil {
			return eris.Wrap(err, "site add")
		}

		fmt.Printf("Added %s (%s)\n", site.Name, site.ID)
		return nil
	},
}

// siteInputFromFlags reads the shared site flags. --coords takes any
// recognized coordinate text and overrides --lat/--lng.
func siteInputFromFlags(cmd *cobra.Command, name string) (model.SiteInput, error) {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")

	if text, _ := cmd.Flags().GetString("coords"); text != "" {
		p, ok := coord.Parse(text)
		if !ok {
			return model.SiteInput{}, eris.Errorf("unrecognized coordinate text: %q", text)
		}
		lat, lng = p.Lat, p.Lng
	}

	desc, _ := cmd.Flags().GetString("description")
	addr, _ := cmd.Flags().GetString("address")
	siteType, _ := cmd.Flags().GetString("type")

	return model.SiteInput{
		Name:        name,
		Description: desc,
		Latitude:    lat,
		Longitude:   lng,
		Address:     addr,
		SiteType:    siteType,
	}, nil
}

// -- site list --

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sites",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		siteType, _ := cmd.Flags().GetString("type")
		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")

		sites, err := st.ListSites(ctx, store.SiteFilter{
			SiteType: siteType,
			Query:    query,
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "site list")
		}

		if len(sites) == 0 {
			fmt.Fprintln(os.Stderr, "No sites found.")
			return nil
		}

		formatSiteList(os.Stdout, sites)
		return nil
	},
}

func formatSiteList(w io.Writer, sites []model.Site) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tLAT\tLNG")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.6f\t%.6f\n",
			s.ID, s.Name, s.SiteType, s.Latitude, s.Longitude)
	}
	tw.Flush() //nolint:errcheck
}

// -- site show --

var siteShowCmd = &cobra.Command{
	Use:   "show <site-id>",
	Short: "Show a site with its latest evaluation and media",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		site, err := st.GetSite(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "site show")
		}

		out := struct {
			Site        model.Site         `json:"site"`
			Evaluation  *model.Evaluation  `json:"evaluation,omitempty"`
			Screenshots []model.Screenshot `json:"screenshots,omitempty"`
			Photos      []model.Photo      `json:"photos,omitempty"`
		}{Site: *site}

		if ev, err := st.LatestEvaluation(ctx, site.ID); err == nil {
			out.Evaluation = ev
		}
		out.Screenshots, _ = st.ListScreenshots(ctx, site.ID)
		out.Photos, _ = st.ListPhotos(ctx, site.ID)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// -- site update --

var siteUpdateCmd = &cobra.Command{
	Use:   "update <site-id>",
	Short: "Update a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		site, err := st.GetSite(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "site update")
		}

		// Start from the stored record so unset flags keep their values.
		in := model.SiteInput{
			Name:        site.Name,
			Description: site.Description,
			Latitude:    site.Latitude,
			Longitude:   site.Longitude,
			Address:     site.Address,
			SiteType:    site.SiteType,
		}
		if cmd.Flags().Changed("name") {
			in.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("description") {
			in.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("lat") {
			in.Latitude, _ = cmd.Flags().GetFloat64("lat")
		}
		if cmd.Flags().Changed("lng") {
			in.Longitude, _ = cmd.Flags().GetFloat64("lng")
		}
		if cmd.Flags().Changed("address") {
			in.Address, _ = cmd.Flags().GetString("address")
		}
		if cmd.Flags().Changed("type") {
			in.SiteType, _ = cmd.Flags().GetString("type")
		}

		updated, err := st.UpdateSite(ctx, site.ID, in)
		if err != nil {
			return eris.Wrap(err, "site update")
		}
		fmt.Printf("Updated %s (%s)\n", updated.Name, updated.ID)
		return nil
	},
}

// -- site delete --

var siteDeleteCmd = &cobra.Command{
	Use:   "delete <site-id>",
	Short: "Delete a site and its evaluations and media records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Collect media paths before the rows go away.
		var paths []string
		if shots, err := st.ListScreenshots(ctx, args[0]); err == nil {
			for _, sc := range shots {
				paths = append(paths, sc.FilePath)
			}
		}
		if photos, err := st.ListPhotos(ctx, args[0]); err == nil {
			for _, p := range photos {
				paths = append(paths, p.FilePath)
			}
		}

		if err := st.DeleteSite(ctx, args[0]); err != nil {
			return eris.Wrap(err, "site delete")
		}
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "warning: could not remove %s: %v\n", p, err)
			}
		}

		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{siteAddCmd, siteUpdateCmd} {
		c.Flags().Float64("lat", 0, "latitude in decimal degrees")
		c.Flags().Float64("lng", 0, "longitude in decimal degrees")
		c.Flags().String("coords", "", "coordinate text in any recognized format, overrides --lat/--lng")
		c.Flags().String("description", "", "site description")
		c.Flags().String("address", "", "site address")
		c.Flags().String("type", "", "site type (Geological, Paleontological, ...)")
	}
	siteUpdateCmd.Flags().String("name", "", "site name")

	siteListCmd.Flags().String("type", "", "filter by site type")
	siteListCmd.Flags().String("query", "", "substring match on name and address")
	siteListCmd.Flags().Int("limit", 0, "max number of sites to display")

	siteCmd.AddCommand(siteAddCmd)
	siteCmd.AddCommand(siteListCmd)
	siteCmd.AddCommand(siteShowCmd)
	siteCmd.AddCommand(siteUpdateCmd)
	siteCmd.AddCommand(siteDeleteCmd)
	rootCmd.AddCommand(siteCmd)
}
