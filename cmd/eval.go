package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/risk"
	"github.com/paleobytes/gheval/internal/store"
	"github.com/paleobytes/gheval/pkg/osrm"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate degradation risk",
	Long:  "Commands for rating a site's degradation risk criteria and measuring road proximity.",
}

// -- eval show --

var evalShowCmd = &cobra.Command{
	Use:   "show <site-id>",
	Short: "Show a site's evaluation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		evals, err := st.ListEvaluations(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "eval show")
		}
		if len(evals) == 0 {
			fmt.Fprintln(os.Stderr, "No evaluations found.")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(evals)
	},
}

// -- eval set --

var evalSetCmd = &cobra.Command{
	Use:   "set <site-id>",
	Short: "Record an evaluation",
	Long:  "Appends an evaluation. Unset ratings carry over from the latest evaluation; the score and level are recomputed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetSite(ctx, args[0]); err != nil {
			return eris.Wrap(err, "eval set")
		}

		ev := carryForward(ctx, st, args[0])
		if cmd.Flags().Changed("road-proximity") {
			ev.RoadProximity, _ = cmd.Flags().GetInt("road-proximity")
		}
		if cmd.Flags().Changed("accessibility") {
			ev.Accessibility, _ = cmd.Flags().GetInt("accessibility")
		}
		if cmd.Flags().Changed("vegetation") {
			ev.VegetationCover, _ = cmd.Flags().GetInt("vegetation")
		}
		if cmd.Flags().Changed("development") {
			ev.DevelopmentSigns, _ = cmd.Flags().GetInt("development")
		}
		if cmd.Flags().Changed("notes") {
			ev.Notes, _ = cmd.Flags().GetString("notes")
		}
		risk.Evaluate(&ev)

		saved, err := st.CreateEvaluation(ctx, ev)
		if err != nil {
			return eris.Wrap(err, "eval set")
		}

		fmt.Printf("Risk %d (%s)\n", saved.OverallRisk, saved.RiskLevel)
		return nil
	},
}

// -- eval road --

var evalMeasureCmd = &cobra.Command{
	Use:   "measure <site-id>",
	Short: "Measure road distance and rate road proximity",
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
			return eris.Wrap(err, "eval road")
		}

		road := osrm.NewClient(cfg.OSRM.BaseURL, osrm.WithRateLimit(cfg.OSRM.RatePerSec))
		point, err := road.Nearest(ctx, site.Latitude, site.Longitude)
		if err != nil {
			return eris.Wrap(err, "eval road")
		}

		ev := carryForward(ctx, st, site.ID)
		ev.RoadDistance = &point.DistanceM
		ev.RoadSnapLat = &point.Lat
		ev.RoadSnapLng = &point.Lng
		ev.RoadProximity = risk.RoadDistanceScore(point.DistanceM)
		risk.Evaluate(&ev)

		saved, err := st.CreateEvaluation(ctx, ev)
		if err != nil {
			return eris.Wrap(err, "eval road")
		}

		fmt.Printf("Nearest road: %.1f m", point.DistanceM)
		if point.Name != "" {
			fmt.Printf(" (%s)", point.Name)
		}
		fmt.Printf("\nRoad proximity rating: %d\nRisk %d (%s)\n",
			saved.RoadProximity, saved.OverallRisk, saved.RiskLevel)
		return nil
	},
}

// carryForward seeds a new evaluation from the latest one, so a partial
// update keeps the other ratings.
func carryForward(ctx context.Context, st store.Store, siteID string) model.Evaluation {
	ev := model.Evaluation{SiteID: siteID}
	latest, err := st.LatestEvaluation(ctx, siteID)
	if err != nil || latest == nil {
		return ev
	}
	ev.Criteria = latest.Criteria
	ev.Notes = latest.Notes
	ev.RoadDistance = latest.RoadDistance
	ev.RoadSnapLat = latest.RoadSnapLat
	ev.RoadSnapLng = latest.RoadSnapLng
	ev.LandCover = latest.LandCover
	ev.LandCoverRadiusM = latest.LandCoverRadiusM
	ev.LandCoverAnalyzed = latest.LandCoverAnalyzed
	return ev
}

func init() {
	evalSetCmd.Flags().Int("road-proximity", 0, "road proximity rating, 1 (far) to 5 (adjacent)")
	evalSetCmd.Flags().Int("accessibility", 0, "accessibility rating, 1 (hard to reach) to 5 (open access)")
	evalSetCmd.Flags().Int("vegetation", 0, "vegetation cover rating, 1 (dense) to 5 (none)")
	evalSetCmd.Flags().Int("development", 0, "development signs rating, 1 (none) to 5 (heavy)")
	evalSetCmd.Flags().String("notes", "", "free-form notes")

	evalCmd.AddCommand(evalShowCmd)
	evalCmd.AddCommand(evalSetCmd)
	evalCmd.AddCommand(evalMeasureCmd)
	rootCmd.AddCommand(evalCmd)
}
