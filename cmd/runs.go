package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect analysis run history",
	Long:  "Commands for listing, viewing, and summarizing recorded analysis runs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("runs")
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		city, _ := cmd.Flags().GetString("city")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			City:   city,
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		city, _ := cmd.Flags().GetString("city")
		runs, err := st.ListRuns(ctx, store.RunFilter{City: city, Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (complete, failed)")
	runsListCmd.Flags().String("city", "", "filter by city code")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().String("city", "", "restrict stats to one city")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total       int
	Complete    int
	Failed      int
	Cities      int
	AvgClusters float64
	AvgListings float64
}

// computeRunStats computes aggregate statistics from a list of runs. The
// averages cover complete runs only.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	cities := make(map[string]struct{})
	var clusters, listings int
	for _, r := range runs {
		cities[r.City] = struct{}{}
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			for _, n := range r.Summary.ClustersByTier {
				clusters += n
			}
			listings += r.Summary.TotalListings
		case model.RunStatusFailed:
			s.Failed++
		}
	}
	s.Cities = len(cities)

	if s.Complete > 0 {
		s.AvgClusters = float64(clusters) / float64(s.Complete)
		s.AvgListings = float64(listings) / float64(s.Complete)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCITY\tTHRESHOLD\tSTATUS\tLISTINGS\tCLUSTERS\tTOP_NEIGHBOURHOOD\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t------\t--------\t--------\t-----------------\t-------")

	for _, r := range runs {
		clusters := 0
		for _, n := range r.Summary.ClustersByTier {
			clusters += n
		}
		top := r.Summary.TopNeighborhood
		if r.Status == model.RunStatusFailed {
			top = r.Error
		}
		top = truncateText(top, 30)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.City,
			r.Threshold,
			r.Status,
			r.Summary.TotalListings,
			clusters,
			top,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Cities:\t%d\n", s.Cities)
	if s.Complete > 0 {
		_, _ = fmt.Fprintf(w, "Avg hotspots:\t%.1f\n", s.AvgClusters)
		_, _ = fmt.Fprintf(w, "Avg listings:\t%.0f\n", s.AvgListings)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateText shortens s to at most limit runes, ending in "..." when cut.
func truncateText(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
