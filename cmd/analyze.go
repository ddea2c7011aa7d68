package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a hotspot analysis for one city",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		noStore, _ := cmd.Flags().GetBool("no-store")
		env, err := initPipeline(ctx, "analyze", !noStore)
		if err != nil {
			return err
		}
		defer env.Close()

		city, _ := cmd.Flags().GetString("city")
		maxListings, _ := cmd.Flags().GetInt("max-listings")
		listings, _ := cmd.Flags().GetString("listings")

		req := pipeline.Request{City: city, MaxListings: maxListings, ListingsFile: listings}
		if cmd.Flags().Changed("threshold") {
			th, _ := cmd.Flags().GetFloat64("threshold")
			req.Threshold = &th
		}

		out, err := env.Pipeline.Run(ctx, req)
		if err != nil {
			return err
		}

		formatOutcome(os.Stdout, out)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("city", "nyc", "city code from the city catalogue")
	analyzeCmd.Flags().Float64("threshold", 0, "Premium tier lower price bound; when unset, analysis.premium_threshold is used")
	analyzeCmd.Flags().Int("max-listings", 0, "analyze only the first N listings (0 = config default)")
	analyzeCmd.Flags().String("listings", "", "listings CSV to use instead of the city's configured file")
	analyzeCmd.Flags().Bool("no-store", false, "skip recording the run in the run store")
	rootCmd.AddCommand(analyzeCmd)
}

// formatOutcome writes the run summary, hotspots and top neighborhoods to w.
func formatOutcome(out io.Writer, o *pipeline.Outcome) {
	run := o.Run
	s := run.Summary

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	_, _ = fmt.Fprintf(w, "City:\t%s\n", run.City)
	_, _ = fmt.Fprintf(w, "Threshold:\t$%.0f\n", run.Threshold)
	_, _ = fmt.Fprintf(w, "Listings:\t%d read, %d kept, %d dropped\n",
		o.Cleaning.Read, o.Cleaning.Kept, o.Cleaning.DroppedTotal())
	_, _ = fmt.Fprintf(w, "Analyzed:\t%d\n", s.TotalListings)
	_, _ = fmt.Fprintf(w, "Median price:\t$%.2f\n", s.MedianPrice)

	tiers := make([]string, 0, len(s.ClustersByTier))
	for t := range s.ClustersByTier {
		tiers = append(tiers, t)
	}
	sort.Strings(tiers)
	for _, t := range tiers {
		_, _ = fmt.Fprintf(w, "%s hotspots:\t%d\n", t, s.ClustersByTier[t])
	}
	for _, t := range s.SkippedTiers {
		_, _ = fmt.Fprintf(w, "Skipped:\t%s (too few listings)\n", t)
	}
	if s.TopNeighborhood != "" {
		_, _ = fmt.Fprintf(w, "Top neighborhood:\t%s (%.1f)\n", s.TopNeighborhood, s.TopNeighborhoodScore)
	}
	_ = w.Flush()

	if len(run.Clusters) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "TIER\tCLUSTER\tLISTINGS\tAVG_PRICE\tCENTER")
		for _, c := range run.Clusters {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t$%.2f\t%.5f,%.5f\n",
				c.Tier, c.ClusterID, c.ListingCount, c.AvgPrice, c.CenterLat, c.CenterLon)
		}
		_ = w.Flush()
	}

	if len(run.Neighborhoods) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NEIGHBOURHOOD\tSCORE\tPRICE\tLOCATION\tDEMAND")
		for _, n := range run.Neighborhoods {
			_, _ = fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%.1f\n",
				n.Neighborhood, n.InvestmentScore, n.PriceScore, n.LocationScore, n.DemandScore)
		}
		_ = w.Flush()
	}

	if o.Files != nil {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintf(out, "Workbook: %s\n", o.Files.Workbook)
		_, _ = fmt.Fprintf(out, "GeoJSON:  %s\n", o.Files.GeoJSON)
	}
}
