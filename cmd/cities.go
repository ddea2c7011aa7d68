package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/config"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the cities in the city catalogue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := config.LoadCatalog(cfg.CitiesFile)
		if err != nil {
			return err
		}
		formatCities(os.Stdout, catalog.List(), cfg.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(citiesCmd)
}

func formatCities(out io.Writer, cities []config.City, dataDir string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tLANDMARKS\tLISTINGS")
	for _, c := range cities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.Code, c.Name, len(c.Landmarks), c.ListingsPath(dataDir))
	}
	_ = w.Flush()
}
