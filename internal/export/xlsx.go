package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/analysis"
)

// Sheet names of the run workbook.
const (
	SheetSummary       = "Summary"
	SheetNeighborhoods = "Neighborhoods"
	SheetDistance      = "Distance"
	SheetBoroughs      = "Boroughs"
)

// WriteWorkbook writes one sheet per cluster tier plus summary, neighborhood,
// distance and borough sheets.
func WriteWorkbook(path string, res *analysis.Result) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	s := res.Summary
	addKV(summary, "city", res.City)
	addKVFloat(summary, "premium_threshold", res.Threshold)
	addKVInt(summary, "total_listings", s.TotalListings)
	addKVFloat(summary, "median_price", s.MedianPrice)
	addKVFloat(summary, "min_price", s.MinPrice)
	addKVFloat(summary, "max_price", s.MaxPrice)
	addKVInt(summary, "listings_with_landmarks", s.ListingsWithLandmarks)
	for _, t := range res.Hotspots.Tiers {
		addKVInt(summary, KindForTier(t.Band.Name), len(t.Clusters))
	}
	addKV(summary, "top_neighborhood", s.TopNeighborhood)
	addKVFloat(summary, "top_neighborhood_score", s.TopNeighborhoodScore)

	for _, t := range res.Hotspots.Tiers {
		sh, err := f.AddSheet(sheetName(t.Band.Name))
		if err != nil {
			return eris.Wrapf(err, "xlsx: add %s sheet", t.Band.Name)
		}
		addHeader(sh, "cluster_id", "center_lat", "center_lon", "listing_count", "avg_price", "max_price", "total_value")
		for _, c := range t.Clusters {
			row := sh.AddRow()
			row.AddCell().SetInt(c.ClusterID)
			row.AddCell().SetFloat(c.CenterLat)
			row.AddCell().SetFloat(c.CenterLon)
			row.AddCell().SetInt(c.ListingCount)
			row.AddCell().SetFloat(c.AvgPrice)
			row.AddCell().SetFloat(c.MaxPrice)
			row.AddCell().SetFloat(c.TotalValue)
		}
	}

	hoods, err := f.AddSheet(SheetNeighborhoods)
	if err != nil {
		return eris.Wrap(err, "xlsx: add neighborhoods sheet")
	}
	addHeader(hoods, "neighbourhood", "price", "listing_count", "distance_km", "number_of_reviews",
		"price_score", "location_score", "demand_score", "investment_score")
	for _, n := range res.Neighborhoods {
		row := hoods.AddRow()
		row.AddCell().SetString(n.Neighborhood)
		row.AddCell().SetFloat(n.AvgPrice)
		row.AddCell().SetInt(n.ListingCount)
		if n.HasDistance {
			row.AddCell().SetFloat(n.AvgDistanceKM)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloat(n.AvgReviews)
		row.AddCell().SetFloat(n.PriceScore)
		row.AddCell().SetFloat(n.LocationScore)
		row.AddCell().SetFloat(n.DemandScore)
		row.AddCell().SetFloat(n.InvestmentScore)
	}

	dist, err := f.AddSheet(SheetDistance)
	if err != nil {
		return eris.Wrap(err, "xlsx: add distance sheet")
	}
	addHeader(dist, "distance_category", "count", "mean", "median")
	for _, d := range res.Distance {
		row := dist.AddRow()
		row.AddCell().SetString(d.Category)
		row.AddCell().SetInt(d.Count)
		row.AddCell().SetFloat(d.MeanPrice)
		row.AddCell().SetFloat(d.MedianPrice)
	}

	boroughs, err := f.AddSheet(SheetBoroughs)
	if err != nil {
		return eris.Wrap(err, "xlsx: add boroughs sheet")
	}
	addHeader(boroughs, "neighbourhood_group", "count", "mean", "median")
	for _, b := range res.Boroughs {
		row := boroughs.AddRow()
		row.AddCell().SetString(b.Borough)
		row.AddCell().SetInt(b.Count)
		row.AddCell().SetFloat(b.MeanPrice)
		row.AddCell().SetFloat(b.MedianPrice)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "xlsx: create dir for %s", path)
	}
	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

// ReadSheet returns every row of the named sheet as strings.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", name)
	}
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// sheetName trims a tier name to the 31 character sheet name limit.
func sheetName(tier string) string {
	name := tier + " Clusters"
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func addHeader(sh *xlsx.Sheet, cols ...string) {
	row := sh.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}

func addKV(sh *xlsx.Sheet, key, value string) {
	row := sh.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetString(value)
}

func addKVFloat(sh *xlsx.Sheet, key string, value float64) {
	row := sh.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetFloat(value)
}

func addKVInt(sh *xlsx.Sheet, key string, value int) {
	row := sh.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetInt(value)
}
