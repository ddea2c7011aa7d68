package proximity

import (
	"sort"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// CategoryStats is the price profile of one distance category.
type CategoryStats struct {
	Category    string  `json:"distance_category"`
	Count       int     `json:"count"`
	MeanPrice   float64 `json:"mean"`
	MedianPrice float64 `json:"median"`
}

// Summary groups listings by distance category and returns one row per
// category in bucket order, including empty categories. Listings without a
// distance are ignored; with no distances at all the result is nil.
func Summary(listings []model.AnalyzedListing) []CategoryStats {
	prices := make(map[string][]float64, len(geo.Categories))
	found := false
	for _, l := range listings {
		if !l.HasDistance {
			continue
		}
		found = true
		prices[l.DistanceCategory] = append(prices[l.DistanceCategory], l.Price)
	}
	if !found {
		return nil
	}

	out := make([]CategoryStats, 0, len(geo.Categories))
	for _, c := range geo.Categories {
		p := prices[c]
		cs := CategoryStats{Category: c, Count: len(p)}
		if len(p) > 0 {
			sum := 0.0
			for _, v := range p {
				sum += v
			}
			cs.MeanPrice = sum / float64(len(p))
			cs.MedianPrice = Median(p)
		}
		out = append(out, cs)
	}
	return out
}

// Median returns the median of values without modifying them. The median of
// an empty slice is 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
