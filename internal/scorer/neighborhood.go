package scorer

import (
	"sort"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

type group struct {
	name                string
	count               int
	priceSum, reviewSum float64
	distSum             float64
	distCount           int
}

// ScoreNeighborhoods groups listings by neighborhood and returns the ranking
// table sorted by investment score descending. Listings without a
// neighborhood are skipped. Equal scores keep first-seen group order.
func ScoreNeighborhoods(listings []model.AnalyzedListing, w Weights) []model.NeighborhoodStats {
	index := make(map[string]int)
	var groups []*group
	for _, l := range listings {
		if l.Neighborhood == "" {
			continue
		}
		i, ok := index[l.Neighborhood]
		if !ok {
			i = len(groups)
			index[l.Neighborhood] = i
			groups = append(groups, &group{name: l.Neighborhood})
		}
		g := groups[i]
		g.count++
		g.priceSum += l.Price
		g.reviewSum += float64(l.Reviews)
		if l.HasDistance {
			g.distSum += l.DistanceKM
			g.distCount++
		}
	}

	stats := make([]model.NeighborhoodStats, len(groups))
	var maxPrice, maxDist, maxReviews float64
	for i, g := range groups {
		s := model.NeighborhoodStats{
			Neighborhood: g.name,
			ListingCount: g.count,
			AvgPrice:     g.priceSum / float64(g.count),
			AvgReviews:   g.reviewSum / float64(g.count),
		}
		if g.distCount > 0 {
			s.HasDistance = true
			s.AvgDistanceKM = g.distSum / float64(g.distCount)
			maxDist = max(maxDist, s.AvgDistanceKM)
		}
		maxPrice = max(maxPrice, s.AvgPrice)
		maxReviews = max(maxReviews, s.AvgReviews)
		stats[i] = s
	}

	for i := range stats {
		s := &stats[i]
		s.PriceScore = Normalize(s.AvgPrice, maxPrice)
		if s.HasDistance {
			s.LocationScore = round1(100 - Normalize(s.AvgDistanceKM, maxDist))
		}
		s.DemandScore = Normalize(s.AvgReviews, maxReviews)
		s.InvestmentScore = round1(w.Price*s.PriceScore + w.Location*s.LocationScore + w.Demand*s.DemandScore)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].InvestmentScore > stats[j].InvestmentScore
	})
	return stats
}

// Top returns the first n rows, or all rows when n <= 0 or n exceeds the
// table.
func Top(stats []model.NeighborhoodStats, n int) []model.NeighborhoodStats {
	if n <= 0 || n >= len(stats) {
		return stats
	}
	return stats[:n]
}
