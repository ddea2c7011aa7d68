package analysis

import (
	"math"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/proximity"
)

// Summarize computes the headline numbers of a finished run.
func Summarize(r *Result) model.RunSummary {
	s := model.RunSummary{
		TotalListings:  len(r.Listings),
		ClustersByTier: make(map[string]int),
	}

	prices := make([]float64, 0, len(r.Listings))
	for i, l := range r.Listings {
		prices = append(prices, l.Price)
		if i == 0 || l.Price < s.MinPrice {
			s.MinPrice = l.Price
		}
		if l.Price > s.MaxPrice {
			s.MaxPrice = l.Price
		}
		if l.HasDistance {
			s.ListingsWithLandmarks++
		}
	}
	s.MedianPrice = proximity.Median(prices)

	if r.Hotspots != nil {
		for _, t := range r.Hotspots.Tiers {
			s.ClustersByTier[t.Band.Name] = len(t.Clusters)
			if t.Skipped {
				s.SkippedTiers = append(s.SkippedTiers, t.Band.Name)
			}
		}
	}

	if len(r.Neighborhoods) > 0 {
		s.TopNeighborhood = r.Neighborhoods[0].Neighborhood
		s.TopNeighborhoodScore = r.Neighborhoods[0].InvestmentScore
	}
	return s
}

// BoroughStats is the price profile of one borough (neighbourhood group).
type BoroughStats struct {
	Borough     string  `json:"neighbourhood_group"`
	Count       int     `json:"count"`
	MeanPrice   float64 `json:"mean"`
	MedianPrice float64 `json:"median"`
}

// Boroughs groups listings by borough in first-seen order, rounding mean and
// median to cents. Listings without a borough are skipped.
func Boroughs(listings []model.AnalyzedListing) []BoroughStats {
	index := make(map[string]int)
	var names []string
	var prices [][]float64
	for _, l := range listings {
		if l.Borough == "" {
			continue
		}
		i, ok := index[l.Borough]
		if !ok {
			i = len(names)
			index[l.Borough] = i
			names = append(names, l.Borough)
			prices = append(prices, nil)
		}
		prices[i] = append(prices[i], l.Price)
	}

	out := make([]BoroughStats, len(names))
	for i, name := range names {
		sum := 0.0
		for _, p := range prices[i] {
			sum += p
		}
		out[i] = BoroughStats{
			Borough:     name,
			Count:       len(prices[i]),
			MeanPrice:   round2(sum / float64(len(prices[i]))),
			MedianPrice: round2(proximity.Median(prices[i])),
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
