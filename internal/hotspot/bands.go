// Package hotspot partitions listings into price tiers and finds dense
// spatial clusters inside each tier.
package hotspot

import (
	"fmt"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// Tier names.
const (
	TierPremium      = "Premium"
	TierLuxury       = "Luxury"
	TierUltraLuxury  = "Ultra-Luxury"
	DefaultThreshold = 200.0

	// DefaultMinListings is the partition size below which a tier is not
	// clustered at all.
	DefaultMinListings = 10
)

// DefaultBands returns the standard tier table. The Premium lower bound is
// the caller's threshold; Ultra-Luxury ends at 5001 so a 5000 price is
// included.
func DefaultBands(threshold float64) []model.PriceBand {
	return []model.PriceBand{
		{Name: TierPremium, Min: threshold, Max: 1000, EpsMeters: 300, MinPts: 10, MinListings: DefaultMinListings},
		{Name: TierLuxury, Min: 1000, Max: 2500, EpsMeters: 500, MinPts: 6, MinListings: DefaultMinListings},
		{Name: TierUltraLuxury, Min: 2500, Max: 5001, EpsMeters: 700, MinPts: 3, MinListings: DefaultMinListings},
	}
}

// ValidateBands checks that bands are named uniquely, ordered, contiguous and
// carry usable clustering parameters.
func ValidateBands(bands []model.PriceBand) error {
	if len(bands) == 0 {
		return model.NewValidationError("bands", nil, "at least one price band is required")
	}
	seen := make(map[string]struct{}, len(bands))
	for i, b := range bands {
		field := fmt.Sprintf("bands[%d]", i)
		if b.Name == "" {
			return model.NewValidationError(field+".name", nil, "must not be empty")
		}
		if _, dup := seen[b.Name]; dup {
			return model.NewValidationError(field+".name", b.Name, "duplicate band name")
		}
		seen[b.Name] = struct{}{}

		if !(b.Min < b.Max) {
			return model.NewValidationError(field+".min", b.Min, fmt.Sprintf("must be below max %v", b.Max))
		}
		if i > 0 && b.Min != bands[i-1].Max {
			return model.NewValidationError(field+".min", b.Min, fmt.Sprintf("must equal previous band max %v", bands[i-1].Max))
		}
		if !(b.EpsMeters > 0) {
			return model.NewValidationError(field+".eps_meters", b.EpsMeters, "must be > 0")
		}
		if b.MinPts < 1 {
			return model.NewValidationError(field+".min_pts", b.MinPts, "must be >= 1")
		}
		if b.MinListings < 0 {
			return model.NewValidationError(field+".min_listings", b.MinListings, "must be >= 0")
		}
	}
	return nil
}

// BandFor returns the index of the band whose [Min, Max) range contains
// price.
func BandFor(bands []model.PriceBand, price float64) (int, bool) {
	for i, b := range bands {
		if b.Contains(price) {
			return i, true
		}
	}
	return -1, false
}
