// Package model defines the records shared by the hotspot analysis stages.
package model

// NoiseLabel is the cluster id of a listing that belongs to no cluster,
// either because it was classified as noise or because its tier was skipped.
const NoiseLabel = -1

// Listing is a cleaned short-term-rental listing. It is read-only once
// ingestion has produced it.
type Listing struct {
	ID           string  `json:"id"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
	Price        float64 `json:"price"`
	Reviews      int     `json:"number_of_reviews"`
	Neighborhood string  `json:"neighbourhood,omitempty"`
	Borough      string  `json:"neighbourhood_group,omitempty"`
}

// AnalyzedListing is a Listing augmented with the fields derived during a run.
// The embedded Listing is never modified.
type AnalyzedListing struct {
	Listing

	// Web Mercator coordinates in meters.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// HasDistance is false when the run had no landmarks; DistanceKM and
	// DistanceCategory are then meaningless.
	DistanceKM       float64 `json:"distance_km"`
	HasDistance      bool    `json:"has_distance"`
	DistanceCategory string  `json:"distance_category,omitempty"`

	Tier      string `json:"tier,omitempty"`
	ClusterID int    `json:"cluster"`
}

// NewAnalyzedListing wraps l with no derived fields set.
func NewAnalyzedListing(l Listing) AnalyzedListing {
	return AnalyzedListing{Listing: l, ClusterID: NoiseLabel}
}

// Landmark is a named point of interest used for proximity scoring.
type Landmark struct {
	Name      string  `json:"name" yaml:"name" mapstructure:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude" mapstructure:"longitude"`
}
