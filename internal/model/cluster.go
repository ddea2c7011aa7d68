package model

// PriceBand configures one price tier: the half-open price range [Min, Max)
// and the density-clustering parameters used inside it.
type PriceBand struct {
	Name        string  `json:"name" yaml:"name" mapstructure:"name"`
	Min         float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max         float64 `json:"max" yaml:"max" mapstructure:"max"`
	EpsMeters   float64 `json:"eps_meters" yaml:"eps_meters" mapstructure:"eps_meters"`
	MinPts      int     `json:"min_pts" yaml:"min_pts" mapstructure:"min_pts"`
	MinListings int     `json:"min_listings" yaml:"min_listings" mapstructure:"min_listings"`
}

// Contains reports whether price falls in [Min, Max).
func (b PriceBand) Contains(price float64) bool {
	return price >= b.Min && price < b.Max
}

// Cluster summarizes one density cluster found inside a price tier.
// The centroid is the mean of member latitudes and longitudes.
type Cluster struct {
	Tier         string  `json:"tier" csv:"tier"`
	ClusterID    int     `json:"cluster_id" csv:"cluster_id"`
	CenterLat    float64 `json:"center_lat" csv:"center_lat"`
	CenterLon    float64 `json:"center_lon" csv:"center_lon"`
	ListingCount int     `json:"listing_count" csv:"listing_count"`
	AvgPrice     float64 `json:"avg_price" csv:"avg_price"`
	MaxPrice     float64 `json:"max_price" csv:"max_price"`
	TotalValue   float64 `json:"total_value" csv:"total_value"`
}
