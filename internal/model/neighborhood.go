package model

// NeighborhoodStats is one row of the investment ranking table.
type NeighborhoodStats struct {
	Neighborhood    string  `json:"neighbourhood" csv:"neighbourhood"`
	AvgPrice        float64 `json:"price" csv:"price"`
	ListingCount    int     `json:"listing_count" csv:"listing_count"`
	AvgDistanceKM   float64 `json:"distance_km" csv:"distance_km"`
	HasDistance     bool    `json:"has_distance" csv:"has_distance"`
	AvgReviews      float64 `json:"number_of_reviews" csv:"number_of_reviews"`
	PriceScore      float64 `json:"price_score" csv:"price_score"`
	LocationScore   float64 `json:"location_score" csv:"location_score"`
	DemandScore     float64 `json:"demand_score" csv:"demand_score"`
	InvestmentScore float64 `json:"investment_score" csv:"investment_score"`
}
