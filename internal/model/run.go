package model

import "time"

// RunStatus represents the outcome of an analysis run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one analysis run for a city and premium threshold.
type Run struct {
	ID        string     `json:"id"`
	City      string     `json:"city"`
	Threshold float64    `json:"threshold"`
	Status    RunStatus  `json:"status"`
	Summary   RunSummary `json:"summary"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	Clusters      []Cluster           `json:"clusters,omitempty"`
	Neighborhoods []NeighborhoodStats `json:"neighborhoods,omitempty"`
}

// RunSummary holds the headline numbers of a run.
type RunSummary struct {
	TotalListings         int            `json:"total_listings"`
	MedianPrice           float64        `json:"median_price"`
	MinPrice              float64        `json:"min_price"`
	MaxPrice              float64        `json:"max_price"`
	ClustersByTier        map[string]int `json:"clusters_by_tier"`
	SkippedTiers          []string       `json:"skipped_tiers,omitempty"`
	TopNeighborhood       string         `json:"top_neighborhood,omitempty"`
	TopNeighborhoodScore  float64        `json:"top_neighborhood_score,omitempty"`
	ListingsWithLandmarks int            `json:"listings_with_landmarks"`
}
