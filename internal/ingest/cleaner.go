package ingest

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// DefaultMaxPrice is the highest nightly price kept by default.
const DefaultMaxPrice = 5000.0

// Drop reasons reported in CleanReport.Dropped.
const (
	DropMissingID      = "missing_id"
	DropDuplicateID    = "duplicate_id"
	DropBadCoordinates = "bad_coordinates"
	DropBadPrice       = "bad_price"
	DropPriceRange     = "price_out_of_range"
	DropBadReviews     = "bad_reviews"
)

// CleanOptions tunes the cleaner.
type CleanOptions struct {
	// MaxPrice drops listings priced above it. Zero means DefaultMaxPrice.
	MaxPrice float64
}

// CleanReport counts what the cleaner kept and why it dropped the rest.
type CleanReport struct {
	Read    int            `json:"read"`
	Kept    int            `json:"kept"`
	Dropped map[string]int `json:"dropped"`
}

// DroppedTotal returns the number of rows dropped for any reason.
func (r CleanReport) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Clean validates raw rows and converts them to listings, preserving input
// order. Rows with a missing or unparseable price or coordinate are dropped,
// as are non-positive prices, prices above the maximum, negative review
// counts and repeated ids. An empty review count becomes 0.
func Clean(raw []RawListing, opts CleanOptions) ([]model.Listing, CleanReport) {
	maxPrice := opts.MaxPrice
	if maxPrice <= 0 {
		maxPrice = DefaultMaxPrice
	}

	report := CleanReport{Read: len(raw), Dropped: make(map[string]int)}
	seen := make(map[string]struct{}, len(raw))
	out := make([]model.Listing, 0, len(raw))

	for _, r := range raw {
		l, reason := cleanRow(r, maxPrice)
		if reason == "" {
			if _, dup := seen[l.ID]; dup {
				reason = DropDuplicateID
			}
		}
		if reason != "" {
			report.Dropped[reason]++
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	report.Kept = len(out)

	zap.L().Info("ingest: cleaned listings",
		zap.Int("read", report.Read),
		zap.Int("kept", report.Kept),
		zap.Int("dropped", report.DroppedTotal()),
	)
	return out, report
}

func cleanRow(r RawListing, maxPrice float64) (model.Listing, string) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return model.Listing{}, DropMissingID
	}

	lat, errLat := parseFloat(r.Latitude)
	lon, errLon := parseFloat(r.Longitude)
	if errLat != nil || errLon != nil || geo.ValidateLonLat(lon, lat) != nil {
		return model.Listing{}, DropBadCoordinates
	}

	price, err := ParsePrice(r.Price)
	if err != nil {
		return model.Listing{}, DropBadPrice
	}
	if math.IsNaN(price) || price <= 0 || price > maxPrice {
		return model.Listing{}, DropPriceRange
	}

	reviews := 0
	if s := strings.TrimSpace(r.Reviews); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return model.Listing{}, DropBadReviews
		}
		reviews = n
	}

	return model.Listing{
		ID:           id,
		Longitude:    lon,
		Latitude:     lat,
		Price:        price,
		Reviews:      reviews,
		Neighborhood: NormalizeLabel(r.Neighbourhood),
		Borough:      NormalizeLabel(r.Borough),
	}, ""
}

// ParsePrice parses prices such as "150", "$1,250.00" or " 99.5 ".
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return parseFloat(s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// NormalizeLabel converts a neighborhood or borough label to NFC and
// collapses runs of whitespace, so visually identical labels group together.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
