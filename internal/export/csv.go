package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// ListingRow is the analyzed_data CSV layout.
type ListingRow struct {
	ID               string   `csv:"id"`
	Borough          string   `csv:"neighbourhood_group"`
	Neighbourhood    string   `csv:"neighbourhood"`
	Latitude         float64  `csv:"latitude"`
	Longitude        float64  `csv:"longitude"`
	Price            float64  `csv:"price"`
	Reviews          int      `csv:"number_of_reviews"`
	DistanceKM       *float64 `csv:"distance_km"`
	DistanceCategory string   `csv:"distance_category"`
	Tier             string   `csv:"tier"`
	Cluster          int      `csv:"cluster"`
}

// NewListingRow converts an analyzed listing. The distance is left blank
// when the listing has none.
func NewListingRow(l model.AnalyzedListing) ListingRow {
	r := ListingRow{
		ID:               l.ID,
		Borough:          l.Borough,
		Neighbourhood:    l.Neighborhood,
		Latitude:         l.Latitude,
		Longitude:        l.Longitude,
		Price:            l.Price,
		Reviews:          l.Reviews,
		DistanceCategory: l.DistanceCategory,
		Tier:             l.Tier,
		Cluster:          l.ClusterID,
	}
	if l.HasDistance {
		d := l.DistanceKM
		r.DistanceKM = &d
	}
	return r
}

// LogRow is the single-row run log CSV layout.
type LogRow struct {
	RunID           string    `csv:"run_id"`
	Timestamp       time.Time `csv:"timestamp"`
	City            string    `csv:"city"`
	Threshold       float64   `csv:"premium_threshold"`
	TotalListings   int       `csv:"total_listings"`
	MedianPrice     float64   `csv:"median_price"`
	Clusters        int       `csv:"clusters"`
	SkippedTiers    string    `csv:"skipped_tiers"`
	TopNeighborhood string    `csv:"top_neighborhood"`
	DurationMS      int64     `csv:"duration_ms"`
}

// WriteCSV encodes rows (a slice of structs with csv tags) to path, writing
// the header even when rows is empty. Parent directories are created.
func WriteCSV[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := EncodeCSV(f, rows); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "export: write %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// EncodeCSV writes a header and one record per row to w.
func EncodeCSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return eris.Wrap(err, "export: encode header")
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "export: encode row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// ReadRecords reads a CSV file with a header row into one map per record.
// limit <= 0 reads everything.
func ReadRecords(path string, limit int) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if err == io.EOF {
			return []map[string]string{}, nil
		}
		return nil, eris.Wrapf(err, "export: read header %s", path)
	}
	header := dec.Header()

	out := []map[string]string{}
	for limit <= 0 || len(out) < limit {
		var skip struct{}
		if err := dec.Decode(&skip); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "export: read %s", path)
		}
		rec := dec.Record()
		m := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				m[h] = rec[i]
			}
		}
		out = append(out, m)
	}
	return out, nil
}
