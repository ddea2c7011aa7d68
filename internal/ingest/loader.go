// Package ingest reads Inside Airbnb style listings.csv files and cleans
// them into model.Listing records.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// RawListing is one row of listings.csv with every field kept as text.
// Columns not listed here are ignored.
type RawListing struct {
	ID            string `csv:"id"`
	Name          string `csv:"name,omitempty"`
	Borough       string `csv:"neighbourhood_group,omitempty"`
	Neighbourhood string `csv:"neighbourhood,omitempty"`
	Latitude      string `csv:"latitude"`
	Longitude     string `csv:"longitude"`
	RoomType      string `csv:"room_type,omitempty"`
	Price         string `csv:"price"`
	Reviews       string `csv:"number_of_reviews,omitempty"`
}

// ReadListings decodes every row of r. The header row maps columns by name.
func ReadListings(ctx context.Context, r io.Reader) ([]RawListing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if eris.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "ingest: read header")
	}

	var out []RawListing
	for {
		if len(out)%1000 == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: context cancelled")
		}
		var row RawListing
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode row %d", len(out)+1)
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadFile opens path and decodes it with ReadListings.
func ReadFile(ctx context.Context, path string) ([]RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadListings(ctx, f)
}
