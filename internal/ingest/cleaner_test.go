package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

func raw(id, lat, lon, price, reviews string) RawListing {
	return RawListing{ID: id, Latitude: lat, Longitude: lon, Price: price, Reviews: reviews, Neighbourhood: "Midtown"}
}

func TestClean(t *testing.T) {
	rows := []RawListing{
		raw("1", "40.75", "-73.98", "150", "12"),
		raw("2", "", "-73.98", "150", "1"),
		raw("3", "40.75", "-73.98", "free", "1"),
		raw("4", "40.75", "-73.98", "0", "1"),
		raw("5", "40.75", "-73.98", "5000.01", "1"),
		raw("6", "40.75", "-73.98", "$5,000.00", ""),
		raw("1", "40.75", "-73.98", "99", "1"),
		raw("7", "40.75", "-73.98", "99", "-3"),
		raw("8", "95", "-73.98", "99", "1"),
		raw("", "40.75", "-73.98", "99", "1"),
		raw("9", "40.75", "-73.98", "NaN", "1"),
	}

	got, report := Clean(rows, CleanOptions{})
	require.Len(t, got, 2)
	assert.Equal(t, model.Listing{ID: "1", Latitude: 40.75, Longitude: -73.98, Price: 150, Reviews: 12, Neighborhood: "Midtown"}, got[0])
	assert.Equal(t, "6", got[1].ID)
	assert.InDelta(t, 5000, got[1].Price, 1e-9)
	assert.Zero(t, got[1].Reviews)

	assert.Equal(t, 11, report.Read)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 9, report.DroppedTotal())
	assert.Equal(t, map[string]int{
		DropBadCoordinates: 2,
		DropBadPrice:       1,
		DropPriceRange:     3,
		DropDuplicateID:    1,
		DropBadReviews:     1,
		DropMissingID:      1,
	}, report.Dropped)
}

func TestClean_MaxPrice(t *testing.T) {
	rows := []RawListing{
		raw("1", "40.75", "-73.98", "999", "0"),
		raw("2", "40.75", "-73.98", "1000", "0"),
	}
	got, report := Clean(rows, CleanOptions{MaxPrice: 999})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, 1, report.Dropped[DropPriceRange])
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"150", 150, false},
		{"$1,225.00", 1225, false},
		{" 99.5 ", 99.5, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "Bedford-Stuyvesant", NormalizeLabel("  Bedford-Stuyvesant "))
	assert.Equal(t, "Hell's Kitchen", NormalizeLabel("Hell's   Kitchen"))
	// Decomposed "e" + combining acute composes to a single rune.
	assert.Equal(t, "Caf\u00e9 District", NormalizeLabel("Cafe\u0301 District"))
	assert.Empty(t, NormalizeLabel("   "))
}
