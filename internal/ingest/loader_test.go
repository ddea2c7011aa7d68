package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id,name,host_id,neighbourhood_group,neighbourhood,latitude,longitude,room_type,price,minimum_nights,number_of_reviews
2539,Clean & quiet apt,2787,Brooklyn,Kensington,40.64749,-73.97237,Private room,149,1,9
2595,Skylit Midtown Castle,2845,Manhattan,Midtown,40.75362,-73.98377,Entire home/apt,"$1,225.00",1,45
3647,THE VILLAGE OF HARLEM,4632,Manhattan,Harlem,40.80902,-73.9419,Private room,150,3,
`

func TestReadListings(t *testing.T) {
	rows, err := ReadListings(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, RawListing{
		ID:            "2539",
		Name:          "Clean & quiet apt",
		Borough:       "Brooklyn",
		Neighbourhood: "Kensington",
		Latitude:      "40.64749",
		Longitude:     "-73.97237",
		RoomType:      "Private room",
		Price:         "149",
		Reviews:       "9",
	}, rows[0])
	assert.Equal(t, "$1,225.00", rows[1].Price)
	assert.Empty(t, rows[2].Reviews)
}

func TestReadListings_MissingOptionalColumns(t *testing.T) {
	in := "id,latitude,longitude,price\n1,40.7,-73.9,100\n"
	rows, err := ReadListings(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Neighbourhood)
	assert.Equal(t, "100", rows[0].Price)
}

func TestReadListings_Empty(t *testing.T) {
	rows, err := ReadListings(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadListings_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadListings(ctx, strings.NewReader(sampleCSV))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	rows, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
