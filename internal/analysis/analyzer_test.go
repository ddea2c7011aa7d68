package analysis

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/hotspot"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/proximity"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/scorer"
)

var nycLandmarks = []model.Landmark{
	{Name: "Times Square", Latitude: 40.7580, Longitude: -73.9855},
	{Name: "Central Park", Latitude: 40.7829, Longitude: -73.9654},
	{Name: "Empire State Building", Latitude: 40.7484, Longitude: -74.0047},
	{Name: "Brooklyn Bridge", Latitude: 40.7061, Longitude: -73.9969},
}

// blob places n listings within ~30m of (lon, lat).
func blob(prefix, hood string, lon, lat float64, n int, price float64, reviews int) []model.Listing {
	out := make([]model.Listing, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = model.Listing{
			ID:           fmt.Sprintf("%s-%d", prefix, i),
			Longitude:    lon + 0.0003*math.Cos(a),
			Latitude:     lat + 0.0002*math.Sin(a),
			Price:        price,
			Reviews:      reviews,
			Neighborhood: hood,
		}
	}
	return out
}

func sampleInput() Input {
	var listings []model.Listing
	listings = append(listings, blob("mid", "Midtown", -73.9860, 40.7575, 12, 350, 40)...)
	listings = append(listings, blob("lux", "Tribeca", -74.0090, 40.7160, 10, 1500, 10)...)
	listings = append(listings, blob("bud", "Astoria", -73.9200, 40.7640, 15, 90, 80)...)
	listings = append(listings, blob("ult", "SoHo", -74.0000, 40.7230, 4, 3000, 2)...)
	return Input{City: "nyc", Threshold: 200, Listings: listings, Landmarks: nycLandmarks}
}

func TestRun_EndToEnd(t *testing.T) {
	in := sampleInput()
	res, err := New().Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "nyc", res.City)
	assert.Len(t, res.Listings, len(in.Listings))
	assert.Equal(t, scorer.DefaultWeights(), res.Weights)
	assert.Equal(t, hotspot.DefaultBands(200), res.Bands)

	require.Len(t, res.Hotspots.Tiers, 3)
	require.Len(t, res.Hotspots.Clusters(hotspot.TierPremium), 1)
	assert.Equal(t, 12, res.Hotspots.Clusters(hotspot.TierPremium)[0].ListingCount)
	require.Len(t, res.Hotspots.Clusters(hotspot.TierLuxury), 1)
	assert.True(t, res.Hotspots.Tiers[2].Skipped)
	assert.Len(t, res.Clusters(), 2)

	for _, l := range res.Listings {
		assert.True(t, l.HasDistance)
		assert.NotEmpty(t, l.DistanceCategory)
		if l.Price < 200 {
			assert.Empty(t, l.Tier)
		}
	}

	require.Len(t, res.Neighborhoods, 4)
	assert.Equal(t, res.Neighborhoods[0].Neighborhood, res.Summary.TopNeighborhood)
	assert.Equal(t, len(in.Listings), res.Summary.TotalListings)
	assert.Equal(t, len(in.Listings), res.Summary.ListingsWithLandmarks)
	assert.InDelta(t, 90, res.Summary.MinPrice, 1e-9)
	assert.InDelta(t, 3000, res.Summary.MaxPrice, 1e-9)
	assert.Equal(t, map[string]int{hotspot.TierPremium: 1, hotspot.TierLuxury: 1, hotspot.TierUltraLuxury: 0}, res.Summary.ClustersByTier)
	assert.Equal(t, []string{hotspot.TierUltraLuxury}, res.Summary.SkippedTiers)
	require.Len(t, res.Distance, len(geo.Categories))
}

func TestRun_InputNotModified(t *testing.T) {
	in := sampleInput()
	before := append([]model.Listing(nil), in.Listings...)

	_, err := New().Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, before, in.Listings)
}

func TestRun_Idempotent(t *testing.T) {
	a := New()
	r1, err := a.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	r2, err := a.Run(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, r1.Listings, r2.Listings)
	assert.Equal(t, r1.Hotspots, r2.Hotspots)
	assert.Equal(t, r1.Neighborhoods, r2.Neighborhoods)
	assert.Equal(t, r1.Summary, r2.Summary)
}

func TestRun_NoLandmarks(t *testing.T) {
	in := sampleInput()
	in.Landmarks = nil

	res, err := New().Run(context.Background(), in)
	require.NoError(t, err)
	for _, l := range res.Listings {
		assert.False(t, l.HasDistance)
		assert.Empty(t, l.DistanceCategory)
	}
	for _, n := range res.Neighborhoods {
		assert.Zero(t, n.LocationScore)
	}
	assert.Nil(t, res.Distance)
	assert.Zero(t, res.Summary.ListingsWithLandmarks)
}

func TestRun_MaxListings(t *testing.T) {
	in := sampleInput()
	in.MaxListings = 5

	res, err := New().Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Listings, 5)
	assert.Equal(t, in.Listings[4].ID, res.Listings[4].ID)
	assert.True(t, res.Hotspots.Tiers[0].Skipped)
}

func TestRun_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(in *Input)
		field string
	}{
		{"threshold above luxury", func(in *Input) { in.Threshold = 1000 }, "bands[0].min"},
		{"negative threshold", func(in *Input) { in.Threshold = -1 }, "threshold"},
		{"negative cap", func(in *Input) { in.MaxListings = -1 }, "max_listings"},
		{"bad weights", func(in *Input) { in.Weights = scorer.Weights{Price: 0.9, Location: 0.9} }, "weights"},
		{"bad landmark", func(in *Input) { in.Landmarks = []model.Landmark{{Name: "x", Latitude: 0, Longitude: 200}} }, "landmarks[0].longitude"},
		{"bad listing", func(in *Input) { in.Listings[3].Latitude = 91 }, "listings[3].latitude"},
		{"bad band", func(in *Input) {
			in.Bands = hotspot.DefaultBands(200)
			in.Bands[1].EpsMeters = 0
		}, "bands[1].eps_meters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleInput()
			tt.edit(&in)

			_, err := New().Run(context.Background(), in)
			require.Error(t, err)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRun_CustomBands(t *testing.T) {
	in := sampleInput()
	in.Bands = []model.PriceBand{
		{Name: "Budget", Min: 0, Max: 200, EpsMeters: 200, MinPts: 5, MinListings: 5},
	}

	res, err := New().Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Hotspots.Tiers, 1)
	require.Len(t, res.Hotspots.Clusters("Budget"), 1)
	assert.Equal(t, 15, res.Hotspots.Clusters("Budget")[0].ListingCount)
}

// Detection and landmark annotation share the listing slice; run under
// -race this checks they touch disjoint fields.
func TestDetectAndAnnotate_Concurrently(t *testing.T) {
	in := sampleInput()
	engine, err := proximity.NewEngine(in.Landmarks)
	require.NoError(t, err)
	detector, err := hotspot.NewDetector(hotspot.DefaultBands(in.Threshold))
	require.NoError(t, err)

	sequential, err := project(in.Listings)
	require.NoError(t, err)
	wantHot, err := detector.Detect(context.Background(), sequential)
	require.NoError(t, err)
	engine.Annotate(sequential)

	for i := 0; i < 20; i++ {
		listings, err := project(in.Listings)
		require.NoError(t, err)

		var gotHot *hotspot.Result
		var detectErr error
		done := make(chan struct{})
		go func() {
			defer close(done)
			gotHot, detectErr = detector.Detect(context.Background(), listings)
		}()
		engine.Annotate(listings)
		<-done

		require.NoError(t, detectErr)
		assert.Equal(t, wantHot, gotHot)
		assert.Equal(t, sequential, listings)
	}
}

func TestRun_ConcurrentRuns(t *testing.T) {
	a := New()
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func(threshold float64) {
			in := sampleInput()
			in.Threshold = threshold
			_, err := a.Run(context.Background(), in)
			errs <- err
		}(float64(100 + i*50))
	}
	for i := 0; i < 4; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(&Result{Hotspots: &hotspot.Result{}})
	assert.Zero(t, s.TotalListings)
	assert.Zero(t, s.MedianPrice)
	assert.Empty(t, s.TopNeighborhood)
	assert.NotNil(t, s.ClustersByTier)
}

func TestBoroughs(t *testing.T) {
	mk := func(borough string, price float64) model.AnalyzedListing {
		return model.AnalyzedListing{Listing: model.Listing{Borough: borough, Price: price}}
	}
	got := Boroughs([]model.AnalyzedListing{
		mk("Manhattan", 200),
		mk("Brooklyn", 100),
		mk("Manhattan", 100),
		mk("", 5000),
		mk("Manhattan", 101),
	})

	require.Len(t, got, 2)
	assert.Equal(t, BoroughStats{Borough: "Manhattan", Count: 3, MeanPrice: 133.67, MedianPrice: 101}, got[0])
	assert.Equal(t, BoroughStats{Borough: "Brooklyn", Count: 1, MeanPrice: 100, MedianPrice: 100}, got[1])
	assert.Empty(t, Boroughs(nil))
}
