package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/config"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/export"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/store"
)

const csvHeader = "id,name,host_id,neighbourhood_group,neighbourhood,latitude,longitude,room_type,price,number_of_reviews\n"

// writeListings writes a listings file with a dense Premium block in Midtown,
// a few cheap Brooklyn rows and one unparseable row.
func writeListings(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "m%d,Loft %d,1,Manhattan,Midtown,40.7575,%.5f,Entire home/apt,$%d.00,%d\n",
			i, i, -73.9860+float64(i)*0.00005, 300+i, 10+i)
	}
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "b%d,Room %d,2,Brooklyn,Crown Heights,40.68,-73.95,Private room,80,%d\n", i, i, 40+i)
	}
	b.WriteString("bad,Broken,3,Queens,Astoria,not-a-lat,-73.9,Private room,90,1\n")

	path := filepath.Join(dir, "nyc_listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, OutputDir: filepath.Join(dir, "output")}
	cfg.Analysis.PremiumThreshold = 200
	cfg.Analysis.MaxPrice = 5000
	cfg.Analysis.MinClusterListings = 10
	cfg.Analysis.TopNeighborhoods = 10
	cfg.Analysis.Weights = config.WeightsConfig{Price: 0.4, Location: 0.3, Demand: 0.3}
	return cfg
}

func testCatalog() *config.Catalog {
	cat := config.DefaultCatalog()
	nyc := cat.Cities["nyc"]
	nyc.ListingsFile = "nyc_listings.csv"
	cat.Cities["nyc"] = nyc
	return cat
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeListings(t, cfg.DataDir)
	st := newTestStore(t)
	p := New(cfg, testCatalog(), st)

	out, err := p.Run(context.Background(), Request{City: "nyc"})
	require.NoError(t, err)

	assert.Equal(t, 16, out.Cleaning.Read)
	assert.Equal(t, 15, out.Cleaning.Kept)
	assert.Equal(t, 1, out.Cleaning.Dropped["bad_coordinates"])

	run := out.Run
	assert.Equal(t, "nyc", run.City)
	assert.InDelta(t, 200, run.Threshold, 1e-9)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 15, run.Summary.TotalListings)
	require.Len(t, run.Clusters, 1)
	assert.Equal(t, "Premium", run.Clusters[0].Tier)
	assert.Equal(t, 12, run.Clusters[0].ListingCount)
	require.Len(t, run.Neighborhoods, 2)

	for _, kind := range []string{export.KindAnalyzed, export.KindPremiumClusters, export.KindNeighborhoods, export.KindLog} {
		assert.FileExists(t, out.Files.CSV[kind])
	}
	assert.FileExists(t, out.Files.Workbook)
	assert.FileExists(t, out.Files.GeoJSON)

	saved, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Clusters, saved.Clusters)

	latest, err := st.LatestRun(context.Background(), "nyc")
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
}

func TestRun_ThresholdOverrideAndTopN(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.TopNeighborhoods = 1
	writeListings(t, cfg.DataDir)
	p := New(cfg, testCatalog(), nil)

	threshold := 400.0
	out, err := p.Run(context.Background(), Request{City: "NYC", Threshold: &threshold})
	require.NoError(t, err)

	assert.InDelta(t, 400, out.Run.Threshold, 1e-9)
	// No listing reaches 400, so the Premium tier is too small to cluster.
	assert.Empty(t, out.Run.Clusters)
	assert.Contains(t, out.Run.Summary.SkippedTiers, "Premium")
	assert.Len(t, out.Run.Neighborhoods, 1)
	assert.Contains(t, filepath.Base(out.Files.Workbook), "_min400")
}

func TestRun_MaxListings(t *testing.T) {
	cfg := testConfig(t)
	writeListings(t, cfg.DataDir)
	p := New(cfg, testCatalog(), nil)

	out, err := p.Run(context.Background(), Request{City: "nyc", MaxListings: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Run.Summary.TotalListings)
	assert.Empty(t, out.Run.Clusters)
}

func TestRun_ListingsFileOverride(t *testing.T) {
	cfg := testConfig(t)
	other := t.TempDir()
	path := writeListings(t, other)
	p := New(cfg, testCatalog(), nil)

	out, err := p.Run(context.Background(), Request{City: "nyc", ListingsFile: path})
	require.NoError(t, err)
	assert.Equal(t, 15, out.Run.Summary.TotalListings)
}

func TestRun_UnknownCity(t *testing.T) {
	p := New(testConfig(t), testCatalog(), nil)
	_, err := p.Run(context.Background(), Request{City: "paris"})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestRun_MissingListingsFile(t *testing.T) {
	p := New(testConfig(t), testCatalog(), nil)
	_, err := p.Run(context.Background(), Request{City: "nyc"})
	require.Error(t, err)
	assert.False(t, model.IsValidation(err))
	assert.Contains(t, err.Error(), "pipeline: ingest nyc")
}

func TestRun_InvalidThresholdRecordsFailure(t *testing.T) {
	cfg := testConfig(t)
	writeListings(t, cfg.DataDir)
	st := newTestStore(t)
	p := New(cfg, testCatalog(), st)

	threshold := -5.0
	_, err := p.Run(context.Background(), Request{City: "nyc", Threshold: &threshold})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	runs, err := st.ListRuns(context.Background(), store.RunFilter{City: "nyc", Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)

	_, err = st.LatestRun(context.Background(), "nyc")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
