package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

func sampleRuns() []model.Run {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	return []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			City:      "nyc",
			Threshold: 200,
			Status:    model.RunStatusComplete,
			CreatedAt: now,
			Summary: model.RunSummary{
				TotalListings:   48000,
				ClustersByTier:  map[string]int{"Premium": 14, "Luxury": 3, "Ultra-Luxury": 1},
				TopNeighborhood: "Tribeca",
			},
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			City:      "nyc",
			Threshold: 250.5,
			Status:    model.RunStatusComplete,
			CreatedAt: now.Add(-time.Hour),
			Summary:   model.RunSummary{TotalListings: 2000, ClustersByTier: map[string]int{"Premium": 2}},
		},
		{
			ID:        "fff12345-6789-0000-0000-000000000000",
			City:      "la",
			Threshold: -1,
			Status:    model.RunStatusFailed,
			Error:     "validation: threshold=-1: must be >= 0",
			CreatedAt: now.Add(-2 * time.Hour),
		},
	}
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns())

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "CITY")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "Tribeca")
	assert.Contains(t, output, "250.5")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "validation: threshold=-1: m...")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestComputeRunStats(t *testing.T) {
	s := computeRunStats(sampleRuns())
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Cities)
	assert.InDelta(t, 10, s.AvgClusters, 1e-9)
	assert.InDelta(t, 25000, s.AvgListings, 1e-9)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, runStats{}, s)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, computeRunStats(sampleRuns()))
	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Avg hotspots:")
	assert.Contains(t, output, "10.0")

	buf.Reset()
	formatRunStats(&buf, runStats{Total: 1, Failed: 1})
	assert.NotContains(t, buf.String(), "Avg hotspots")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestTruncateText_CutsOnRunes(t *testing.T) {
	assert.Equal(t, "Midtown", truncateText("Midtown", 30))

	name := strings.Repeat("é", 40)
	got := truncateText(name, 30)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 27)+"...", got)
}
