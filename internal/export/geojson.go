package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/analysis"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// Feature kinds stored in the "kind" property.
const (
	FeatureCluster  = "cluster"
	FeatureLandmark = "landmark"
)

// FeatureCollection builds a WGS84 GeoJSON collection with one point per
// cluster centroid followed by one point per landmark.
func FeatureCollection(res *analysis.Result, landmarks []model.Landmark) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, t := range res.Hotspots.Tiers {
		for _, c := range t.Clusters {
			fc.Features = append(fc.Features, &geojson.Feature{
				ID:       t.Band.Name + "-" + strconv.Itoa(c.ClusterID),
				Geometry: lonLat(c.CenterLon, c.CenterLat),
				Properties: map[string]interface{}{
					"kind":          FeatureCluster,
					"tier":          c.Tier,
					"cluster_id":    c.ClusterID,
					"listing_count": c.ListingCount,
					"avg_price":     c.AvgPrice,
					"max_price":     c.MaxPrice,
					"total_value":   c.TotalValue,
				},
			})
		}
	}
	for _, lm := range landmarks {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       lm.Name,
			Geometry: lonLat(lm.Longitude, lm.Latitude),
			Properties: map[string]interface{}{
				"kind": FeatureLandmark,
				"name": lm.Name,
			},
		})
	}
	return fc
}

// WriteGeoJSON writes FeatureCollection(res, landmarks) to path.
func WriteGeoJSON(path string, res *analysis.Result, landmarks []model.Landmark) error {
	data, err := json.Marshal(FeatureCollection(res, landmarks))
	if err != nil {
		return eris.Wrap(err, "geojson: marshal")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "geojson: create dir for %s", path)
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "geojson: write %s", path)
}

func lonLat(lon, lat float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(geo.SRIDWGS84)
}
