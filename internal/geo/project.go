// Package geo provides the Web Mercator projection, planar distances and
// distance classification used by clustering and landmark proximity.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// Spatial reference identifiers.
const (
	SRIDWGS84       = 4326
	SRIDWebMercator = 3857
)

const (
	earthRadius = 6378137.0 // EPSG:3857 sphere radius in meters
	maxMercLat  = 85.05112878
)

// XY is a planar coordinate in meters.
type XY struct {
	X float64
	Y float64
}

// ProjectXY converts WGS84 longitude/latitude in degrees to Web Mercator
// meters. Coordinates outside ±180/±90 are rejected with a ValidationError.
// Latitudes beyond the EPSG:3857 limit are clamped to it.
func ProjectXY(lon, lat float64) (XY, error) {
	if err := ValidateLonLat(lon, lat); err != nil {
		return XY{}, err
	}
	lat = math.Max(-maxMercLat, math.Min(maxMercLat, lat))

	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return XY{X: x, Y: y}, nil
}

// Project is ProjectXY returning a go-geom point tagged with SRID 3857.
func Project(lon, lat float64) (*geom.Point, error) {
	p, err := ProjectXY(lon, lat)
	if err != nil {
		return nil, err
	}
	return geom.NewPointFlat(geom.XY, []float64{p.X, p.Y}).SetSRID(SRIDWebMercator), nil
}

// ValidateLonLat checks that lon/lat are finite and inside the WGS84 range.
func ValidateLonLat(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return model.NewValidationError("longitude", lon, "must be within [-180, 180]")
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return model.NewValidationError("latitude", lat, "must be within [-90, 90]")
	}
	return nil
}

// Distance returns the Euclidean distance between two projected points.
func Distance(a, b XY) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Centroid returns the arithmetic mean of the given latitudes and longitudes.
// It averages in geodetic space; an empty input yields (0, 0).
func Centroid(lats, lons []float64) (lat, lon float64) {
	if len(lats) == 0 || len(lats) != len(lons) {
		return 0, 0
	}
	for i := range lats {
		lat += lats[i]
		lon += lons[i]
	}
	n := float64(len(lats))
	return lat / n, lon / n
}
