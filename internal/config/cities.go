package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// City describes one market the analyzer knows how to run.
type City struct {
	Code         string           `yaml:"-" json:"code"`
	Name         string           `yaml:"name" json:"name"`
	ListingsFile string           `yaml:"listings_file" json:"listings_file"`
	Landmarks    []model.Landmark `yaml:"landmarks" json:"landmarks"`
}

// ListingsPath resolves ListingsFile against dataDir unless it is absolute.
func (c City) ListingsPath(dataDir string) string {
	if c.ListingsFile == "" || filepath.IsAbs(c.ListingsFile) || dataDir == "" {
		return c.ListingsFile
	}
	return filepath.Join(dataDir, c.ListingsFile)
}

// Catalog maps city codes to their configuration.
type Catalog struct {
	Cities map[string]City `yaml:"cities"`
}

// DefaultCatalog returns the built-in catalogue: New York City with its four
// reference landmarks.
func DefaultCatalog() *Catalog {
	return &Catalog{Cities: map[string]City{
		"nyc": {
			Code:         "nyc",
			Name:         "New York City",
			ListingsFile: "AB_NYC_2019.csv",
			Landmarks: []model.Landmark{
				{Name: "Times Square", Latitude: 40.7580, Longitude: -73.9855},
				{Name: "Central Park", Latitude: 40.7829, Longitude: -73.9654},
				{Name: "Empire State Building", Latitude: 40.7484, Longitude: -74.0047},
				{Name: "Brooklyn Bridge", Latitude: 40.7061, Longitude: -73.9969},
			},
		},
	}}
}

// LoadCatalog reads a YAML city catalogue. An empty path yields the default
// catalogue.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read cities file %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML city catalogue. City codes are lower-cased and
// must not contain the separators used in export file names.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw Catalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "config: parse cities")
	}
	if len(raw.Cities) == 0 {
		return nil, eris.New("config: cities file defines no cities")
	}

	cat := &Catalog{Cities: make(map[string]City, len(raw.Cities))}
	for code, c := range raw.Cities {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" || strings.ContainsAny(code, `_/\`) {
			return nil, eris.Errorf("config: invalid city code %q", code)
		}
		if c.Name == "" {
			c.Name = code
		}
		c.Code = code
		cat.Cities[code] = c
	}
	return cat, nil
}

// Lookup returns the city with the given code.
func (c *Catalog) Lookup(code string) (City, error) {
	city, ok := c.Cities[strings.ToLower(code)]
	if !ok {
		return City{}, model.NewValidationError("city", code, "unknown city")
	}
	return city, nil
}

// List returns all cities sorted by display name.
func (c *Catalog) List() []City {
	out := make([]City, 0, len(c.Cities))
	for _, city := range c.Cities {
		out = append(out, city)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Code < out[j].Code
	})
	return out
}
