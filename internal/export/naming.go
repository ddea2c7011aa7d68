// Package export writes analysis results to CSV, XLSX and GeoJSON files and
// finds the latest exports of a city.
package export

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Export kinds. Each kind is the suffix of a CSV file name.
const (
	KindAnalyzed            = "analyzed_data"
	KindPremiumClusters     = "premium_clusters"
	KindLuxuryClusters      = "luxury_clusters"
	KindUltraLuxuryClusters = "ultra_luxury_clusters"
	KindNeighborhoods       = "neighborhood_scores"
	KindLog                 = "log"
)

// DateLayout is the date format embedded in export names.
const DateLayout = "2006-01-02"

// HotspotKeys maps the data explorer's table keys to export kinds.
var HotspotKeys = map[string]string{
	"premium_clusters":      KindPremiumClusters,
	"luxury_clusters":       KindLuxuryClusters,
	"ultra_luxury_clusters": KindUltraLuxuryClusters,
	"neighborhood_scores":   KindNeighborhoods,
	"raw_listings":          KindAnalyzed,
	"log":                   KindLog,
}

// DownloadTypes maps the short download names to export kinds.
var DownloadTypes = map[string]string{
	"data":          KindAnalyzed,
	"clusters":      KindPremiumClusters,
	"luxury":        KindLuxuryClusters,
	"ultra":         KindUltraLuxuryClusters,
	"neighborhoods": KindNeighborhoods,
	"log":           KindLog,
}

// RunName identifies one export file: {city}_{date}_min{threshold}_{kind}.
type RunName struct {
	City      string
	Date      string
	Threshold float64
	Kind      string
}

// Prefix returns "{city}_{date}_min{threshold}".
func (n RunName) Prefix() string {
	return n.City + "_" + n.Date + "_min" + FormatThreshold(n.Threshold)
}

// FileName returns the CSV file name for n.
func (n RunName) FileName() string {
	return n.Prefix() + "_" + n.Kind + ".csv"
}

// NewRunName builds the name for city at time t. City codes must not contain
// underscores since the name is split on them.
func NewRunName(city string, t time.Time, threshold float64, kind string) (RunName, error) {
	if city == "" || strings.ContainsAny(city, "_/\\") {
		return RunName{}, eris.Errorf("export: invalid city code %q", city)
	}
	return RunName{City: city, Date: t.Format(DateLayout), Threshold: threshold, Kind: kind}, nil
}

// FormatThreshold renders a threshold without trailing zeros ("200", "250.5").
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseRunName parses an export file name such as
// "nyc_2025-10-01_min200_premium_clusters.csv".
func ParseRunName(name string) (RunName, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	parts := strings.SplitN(stem, "_", 4)
	if len(parts) < 4 || parts[0] == "" || parts[3] == "" {
		return RunName{}, eris.Errorf("export: malformed run name %q", name)
	}
	if _, err := time.Parse(DateLayout, parts[1]); err != nil {
		return RunName{}, eris.Wrapf(err, "export: bad date in %q", name)
	}
	if !strings.HasPrefix(parts[2], "min") {
		return RunName{}, eris.Errorf("export: missing threshold in %q", name)
	}
	th, err := strconv.ParseFloat(strings.TrimPrefix(parts[2], "min"), 64)
	if err != nil {
		return RunName{}, eris.Wrapf(err, "export: bad threshold in %q", name)
	}
	return RunName{City: parts[0], Date: parts[1], Threshold: th, Kind: parts[3]}, nil
}

// Query selects export files in a directory.
type Query struct {
	City string
	Kind string
	// Threshold filters on the exact threshold when HasThreshold is set.
	Threshold    float64
	HasThreshold bool
}

// Match is one export file found by FindLatest.
type Match struct {
	RunName
	Path    string
	ModTime time.Time
}

// ErrNotFound is returned when no export matches a query.
var ErrNotFound = eris.New("export: no matching export")

// FindLatest returns the most recently modified export in dir matching q.
// Files with equal modification times are ordered by name, later first.
func FindLatest(dir string, q Query) (*Match, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "export: read dir %s", dir)
	}

	var matches []Match
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		n, err := ParseRunName(e.Name())
		if err != nil {
			continue
		}
		if n.City != q.City || n.Kind != q.Kind {
			continue
		}
		if q.HasThreshold && n.Threshold != q.Threshold {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		matches = append(matches, Match{RunName: n, Path: filepath.Join(dir, e.Name()), ModTime: info.ModTime()})
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].ModTime.Equal(matches[j].ModTime) {
			return matches[i].ModTime.After(matches[j].ModTime)
		}
		return matches[i].Path > matches[j].Path
	})
	return &matches[0], nil
}

// KindForTier returns the cluster export kind of a tier, e.g.
// "Ultra-Luxury" -> "ultra_luxury_clusters".
func KindForTier(tier string) string {
	slug := strings.ToLower(strings.TrimSpace(tier))
	slug = strings.NewReplacer("-", "_", " ", "_").Replace(slug)
	return slug + "_clusters"
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if info.IsDir() {
		return eris.Errorf("export: %s is a directory", path)
	}
	return nil
}
