package export

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/analysis"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// Files lists what WriteRun produced, keyed by export kind.
type Files struct {
	Prefix   string            `json:"prefix"`
	CSV      map[string]string `json:"csv"`
	Workbook string            `json:"workbook"`
	GeoJSON  string            `json:"geojson"`
}

// Writer writes the exports of finished runs into one directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteRun writes every CSV kind, the workbook and the GeoJSON map layer for
// res. Files of an earlier run with the same city, date and threshold are
// overwritten.
func (w *Writer) WriteRun(runID string, res *analysis.Result, landmarks []model.Landmark) (*Files, error) {
	ts := w.now()
	base, err := NewRunName(res.City, ts, res.Threshold, "")
	if err != nil {
		return nil, err
	}
	files := &Files{Prefix: base.Prefix(), CSV: make(map[string]string)}

	write := func(kind string, fn func(path string) error) error {
		n := base
		n.Kind = kind
		path := filepath.Join(w.dir, n.FileName())
		if err := fn(path); err != nil {
			return err
		}
		files.CSV[kind] = path
		return nil
	}

	rows := make([]ListingRow, len(res.Listings))
	for i, l := range res.Listings {
		rows[i] = NewListingRow(l)
	}
	if err := write(KindAnalyzed, func(p string) error { return WriteCSV(p, rows) }); err != nil {
		return nil, err
	}

	for _, t := range res.Hotspots.Tiers {
		clusters := t.Clusters
		if err := write(KindForTier(t.Band.Name), func(p string) error { return WriteCSV(p, clusters) }); err != nil {
			return nil, err
		}
	}

	if err := write(KindNeighborhoods, func(p string) error { return WriteCSV(p, res.Neighborhoods) }); err != nil {
		return nil, err
	}

	logRow := LogRow{
		RunID:           runID,
		Timestamp:       ts.UTC(),
		City:            res.City,
		Threshold:       res.Threshold,
		TotalListings:   res.Summary.TotalListings,
		MedianPrice:     res.Summary.MedianPrice,
		Clusters:        res.Hotspots.Total(),
		SkippedTiers:    strings.Join(res.Summary.SkippedTiers, ";"),
		TopNeighborhood: res.Summary.TopNeighborhood,
		DurationMS:      res.Duration.Milliseconds(),
	}
	if err := write(KindLog, func(p string) error { return WriteCSV(p, []LogRow{logRow}) }); err != nil {
		return nil, err
	}

	files.Workbook = filepath.Join(w.dir, files.Prefix+".xlsx")
	if err := WriteWorkbook(files.Workbook, res); err != nil {
		return nil, err
	}
	files.GeoJSON = filepath.Join(w.dir, files.Prefix+".geojson")
	if err := WriteGeoJSON(files.GeoJSON, res, landmarks); err != nil {
		return nil, err
	}

	zap.L().Info("export: run written",
		zap.String("run_id", runID),
		zap.String("prefix", files.Prefix),
		zap.Int("csv_files", len(files.CSV)),
	)
	return files, nil
}

// LatestGeoJSON returns the GeoJSON file of the latest run of city, located
// through its analyzed_data export.
func LatestGeoJSON(dir, city string) (string, error) {
	m, err := FindLatest(dir, Query{City: city, Kind: KindAnalyzed})
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, m.Prefix()+".geojson")
	if err := checkFile(path); err != nil {
		return "", eris.Wrapf(err, "export: geojson for %s", city)
	}
	return path, nil
}
