// Package pipeline runs one city analysis end to end: ingest the listings
// CSV, analyze, export the result files and record the run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/analysis"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/config"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/export"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/hotspot"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/ingest"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/scorer"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/store"
)

// Request selects what to analyze.
type Request struct {
	City string `json:"city"`
	// Threshold is the Premium lower bound; nil uses the configured default.
	Threshold *float64 `json:"premium_threshold,omitempty"`
	// MaxListings caps the listings analyzed; 0 uses the configured default.
	MaxListings int `json:"max_listings,omitempty"`
	// ListingsFile overrides the city's configured listings CSV.
	ListingsFile string `json:"-"`
}

// Outcome is a finished run.
type Outcome struct {
	Run      *model.Run         `json:"run"`
	Result   *analysis.Result   `json:"-"`
	Files    *export.Files      `json:"files"`
	Cleaning ingest.CleanReport `json:"cleaning"`
}

// Pipeline wires ingestion, analysis, export and the run store together.
// It is safe for concurrent use; runs share no state.
type Pipeline struct {
	cfg      *config.Config
	catalog  *config.Catalog
	store    store.Store
	analyzer *analysis.Analyzer
	writer   *export.Writer
}

// New creates a Pipeline. st may be nil, in which case runs are exported but
// not recorded.
func New(cfg *config.Config, catalog *config.Catalog, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		catalog:  catalog,
		store:    st,
		analyzer: analysis.New(),
		writer:   export.NewWriter(cfg.OutputDir),
	}
}

// Catalog returns the city catalogue runs are resolved against.
func (p *Pipeline) Catalog() *config.Catalog { return p.catalog }

// Run analyzes one city. Validation problems (unknown city, bad threshold,
// malformed coordinates) are returned as *model.ValidationError.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("city", req.City))

	city, err := p.catalog.Lookup(req.City)
	if err != nil {
		return nil, err
	}

	threshold := p.cfg.Analysis.PremiumThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	maxListings := p.cfg.Analysis.MaxListings
	if req.MaxListings != 0 {
		maxListings = req.MaxListings
	}

	path := req.ListingsFile
	if path == "" {
		path = city.ListingsPath(p.cfg.DataDir)
	}
	if path == "" {
		return nil, model.NewValidationError("listings_file", city.Code, "no listings file configured")
	}

	start := time.Now()
	raw, err := ingest.ReadFile(ctx, path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: ingest %s", city.Code)
	}
	listings, report := ingest.Clean(raw, ingest.CleanOptions{MaxPrice: p.cfg.Analysis.MaxPrice})
	log.Info("pipeline: listings loaded",
		zap.String("path", path),
		zap.Int("read", report.Read),
		zap.Int("kept", report.Kept),
		zap.Int("dropped", report.DroppedTotal()),
	)

	res, err := p.analyzer.Run(ctx, analysis.Input{
		City:        city.Code,
		Threshold:   threshold,
		Listings:    listings,
		Landmarks:   city.Landmarks,
		Bands:       p.bands(threshold),
		Weights:     p.weights(),
		MaxListings: maxListings,
	})
	if err != nil {
		p.recordFailure(ctx, city.Code, threshold, err)
		return nil, err
	}

	run := &model.Run{
		ID:            uuid.New().String(),
		City:          city.Code,
		Threshold:     threshold,
		Status:        model.RunStatusComplete,
		Summary:       res.Summary,
		CreatedAt:     time.Now().UTC(),
		Clusters:      res.Clusters(),
		Neighborhoods: scorer.Top(res.Neighborhoods, p.cfg.Analysis.TopNeighborhoods),
	}

	files, err := p.writer.WriteRun(run.ID, res, city.Landmarks)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: export %s", city.Code)
	}

	if p.store != nil {
		if err := p.store.SaveRun(ctx, run); err != nil {
			return nil, eris.Wrapf(err, "pipeline: save run %s", run.ID)
		}
	}

	log.Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("clusters", len(run.Clusters)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Outcome{Run: run, Result: res, Files: files, Cleaning: report}, nil
}

// bands returns the default tier table with the configured partition floor.
func (p *Pipeline) bands(threshold float64) []model.PriceBand {
	bands := hotspot.DefaultBands(threshold)
	if n := p.cfg.Analysis.MinClusterListings; n > 0 {
		for i := range bands {
			bands[i].MinListings = n
		}
	}
	return bands
}

func (p *Pipeline) weights() scorer.Weights {
	w := p.cfg.Analysis.Weights
	return scorer.Weights{Price: w.Price, Location: w.Location, Demand: w.Demand}
}

// recordFailure stores a failed run so it shows up in run listings. Store
// errors are logged, not returned; the analysis error matters more.
func (p *Pipeline) recordFailure(ctx context.Context, city string, threshold float64, cause error) {
	if p.store == nil {
		return
	}
	run := &model.Run{
		City:      city,
		Threshold: threshold,
		Status:    model.RunStatusFailed,
		Error:     cause.Error(),
	}
	if err := p.store.SaveRun(ctx, run); err != nil {
		zap.L().Warn("pipeline: failed to record failed run", zap.String("city", city), zap.Error(err))
	}
}
