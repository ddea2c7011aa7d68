// Package analysis runs the full hotspot pipeline for one city: projection,
// tiered clustering, landmark proximity and neighborhood scoring.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/hotspot"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/proximity"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/scorer"
)

// Input is everything one run needs. Nothing in it is shared with other
// runs; Listings is read but never modified.
type Input struct {
	City      string
	Threshold float64
	Listings  []model.Listing
	Landmarks []model.Landmark

	// Bands defaults to hotspot.DefaultBands(Threshold) when nil.
	Bands []model.PriceBand
	// Weights defaults to scorer.DefaultWeights() when zero.
	Weights scorer.Weights
	// MaxListings keeps only the first N listings; 0 means no cap.
	MaxListings int
}

// Result is the output of one run.
type Result struct {
	City      string            `json:"city"`
	Threshold float64           `json:"threshold"`
	Bands     []model.PriceBand `json:"bands"`
	Weights   scorer.Weights    `json:"weights"`

	Listings      []model.AnalyzedListing   `json:"listings"`
	Hotspots      *hotspot.Result           `json:"hotspots"`
	Distance      []proximity.CategoryStats `json:"distance,omitempty"`
	Boroughs      []BoroughStats            `json:"boroughs,omitempty"`
	Neighborhoods []model.NeighborhoodStats `json:"neighborhoods"`
	Summary       model.RunSummary          `json:"summary"`

	Duration time.Duration `json:"duration"`
}

// Clusters returns every cluster of every tier, in tier order.
func (r *Result) Clusters() []model.Cluster {
	var out []model.Cluster
	for _, t := range r.Hotspots.Tiers {
		out = append(out, t.Clusters...)
	}
	return out
}

// Analyzer executes runs. It holds no per-run state and is safe for
// concurrent use.
type Analyzer struct {
	log *zap.Logger
}

// New returns an Analyzer.
func New() *Analyzer {
	return &Analyzer{log: zap.L().With(zap.String("component", "analysis"))}
}

// Run validates in, projects every listing once, then runs hotspot
// detection and landmark proximity concurrently before scoring
// neighborhoods. Validation failures are returned as *model.ValidationError.
func (a *Analyzer) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	if math.IsNaN(in.Threshold) || in.Threshold < 0 {
		return nil, model.NewValidationError("threshold", in.Threshold, "must be >= 0")
	}
	if in.MaxListings < 0 {
		return nil, model.NewValidationError("max_listings", in.MaxListings, "must be >= 0")
	}

	bands := in.Bands
	if bands == nil {
		bands = hotspot.DefaultBands(in.Threshold)
	}
	detector, err := hotspot.NewDetector(bands)
	if err != nil {
		return nil, err
	}

	weights := in.Weights
	if weights.IsZero() {
		weights = scorer.DefaultWeights()
	}
	if err := scorer.ValidateWeights(weights); err != nil {
		return nil, err
	}

	engine, err := proximity.NewEngine(in.Landmarks)
	if err != nil {
		return nil, err
	}

	src := in.Listings
	if in.MaxListings > 0 && len(src) > in.MaxListings {
		src = src[:in.MaxListings]
	}
	listings, err := project(src)
	if err != nil {
		return nil, err
	}

	var hot *hotspot.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hot, err = detector.Detect(gctx, listings)
		return err
	})
	g.Go(func() error {
		engine.Annotate(listings)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		City:          in.City,
		Threshold:     in.Threshold,
		Bands:         detector.Bands(),
		Weights:       weights,
		Listings:      listings,
		Hotspots:      hot,
		Distance:      proximity.Summary(listings),
		Boroughs:      Boroughs(listings),
		Neighborhoods: scorer.ScoreNeighborhoods(listings, weights),
	}
	res.Summary = Summarize(res)
	res.Duration = time.Since(start)

	a.log.Info("analysis complete",
		zap.String("city", in.City),
		zap.Float64("threshold", in.Threshold),
		zap.Int("listings", len(listings)),
		zap.Int("clusters", hot.Total()),
		zap.Int("neighborhoods", len(res.Neighborhoods)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// project wraps every listing and fills in its Web Mercator coordinates.
func project(src []model.Listing) ([]model.AnalyzedListing, error) {
	out := make([]model.AnalyzedListing, len(src))
	for i, l := range src {
		p, err := geo.ProjectXY(l.Longitude, l.Latitude)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("listings[%d].%s", i, ve.Field)
			}
			return nil, err
		}
		a := model.NewAnalyzedListing(l)
		a.X, a.Y = p.X, p.Y
		out[i] = a
	}
	return out, nil
}
