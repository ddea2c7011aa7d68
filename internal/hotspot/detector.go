package hotspot

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/cluster"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// TierResult is the clustering outcome for one price band. A skipped tier
// has no clusters and a SkipReason; it is not an error.
type TierResult struct {
	Band       model.PriceBand `json:"band"`
	Clusters   []model.Cluster `json:"clusters"`
	Members    int             `json:"members"`
	Skipped    bool            `json:"skipped"`
	SkipReason string          `json:"skip_reason,omitempty"`
}

// Result holds one TierResult per band, in band order.
type Result struct {
	Tiers []TierResult `json:"tiers"`
}

// Clusters returns the clusters of the named tier, or nil if there is no
// such tier.
func (r *Result) Clusters(tier string) []model.Cluster {
	for _, t := range r.Tiers {
		if t.Band.Name == tier {
			return t.Clusters
		}
	}
	return nil
}

// Total returns the number of clusters across all tiers.
func (r *Result) Total() int {
	n := 0
	for _, t := range r.Tiers {
		n += len(t.Clusters)
	}
	return n
}

// Detector runs density clustering per price band.
type Detector struct {
	bands []model.PriceBand
	log   *zap.Logger
}

// NewDetector validates bands and returns a Detector over a private copy.
func NewDetector(bands []model.PriceBand) (*Detector, error) {
	if err := ValidateBands(bands); err != nil {
		return nil, err
	}
	return &Detector{
		bands: append([]model.PriceBand(nil), bands...),
		log:   zap.L().With(zap.String("component", "hotspot")),
	}, nil
}

// Bands returns a copy of the detector's band table.
func (d *Detector) Bands() []model.PriceBand {
	return append([]model.PriceBand(nil), d.bands...)
}

// Detect partitions listings by price, clusters every populated band
// concurrently and summarizes the clusters. X and Y must already hold the
// projected coordinates. Tier and ClusterID are written back to listings;
// each band only touches its own members.
func (d *Detector) Detect(ctx context.Context, listings []model.AnalyzedListing) (*Result, error) {
	parts := make([][]int, len(d.bands))
	for i := range listings {
		listings[i].Tier = ""
		listings[i].ClusterID = cluster.Noise
		if b, ok := BandFor(d.bands, listings[i].Price); ok {
			parts[b] = append(parts[b], i)
			listings[i].Tier = d.bands[b].Name
		}
	}

	res := &Result{Tiers: make([]TierResult, len(d.bands))}
	g, ctx := errgroup.WithContext(ctx)
	for b := range d.bands {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tr, err := d.detectTier(d.bands[b], parts[b], listings)
			if err != nil {
				return err
			}
			res.Tiers[b] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Detector) detectTier(band model.PriceBand, members []int, listings []model.AnalyzedListing) (TierResult, error) {
	tr := TierResult{Band: band, Clusters: []model.Cluster{}, Members: len(members)}

	switch {
	case len(members) == 0:
		tr.Skipped = true
		tr.SkipReason = "no listings in price range"
	case len(members) < band.MinListings:
		tr.Skipped = true
		tr.SkipReason = fmt.Sprintf("%d listings, need at least %d", len(members), band.MinListings)
	}
	if tr.Skipped {
		d.log.Debug("tier skipped",
			zap.String("tier", band.Name),
			zap.Int("members", len(members)),
			zap.String("reason", tr.SkipReason),
		)
		return tr, nil
	}

	pts := make([]geo.XY, len(members))
	for k, i := range members {
		pts[k] = geo.XY{X: listings[i].X, Y: listings[i].Y}
	}
	labels, err := cluster.DBSCAN(pts, cluster.Params{Eps: band.EpsMeters, MinPts: band.MinPts})
	if err != nil {
		return TierResult{}, err
	}
	for k, i := range members {
		listings[i].ClusterID = labels[k]
	}

	tr.Clusters = summarize(band.Name, members, labels, listings)
	d.log.Debug("tier clustered",
		zap.String("tier", band.Name),
		zap.Int("members", len(members)),
		zap.Int("clusters", len(tr.Clusters)),
	)
	return tr, nil
}

// summarize builds one Cluster per non-noise label, sorted by average price
// descending with ties broken by cluster id.
func summarize(tier string, members, labels []int, listings []model.AnalyzedListing) []model.Cluster {
	type acc struct {
		lats, lons []float64
		sum, max   float64
	}
	byID := make(map[int]*acc)
	var order []int
	for k, id := range labels {
		if id == cluster.Noise {
			continue
		}
		a, ok := byID[id]
		if !ok {
			a = &acc{}
			byID[id] = a
			order = append(order, id)
		}
		// Proximity annotation writes the distance fields concurrently; read
		// only coordinates and price.
		l := &listings[members[k]]
		a.lats = append(a.lats, l.Latitude)
		a.lons = append(a.lons, l.Longitude)
		a.sum += l.Price
		if l.Price > a.max {
			a.max = l.Price
		}
	}

	out := make([]model.Cluster, 0, len(order))
	for _, id := range order {
		a := byID[id]
		lat, lon := geo.Centroid(a.lats, a.lons)
		n := len(a.lats)
		out = append(out, model.Cluster{
			Tier:         tier,
			ClusterID:    id,
			CenterLat:    lat,
			CenterLon:    lon,
			ListingCount: n,
			AvgPrice:     a.sum / float64(n),
			MaxPrice:     a.max,
			TotalValue:   a.sum,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgPrice != out[j].AvgPrice {
			return out[i].AvgPrice > out[j].AvgPrice
		}
		return out[i].ClusterID < out[j].ClusterID
	})
	return out
}
