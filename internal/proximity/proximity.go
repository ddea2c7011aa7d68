// Package proximity measures how far each listing is from the nearest
// landmark of its city.
package proximity

import (
	"errors"
	"fmt"
	"math"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

type projectedLandmark struct {
	model.Landmark
	pt geo.XY
}

// Engine annotates listings with nearest-landmark distance. Landmarks are
// projected once at construction.
type Engine struct {
	landmarks []projectedLandmark
}

// NewEngine projects landmarks. An empty set is valid; every listing is then
// reported without a distance.
func NewEngine(landmarks []model.Landmark) (*Engine, error) {
	e := &Engine{landmarks: make([]projectedLandmark, 0, len(landmarks))}
	for i, lm := range landmarks {
		pt, err := geo.ProjectXY(lm.Longitude, lm.Latitude)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("landmarks[%d].%s", i, ve.Field)
			}
			return nil, err
		}
		e.landmarks = append(e.landmarks, projectedLandmark{Landmark: lm, pt: pt})
	}
	return e, nil
}

// Len returns the number of landmarks.
func (e *Engine) Len() int { return len(e.landmarks) }

// Nearest returns the closest landmark to pt and the planar distance to it in
// meters. ok is false when the engine has no landmarks.
func (e *Engine) Nearest(pt geo.XY) (lm model.Landmark, meters float64, ok bool) {
	best := math.Inf(1)
	for _, l := range e.landmarks {
		if d := geo.Distance(pt, l.pt); d < best {
			best = d
			lm = l.Landmark
			ok = true
		}
	}
	return lm, best, ok
}

// Annotate sets DistanceKM, HasDistance and DistanceCategory on every
// listing from its projected X/Y. It writes no other field.
func (e *Engine) Annotate(listings []model.AnalyzedListing) {
	for i := range listings {
		l := &listings[i]
		_, m, ok := e.Nearest(geo.XY{X: l.X, Y: l.Y})
		if !ok {
			l.DistanceKM = 0
			l.HasDistance = false
			l.DistanceCategory = geo.CategoryUnmatched
			continue
		}
		km := m / 1000
		l.DistanceKM = round2(km)
		l.HasDistance = true
		l.DistanceCategory = geo.DistanceCategory(km)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
