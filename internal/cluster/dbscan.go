// Package cluster implements density-based clustering (DBSCAN) over planar
// points.
package cluster

import (
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// Noise is the label for points that belong to no cluster.
const Noise = model.NoiseLabel

const unvisited = -2

// Params configures a DBSCAN run.
type Params struct {
	Eps    float64 // neighborhood radius in meters, inclusive
	MinPts int     // neighbors required for a core point, self included
}

// Validate checks that Eps is positive and MinPts is at least 1.
func (p Params) Validate() error {
	if !(p.Eps > 0) {
		return model.NewValidationError("eps", p.Eps, "must be > 0")
	}
	if p.MinPts < 1 {
		return model.NewValidationError("min_pts", p.MinPts, "must be >= 1")
	}
	return nil
}

// DBSCAN labels each point with a cluster id (0, 1, 2, ... in discovery
// order) or Noise. Points are visited in index order; border points keep the
// first cluster that reaches them.
func DBSCAN(points []geo.XY, p Params) ([]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	labels := make([]int, len(points))
	if len(points) == 0 {
		return labels, nil
	}
	for i := range labels {
		labels[i] = unvisited
	}

	idx := newGrid(points, p.Eps)
	next := 0
	var queue []int

	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		seeds := idx.neighbors(i)
		if len(seeds) < p.MinPts {
			labels[i] = Noise
			continue
		}

		id := next
		next++
		labels[i] = id

		queue = queue[:0]
		for _, j := range seeds {
			if j != i {
				queue = append(queue, j)
			}
		}
		for head := 0; head < len(queue); head++ {
			j := queue[head]
			switch labels[j] {
			case Noise:
				// Border point previously marked noise.
				labels[j] = id
				continue
			case unvisited:
				labels[j] = id
			default:
				continue
			}
			nb := idx.neighbors(j)
			if len(nb) < p.MinPts {
				continue
			}
			for _, k := range nb {
				if labels[k] == unvisited || labels[k] == Noise {
					queue = append(queue, k)
				}
			}
		}
	}
	return labels, nil
}

// Count returns the number of distinct non-noise labels.
func Count(labels []int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		if l != Noise {
			seen[l] = struct{}{}
		}
	}
	return len(seen)
}

// BruteForceNeighbors returns the indices within eps of point i, including i,
// by scanning every point.
func BruteForceNeighbors(points []geo.XY, i int, eps float64) []int {
	var out []int
	for j := range points {
		if geo.Distance(points[i], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}
