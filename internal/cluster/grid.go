package cluster

import (
	"math"
	"sort"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/geo"
)

type cellKey struct {
	cx, cy int64
}

// grid buckets points into square cells of side eps so a radius query only
// has to look at the 3x3 block around a point's cell.
type grid struct {
	points []geo.XY
	eps    float64
	cells  map[cellKey][]int
}

func newGrid(points []geo.XY, eps float64) *grid {
	g := &grid{points: points, eps: eps, cells: make(map[cellKey][]int)}
	for i, p := range points {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) key(p geo.XY) cellKey {
	return cellKey{
		cx: int64(math.Floor(p.X / g.eps)),
		cy: int64(math.Floor(p.Y / g.eps)),
	}
}

// neighbors returns indices within eps of point i (self included) in
// ascending index order.
func (g *grid) neighbors(i int) []int {
	p := g.points[i]
	k := g.key(p)
	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, j := range g.cells[cellKey{k.cx + dx, k.cy + dy}] {
				if geo.Distance(p, g.points[j]) <= g.eps {
					out = append(out, j)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}
