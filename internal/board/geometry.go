package board

import (
	"math"
	"sort"
)

// point is a lattice coordinate. Hex centers sit at (2q+r, 3r) for axial
// (q, r) and corners at fixed offsets from them, so shared corners of
// neighbouring hexes land on the same point.
type point struct{ x, y int }

var cornerOffsets = [6]point{{0, -2}, {1, -1}, {1, 1}, {0, 2}, {-1, 1}, {-1, -1}}

// graph is the static adjacency of a board.
type graph struct {
	centers     []point
	hexCorners  [][6]int
	cornerHexes [][]int
	cornerEdges [][]int
	edgeCorners [][2]int
	cornerAt    []point
}

// axialRing returns the axial coordinates of a radius-2 board in a fixed
// column-major order. The center tile is index 9.
func axialRing() [][2]int {
	var out [][2]int
	for q := -2; q <= 2; q++ {
		for r := -2; r <= 2; r++ {
			s := -q - r
			if s < -2 || s > 2 {
				continue
			}
			out = append(out, [2]int{q, r})
		}
	}
	return out
}

func buildGraph() *graph {
	g := &graph{}
	cornerID := map[point]int{}
	edgeID := map[[2]int]int{}

	for _, qr := range axialRing() {
		c := point{2*qr[0] + qr[1], 3 * qr[1]}
		g.centers = append(g.centers, c)
		hex := len(g.centers) - 1

		var corners [6]int
		for i, off := range cornerOffsets {
			p := point{c.x + off.x, c.y + off.y}
			id, ok := cornerID[p]
			if !ok {
				id = len(g.cornerAt)
				cornerID[p] = id
				g.cornerAt = append(g.cornerAt, p)
				g.cornerHexes = append(g.cornerHexes, nil)
				g.cornerEdges = append(g.cornerEdges, nil)
			}
			corners[i] = id
			g.cornerHexes[id] = append(g.cornerHexes[id], hex)
		}
		g.hexCorners = append(g.hexCorners, corners)

		for i := range corners {
			a, b := corners[i], corners[(i+1)%6]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if _, ok := edgeID[key]; ok {
				continue
			}
			id := len(g.edgeCorners)
			edgeID[key] = id
			g.edgeCorners = append(g.edgeCorners, key)
			g.cornerEdges[a] = append(g.cornerEdges[a], id)
			g.cornerEdges[b] = append(g.cornerEdges[b], id)
		}
	}
	return g
}

// otherEnd returns the corner of edge e that is not c.
func (g *graph) otherEnd(e, c int) int {
	ends := g.edgeCorners[e]
	if ends[0] == c {
		return ends[1]
	}
	return ends[0]
}

// neighbors returns the corners one edge away from c.
func (g *graph) neighbors(c int) []int {
	out := make([]int, 0, 3)
	for _, e := range g.cornerEdges[c] {
		out = append(out, g.otherEnd(e, c))
	}
	return out
}

// coastalEdges returns edges touching a single hex, ordered clockwise by the
// angle of their midpoint around the board center.
func (g *graph) coastalEdges() []int {
	var coast []int
	for e, ends := range g.edgeCorners {
		if shared(g.cornerHexes[ends[0]], g.cornerHexes[ends[1]]) == 1 {
			coast = append(coast, e)
		}
	}
	angle := func(e int) float64 {
		a, b := g.cornerAt[g.edgeCorners[e][0]], g.cornerAt[g.edgeCorners[e][1]]
		// y is scaled by 1/sqrt(3) to undo the lattice stretch.
		mx := float64(a.x+b.x) / 2
		my := float64(a.y+b.y) / 2 / math.Sqrt(3)
		return math.Atan2(my, mx)
	}
	sort.Slice(coast, func(i, j int) bool { return angle(coast[i]) < angle(coast[j]) })
	return coast
}

func shared(a, b []int) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				n++
			}
		}
	}
	return n
}
