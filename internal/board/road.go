package board

// LongestRoad returns the edges of one longest trail of owner's roads. A trail
// uses each edge at most once and cannot pass through a corner held by
// another participant, though it may end there.
func (b *Board) LongestRoad(owner int) []int {
	used := make(map[int]bool)
	var best []int
	for c := range b.corners {
		if !b.touchesOwnRoad(owner, c) {
			continue
		}
		if path := b.trailFrom(owner, c, used, true); len(path) > len(best) {
			best = path
		}
	}
	return best
}

func (b *Board) trailFrom(owner, c int, used map[int]bool, start bool) []int {
	if !start {
		if o := b.corners[c].owner; o != noOwner && o != owner {
			return nil
		}
	}
	var best []int
	for _, e := range b.g.cornerEdges[c] {
		if used[e] || b.edges[e] != owner {
			continue
		}
		used[e] = true
		rest := b.trailFrom(owner, b.g.otherEnd(e, c), used, false)
		used[e] = false
		if len(rest)+1 > len(best) {
			best = append([]int{e}, rest...)
		}
	}
	return best
}
