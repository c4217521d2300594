// Package board implements the standard 19-tile island: tile layout,
// corner/edge adjacency, placement legality, harbors, the robber, and the
// longest-road search.
package board

import (
	"fmt"

	"settlers/internal/domain"
	"settlers/internal/ports"
)

const (
	noOwner    = -1
	centerTile = 9
)

// Standard tile mix and production numbers.
var (
	tileMix = []domain.Resource{
		domain.Lumber, domain.Lumber, domain.Lumber, domain.Lumber,
		domain.Wool, domain.Wool, domain.Wool, domain.Wool,
		domain.Grain, domain.Grain, domain.Grain, domain.Grain,
		domain.Brick, domain.Brick, domain.Brick,
		domain.Ore, domain.Ore, domain.Ore,
	}
	numberMix = []int{5, 2, 6, 3, 8, 10, 9, 12, 11, 4, 8, 10, 9, 4, 5, 6, 3, 11}
	portMix   = []domain.Port{
		{Generic: true}, {Resource: domain.Wool}, {Generic: true},
		{Resource: domain.Ore}, {Generic: true}, {Resource: domain.Grain},
		{Generic: true}, {Resource: domain.Brick}, {Resource: domain.Lumber},
	}
)

// Shuffler reorders n elements in place.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type cornerSlot struct {
	owner int
	kind  domain.PieceKind
}

// Board implements ports.BoardPort. It is not safe for concurrent use.
type Board struct {
	g       *graph
	hexes   []domain.Hex
	ports   []domain.Port
	portAt  map[int]int // corner -> index into ports
	robber  int
	corners []cornerSlot
	edges   []int
}

var _ ports.BoardPort = (*Board)(nil)

// New returns a board with the fixed beginner layout: desert in the center
// and tiles, numbers and harbors in their standard order.
func New() *Board {
	return build(tileMix, numberMix, portMix)
}

// NewShuffled returns a board with tiles, numbers and harbors shuffled by
// rng. The desert stays in the center.
func NewShuffled(rng Shuffler) *Board {
	tiles := append([]domain.Resource(nil), tileMix...)
	numbers := append([]int(nil), numberMix...)
	harbors := append([]domain.Port(nil), portMix...)
	rng.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	rng.Shuffle(len(numbers), func(i, j int) { numbers[i], numbers[j] = numbers[j], numbers[i] })
	rng.Shuffle(len(harbors), func(i, j int) { harbors[i], harbors[j] = harbors[j], harbors[i] })
	return build(tiles, numbers, harbors)
}

func build(tiles []domain.Resource, numbers []int, harbors []domain.Port) *Board {
	g := buildGraph()
	b := &Board{
		g:       g,
		portAt:  make(map[int]int),
		robber:  centerTile,
		corners: make([]cornerSlot, len(g.cornerAt)),
		edges:   make([]int, len(g.edgeCorners)),
	}
	for i := range b.corners {
		b.corners[i].owner = noOwner
	}
	for i := range b.edges {
		b.edges[i] = noOwner
	}

	next := 0
	for id := range g.centers {
		if id == centerTile {
			b.hexes = append(b.hexes, domain.Hex{ID: id, Desert: true})
			continue
		}
		b.hexes = append(b.hexes, domain.Hex{ID: id, Resource: tiles[next], Number: numbers[next]})
		next++
	}

	coast := g.coastalEdges()
	for i, p := range harbors {
		e := coast[i*len(coast)/len(harbors)]
		p.ID = i
		b.ports = append(b.ports, p)
		for _, c := range g.edgeCorners[e] {
			b.portAt[c] = i
		}
	}
	return b
}

// Corners reports the number of corners on the board.
func (b *Board) Corners() int { return len(b.corners) }

// Edges reports the number of edges on the board.
func (b *Board) Edges() int { return len(b.edges) }

// CornersOfEdge returns the two corners an edge connects.
func (b *Board) CornersOfEdge(e int) [2]int { return b.g.edgeCorners[e] }

// Ports lists every harbor.
func (b *Board) Ports() []domain.Port {
	return append([]domain.Port(nil), b.ports...)
}

func (b *Board) Hexes() []domain.Hex {
	return append([]domain.Hex(nil), b.hexes...)
}

func (b *Board) RobberHex() int { return b.robber }

func (b *Board) MoveRobber(hex int) error {
	if hex < 0 || hex >= len(b.hexes) {
		return fmt.Errorf("robber to unknown hex %d: %w", hex, domain.ErrIllegalPlacement)
	}
	if hex == b.robber {
		return fmt.Errorf("robber already on hex %d: %w", hex, domain.ErrIllegalPlacement)
	}
	b.robber = hex
	return nil
}

func (b *Board) PiecesAroundHex(hex int) []domain.Piece {
	if hex < 0 || hex >= len(b.hexes) {
		return nil
	}
	var out []domain.Piece
	for _, c := range b.g.hexCorners[hex] {
		if slot := b.corners[c]; slot.owner != noOwner {
			out = append(out, domain.Piece{Kind: slot.kind, At: c, Owner: slot.owner})
		}
	}
	return out
}

func (b *Board) HexesAtCorner(corner int) []domain.Hex {
	if corner < 0 || corner >= len(b.corners) {
		return nil
	}
	out := make([]domain.Hex, 0, 3)
	for _, h := range b.g.cornerHexes[corner] {
		out = append(out, b.hexes[h])
	}
	return out
}

func (b *Board) EdgesAtCorner(corner int) []int {
	if corner < 0 || corner >= len(b.corners) {
		return nil
	}
	return append([]int(nil), b.g.cornerEdges[corner]...)
}

func (b *Board) Place(owner int, kind domain.PieceKind, at int) error {
	switch kind {
	case domain.Settlement:
		if at < 0 || at >= len(b.corners) {
			return fmt.Errorf("settlement at unknown corner %d: %w", at, domain.ErrIllegalPlacement)
		}
		if !b.settlementSpot(at) {
			return fmt.Errorf("settlement at corner %d: %w", at, domain.ErrIllegalPlacement)
		}
		b.corners[at] = cornerSlot{owner: owner, kind: domain.Settlement}
	case domain.City:
		if at < 0 || at >= len(b.corners) {
			return fmt.Errorf("city at unknown corner %d: %w", at, domain.ErrIllegalPlacement)
		}
		if slot := b.corners[at]; slot.owner != owner || slot.kind != domain.Settlement {
			return fmt.Errorf("city at corner %d needs own settlement: %w", at, domain.ErrIllegalPlacement)
		}
		b.corners[at].kind = domain.City
	case domain.Road:
		if at < 0 || at >= len(b.edges) {
			return fmt.Errorf("road at unknown edge %d: %w", at, domain.ErrIllegalPlacement)
		}
		if b.edges[at] != noOwner {
			return fmt.Errorf("road at edge %d occupied: %w", at, domain.ErrIllegalPlacement)
		}
		b.edges[at] = owner
	default:
		return fmt.Errorf("unknown piece %v: %w", kind, domain.ErrIllegalPlacement)
	}
	return nil
}

// settlementSpot applies the occupancy and distance rules.
func (b *Board) settlementSpot(c int) bool {
	if b.corners[c].owner != noOwner {
		return false
	}
	for _, n := range b.g.neighbors(c) {
		if b.corners[n].owner != noOwner {
			return false
		}
	}
	return true
}

func (b *Board) LegalPositions(owner int, kind domain.PieceKind, setup bool) []int {
	if b.Count(owner, kind) >= kind.Supply() {
		return nil
	}
	var out []int
	switch kind {
	case domain.Settlement:
		for c := range b.corners {
			if b.settlementSpot(c) && (setup || b.touchesOwnRoad(owner, c)) {
				out = append(out, c)
			}
		}
	case domain.City:
		for c, slot := range b.corners {
			if slot.owner == owner && slot.kind == domain.Settlement {
				out = append(out, c)
			}
		}
	case domain.Road:
		for e, o := range b.edges {
			if o == noOwner && b.roadConnects(owner, e) {
				out = append(out, e)
			}
		}
	}
	return out
}

func (b *Board) touchesOwnRoad(owner, c int) bool {
	for _, e := range b.g.cornerEdges[c] {
		if b.edges[e] == owner {
			return true
		}
	}
	return false
}

// roadConnects reports whether edge e touches owner's network: an own corner
// piece at either end, or an own road at an end not held by an opponent.
func (b *Board) roadConnects(owner, e int) bool {
	for _, c := range b.g.edgeCorners[e] {
		slot := b.corners[c]
		if slot.owner == owner {
			return true
		}
		if slot.owner != noOwner {
			continue
		}
		if b.touchesOwnRoad(owner, c) {
			return true
		}
	}
	return false
}

func (b *Board) PortsOf(owner int) []domain.Port {
	seen := map[int]bool{}
	var out []domain.Port
	for c, slot := range b.corners {
		if slot.owner != owner {
			continue
		}
		if idx, ok := b.portAt[c]; ok && !seen[idx] {
			seen[idx] = true
			out = append(out, b.ports[idx])
		}
	}
	return out
}

func (b *Board) Pieces() []domain.Piece {
	var out []domain.Piece
	for c, slot := range b.corners {
		if slot.owner != noOwner {
			out = append(out, domain.Piece{Kind: slot.kind, At: c, Owner: slot.owner})
		}
	}
	for e, o := range b.edges {
		if o != noOwner {
			out = append(out, domain.Piece{Kind: domain.Road, At: e, Owner: o})
		}
	}
	return out
}

func (b *Board) Count(owner int, kind domain.PieceKind) int {
	n := 0
	if kind == domain.Road {
		for _, o := range b.edges {
			if o == owner {
				n++
			}
		}
		return n
	}
	for _, slot := range b.corners {
		if slot.owner == owner && slot.kind == kind {
			n++
		}
	}
	return n
}
