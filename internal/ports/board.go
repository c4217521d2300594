package ports

import "settlers/internal/domain"

// BoardPort is the board geometry and piece placement the match engine needs.
// Corners hold settlements and cities, edges hold roads. Implementations are
// not required to be safe for concurrent use; the match serializes calls.
type BoardPort interface {
	// Hexes lists every tile in id order.
	Hexes() []domain.Hex
	// RobberHex reports the tile currently blocked by the robber.
	RobberHex() int
	// MoveRobber relocates the robber. Unknown tiles and the current tile
	// fail with domain.ErrIllegalPlacement.
	MoveRobber(hex int) error
	// PiecesAroundHex returns the corner pieces touching a tile.
	PiecesAroundHex(hex int) []domain.Piece
	// HexesAtCorner returns the tiles touching a corner.
	HexesAtCorner(corner int) []domain.Hex
	// EdgesAtCorner returns the edges meeting at a corner.
	EdgesAtCorner(corner int) []int
	// Place puts a piece on the board. Occupied positions, distance-rule
	// violations and cities without a settlement underneath fail with
	// domain.ErrIllegalPlacement.
	Place(owner int, kind domain.PieceKind, at int) error
	// LegalPositions lists where owner may place kind. During setup,
	// settlements ignore road connectivity.
	LegalPositions(owner int, kind domain.PieceKind, setup bool) []int
	// LongestRoad returns the edges of one longest continuous road owned by
	// owner. Corners held by other participants break the road.
	LongestRoad(owner int) []int
	// PortsOf lists the harbors owner has a settlement or city on.
	PortsOf(owner int) []domain.Port
	// Pieces lists every placed piece.
	Pieces() []domain.Piece
	// Count reports how many pieces of kind owner has placed.
	Count(owner int, kind domain.PieceKind) int
}
