package domain

import "fmt"

// PieceKind identifies a buildable board piece.
type PieceKind int

const (
	Settlement PieceKind = iota
	City
	Road
)

var pieceNames = [...]string{"settlement", "city", "road"}

func (k PieceKind) String() string {
	if k < Settlement || k > Road {
		return fmt.Sprintf("piece(%d)", int(k))
	}
	return pieceNames[k]
}

// ParsePieceKind resolves a piece kind by name.
func ParsePieceKind(s string) (PieceKind, error) {
	for i, name := range pieceNames {
		if name == s {
			return PieceKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown piece %q: %w", s, ErrInvalidAction)
}

// OnCorner reports whether the piece occupies a corner rather than an edge.
func (k PieceKind) OnCorner() bool {
	return k != Road
}

// Points is the victory point value of a placed piece.
func (k PieceKind) Points() int {
	switch k {
	case Settlement:
		return 1
	case City:
		return 2
	default:
		return 0
	}
}

// Yield is the number of resource units the piece collects from a producing hex.
func (k PieceKind) Yield() int {
	return k.Points()
}

// Cost is the resource price of building the piece.
func (k PieceKind) Cost() Bundle {
	switch k {
	case Road:
		return Bundle{Brick: 1, Lumber: 1}
	case Settlement:
		return Bundle{Brick: 1, Lumber: 1, Wool: 1, Grain: 1}
	case City:
		return Bundle{Grain: 2, Ore: 3}
	default:
		return Bundle{}
	}
}

// DevCardCost is the resource price of drawing one development card.
var DevCardCost = Bundle{Wool: 1, Grain: 1, Ore: 1}

// Piece supply available to each participant.
const (
	MaxSettlements = 5
	MaxCities      = 4
	MaxRoads       = 15
)

// Supply returns how many pieces of kind k a participant may own at once.
func (k PieceKind) Supply() int {
	switch k {
	case Settlement:
		return MaxSettlements
	case City:
		return MaxCities
	default:
		return MaxRoads
	}
}

// Bonus victory points.
const (
	LargestArmyPoints = 2
	LongestRoadPoints = 2
)

// Piece is a placed piece. At is a corner id for settlements and cities and
// an edge id for roads.
type Piece struct {
	Kind  PieceKind
	At    int
	Owner int
}

// Hex is one board tile. Number is the production roll (0 for the desert).
type Hex struct {
	ID       int
	Resource Resource
	Number   int
	Desert   bool
}

// Produces reports whether the hex yields resources on roll n.
func (h Hex) Produces(n int) bool {
	return !h.Desert && h.Number == n
}

// Port is a harbor. Generic ports trade any resource 3:1, others trade
// their resource 2:1.
type Port struct {
	ID       int
	Resource Resource
	Generic  bool
}

// Divisor is the bank exchange divisor the port grants for resource r,
// or 0 when it does not apply.
func (p Port) Divisor(r Resource) int {
	if p.Generic {
		return 3
	}
	if p.Resource == r {
		return 2
	}
	return 0
}

// DefaultBankDivisor applies when no owned port improves the ratio.
const DefaultBankDivisor = 4

// BankDivisor returns the best exchange divisor for r given the owned ports.
func BankDivisor(ports []Port, r Resource) int {
	best := DefaultBankDivisor
	for _, p := range ports {
		if d := p.Divisor(r); d != 0 && d < best {
			best = d
		}
	}
	return best
}

// BankQuote is the number of bank resources an offer buys: the sum over
// each offered type of amount divided by its divisor, rounded down.
func BankQuote(ports []Port, offer Bundle) int {
	total := 0
	for i, n := range offer {
		if n == 0 {
			continue
		}
		total += n / BankDivisor(ports, Resource(i))
	}
	return total
}
