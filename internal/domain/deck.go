package domain

import "fmt"

// DevCard is a development card type.
type DevCard int

const (
	Knight DevCard = iota
	RoadBuilding
	YearOfPlenty
	Monopoly
	VictoryPoint
)

var devCardNames = [...]string{"knight", "road_building", "year_of_plenty", "monopoly", "victory_point"}

func (c DevCard) String() string {
	if c < Knight || c > VictoryPoint {
		return fmt.Sprintf("card(%d)", int(c))
	}
	return devCardNames[c]
}

// ParseDevCard resolves a card type by name.
func ParseDevCard(s string) (DevCard, error) {
	for i, name := range devCardNames {
		if name == s {
			return DevCard(i), nil
		}
	}
	return 0, fmt.Errorf("unknown card %q: %w", s, ErrInvalidAction)
}

// Playable reports whether the card has an effect that is used from the hand.
// Victory point cards count passively and are never played.
func (c DevCard) Playable() bool {
	return c >= Knight && c < VictoryPoint
}

// deckComposition is the standard bank deck.
var deckComposition = [...]struct {
	card  DevCard
	count int
}{
	{Knight, 14},
	{VictoryPoint, 5},
	{RoadBuilding, 2},
	{YearOfPlenty, 2},
	{Monopoly, 2},
}

// NewDevDeck returns the standard 25-card deck in a fixed order.
func NewDevDeck() []DevCard {
	deck := make([]DevCard, 0, 25)
	for _, entry := range deckComposition {
		for i := 0; i < entry.count; i++ {
			deck = append(deck, entry.card)
		}
	}
	return deck
}
