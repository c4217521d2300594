package ports

import "settlers/internal/domain"

// InventoryPort holds resource and development-card counts per participant
// and the bank's development deck.
type InventoryPort interface {
	Resources(participant int) domain.Bundle
	AddResources(participant int, b domain.Bundle)
	// RemoveResources is all-or-nothing and fails with
	// domain.ErrInventoryUnderflow when any count would go negative.
	RemoveResources(participant int, b domain.Bundle) error

	DevCards(participant int) map[domain.DevCard]int
	AddDevCard(participant int, card domain.DevCard)
	// RemoveDevCard fails with domain.ErrInventoryUnderflow when the
	// participant holds none of card.
	RemoveDevCard(participant int, card domain.DevCard) error
	// DrawDevCard takes the top card of the bank deck, failing with
	// domain.ErrDeckEmpty when none remain.
	DrawDevCard() (domain.DevCard, error)
	// DeckSize reports how many cards the bank deck still holds.
	DeckSize() int
}
