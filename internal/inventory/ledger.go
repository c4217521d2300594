// Package inventory keeps resource and development-card counts per
// participant together with the bank's development deck.
package inventory

import (
	"fmt"

	"settlers/internal/domain"
	"settlers/internal/ports"
)

// Shuffler reorders n elements in place.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Ledger implements ports.InventoryPort in memory. It is not safe for
// concurrent use.
type Ledger struct {
	resources map[int]domain.Bundle
	cards     map[int]map[domain.DevCard]int
	deck      []domain.DevCard
}

var _ ports.InventoryPort = (*Ledger)(nil)

// New returns a ledger whose deck is drawn front to back. A nil deck means the
// standard deck in its fixed order.
func New(deck []domain.DevCard) *Ledger {
	if deck == nil {
		deck = domain.NewDevDeck()
	}
	return &Ledger{
		resources: make(map[int]domain.Bundle),
		cards:     make(map[int]map[domain.DevCard]int),
		deck:      append([]domain.DevCard(nil), deck...),
	}
}

// NewShuffled returns a ledger holding the standard deck shuffled by rng.
func NewShuffled(rng Shuffler) *Ledger {
	deck := domain.NewDevDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return New(deck)
}

func (l *Ledger) Resources(participant int) domain.Bundle {
	return l.resources[participant]
}

func (l *Ledger) AddResources(participant int, b domain.Bundle) {
	l.resources[participant] = l.resources[participant].Add(b)
}

func (l *Ledger) RemoveResources(participant int, b domain.Bundle) error {
	left := l.resources[participant].Sub(b)
	if left.HasNegative() {
		return fmt.Errorf("remove %v from participant %d holding %v: %w", b, participant, l.resources[participant], domain.ErrInventoryUnderflow)
	}
	l.resources[participant] = left
	return nil
}

// DevCards returns a copy of the participant's card counts.
func (l *Ledger) DevCards(participant int) map[domain.DevCard]int {
	out := make(map[domain.DevCard]int, len(l.cards[participant]))
	for c, n := range l.cards[participant] {
		if n > 0 {
			out[c] = n
		}
	}
	return out
}

func (l *Ledger) AddDevCard(participant int, card domain.DevCard) {
	if l.cards[participant] == nil {
		l.cards[participant] = make(map[domain.DevCard]int)
	}
	l.cards[participant][card]++
}

func (l *Ledger) RemoveDevCard(participant int, card domain.DevCard) error {
	if l.cards[participant][card] <= 0 {
		return fmt.Errorf("participant %d holds no %s: %w", participant, card, domain.ErrInventoryUnderflow)
	}
	l.cards[participant][card]--
	return nil
}

func (l *Ledger) DrawDevCard() (domain.DevCard, error) {
	if len(l.deck) == 0 {
		return 0, domain.ErrDeckEmpty
	}
	card := l.deck[0]
	l.deck = l.deck[1:]
	return card, nil
}

func (l *Ledger) DeckSize() int {
	return len(l.deck)
}
