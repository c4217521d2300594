package domain

// Colors assigned to roster slots in order.
var Colors = []string{"red", "blue", "white", "orange", "green", "brown"}

// ColorFor returns the color for a roster slot.
func ColorFor(slot int) string {
	return Colors[slot%len(Colors)]
}

// Participant is one roster entry, human or bot. Index is the roster slot
// and never changes for the lifetime of the match.
type Participant struct {
	Index  int
	UserID string
	Name   string
	Bot    bool
	Color  string
}

// Anyone is the receiving side of an offer open to every participant.
const Anyone = -1

// TradeOffer proposes exchanging Offer (given by From) for Want (given by
// the accepting side). Parent is set on counter-offers and names the
// original offer they respond to.
type TradeOffer struct {
	ID     string
	From   int
	To     int
	Offer  Bundle
	Want   Bundle
	Parent string
}

// IsCounter reports whether the offer responds to another offer.
func (o TradeOffer) IsCounter() bool {
	return o.Parent != ""
}

// IsOpen reports whether any participant may accept the offer.
func (o TradeOffer) IsOpen() bool {
	return o.To == Anyone
}

// Standing is one row of the final standings.
type Standing struct {
	Slot   int    `json:"slot"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Bot    bool   `json:"bot"`
	Points int    `json:"points"`
}
