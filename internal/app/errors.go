package app

import (
	"fmt"

	"settlers/internal/domain"
)

// WrongPhaseError rejects an action the active phase does not accept.
type WrongPhaseError struct {
	Phase  PhaseKind
	Action ActionKind
}

func (e *WrongPhaseError) Error() string {
	return fmt.Sprintf("%s not accepted during %s", e.Action, e.Phase)
}

func (e *WrongPhaseError) Unwrap() error { return domain.ErrWrongPhase }

// NegotiationError rejects a trade action whose sender or offer membership
// does not match what the action requires.
type NegotiationError struct {
	Participant int
	OfferID     string
	ExpectOpen  bool
	Reason      string
}

func (e *NegotiationError) Error() string {
	state := "not open"
	if e.ExpectOpen {
		state = "open"
	}
	return fmt.Sprintf("negotiation: participant %d, offer %s expected %s: %s", e.Participant, e.OfferID, state, e.Reason)
}

func (e *NegotiationError) Unwrap() error { return domain.ErrNegotiation }
