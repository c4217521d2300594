package domain

import "errors"

// Error kinds surfaced to the caller of a rejected action. Transports test
// them with errors.Is.
var (
	ErrWrongPhase            = errors.New("action not accepted in current phase")
	ErrNotYourTurn           = errors.New("not your turn")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrIllegalPlacement      = errors.New("illegal placement")
	ErrInventoryUnderflow    = errors.New("inventory underflow")
	ErrNegotiation           = errors.New("trade negotiation violation")
	ErrRobberAlreadyPlaced   = errors.New("robber already placed")
	ErrCannotRejoin          = errors.New("cannot rejoin match")
	ErrCardUnavailable       = errors.New("card not usable")
	ErrDeckEmpty             = errors.New("development deck empty")
	ErrFreeBuildsRemaining   = errors.New("free builds remaining")
	ErrMatchEnded            = errors.New("match has ended")
	ErrUnknownParticipant    = errors.New("participant not found")
	ErrInvalidAction         = errors.New("invalid action")
)
