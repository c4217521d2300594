package app

import (
	"errors"

	"settlers/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Recorder receives match metrics. Calls happen under the match lock.
type Recorder interface {
	ActionHandled(kind ActionKind, outcome string)
	TimerExpired(phase PhaseKind)
	GameFinished()
}

type nopRecorder struct{}

func (nopRecorder) ActionHandled(ActionKind, string) {}
func (nopRecorder) TimerExpired(PhaseKind)           {}
func (nopRecorder) GameFinished()                    {}

var outcomes = []struct {
	err   error
	label string
}{
	{domain.ErrWrongPhase, "wrong_phase"},
	{domain.ErrNotYourTurn, "not_your_turn"},
	{domain.ErrInsufficientResources, "insufficient_resources"},
	{domain.ErrIllegalPlacement, "illegal_placement"},
	{domain.ErrInventoryUnderflow, "inventory_underflow"},
	{domain.ErrNegotiation, "negotiation"},
	{domain.ErrRobberAlreadyPlaced, "robber_already_placed"},
	{domain.ErrCardUnavailable, "card_unavailable"},
	{domain.ErrDeckEmpty, "deck_empty"},
	{domain.ErrFreeBuildsRemaining, "free_builds_remaining"},
	{domain.ErrMatchEnded, "match_ended"},
	{domain.ErrUnknownParticipant, "unknown_participant"},
	{domain.ErrInvalidAction, "invalid_action"},
}

// Outcome labels an action result for metrics: "ok" or the domain error
// kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})                       {}
func (nopLogger) Info(string, ...interface{})                        {}
func (nopLogger) Warn(string, ...interface{})                        {}
func (nopLogger) Error(string, ...interface{})                       {}
func (l nopLogger) WithField(string, interface{}) runtime.Logger     { return l }
func (l nopLogger) WithFields(map[string]interface{}) runtime.Logger { return l }
func (nopLogger) Fields() map[string]interface{}                     { return nil }
