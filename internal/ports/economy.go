package ports

import "context"

// StandingReward is the gold owed to one human for where they finished.
type StandingReward struct {
	UserID string
	// Rank is 1 for the winner.
	Rank   int
	Points int
	Gold   int64
}

// EconomyPort pays standings rewards and reports balances for the lobby.
type EconomyPort interface {
	// Balance returns the user's gold.
	Balance(ctx context.Context, userID string) (int64, error)

	// PayStandings credits every reward of a finished match. Rewards of zero
	// gold are skipped. The first failure stops the payout and is returned.
	PayStandings(ctx context.Context, matchID string, rewards []StandingReward) error
}
