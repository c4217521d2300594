package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"settlers/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

const walletCurrency = "gold"

// walletAPI is the part of runtime.NakamaModule the economy adapter needs.
type walletAPI interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
	WalletUpdate(ctx context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, updateLedger bool) (map[string]int64, map[string]int64, error)
}

// NakamaEconomyAdapter pays standings into Nakama wallets.
type NakamaEconomyAdapter struct {
	nk walletAPI
}

// NewNakamaEconomyAdapter creates a new economy adapter.
func NewNakamaEconomyAdapter(nk walletAPI) *NakamaEconomyAdapter {
	return &NakamaEconomyAdapter{nk: nk}
}

// Balance reads the gold entry of the user's wallet.
func (a *NakamaEconomyAdapter) Balance(ctx context.Context, userID string) (int64, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account.GetWallet() == "" {
		return 0, nil
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.GetWallet()), &wallet); err != nil {
		return 0, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return wallet[walletCurrency], nil
}

// PayStandings writes one ledgered wallet update per reward.
func (a *NakamaEconomyAdapter) PayStandings(ctx context.Context, matchID string, rewards []ports.StandingReward) error {
	for _, r := range rewards {
		if r.Gold == 0 {
			continue
		}
		changes := map[string]int64{walletCurrency: r.Gold}
		metadata := map[string]interface{}{
			"match_id": matchID,
			"rank":     r.Rank,
			"points":   r.Points,
			"reason":   "game_settlement",
		}
		if _, _, err := a.nk.WalletUpdate(ctx, r.UserID, changes, metadata, true); err != nil {
			return fmt.Errorf("failed to pay %s for rank %d: %w", r.UserID, r.Rank, err)
		}
	}
	return nil
}
