package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"settlers/internal/domain"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// BotIdentity is one entry of the bot profile pool.
type BotIdentity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy" or "good"
}

// Level is the strategy the identity plays.
func (b BotIdentity) Level() BotLevel { return ParseLevel(b.Difficulty) }

// Participant turns the identity into a roster entry for slot. Identities
// that were never provisioned get a fresh id.
func (b BotIdentity) Participant(slot int) domain.Participant {
	id := b.UserID
	if id == "" {
		id = "bot-" + uuid.NewString()
	}
	name := b.DisplayName
	if name == "" {
		name = b.Username
	}
	if name == "" {
		name = fmt.Sprintf("Bot %d", slot+1)
	}
	return domain.Participant{Index: slot, UserID: id, Name: name, Bot: true}
}

var (
	mu          sync.RWMutex
	identities  []BotIdentity
	byUserID    map[string]BotIdentity
	loadOnce    sync.Once
	loadErr     error
	provisioned sync.Once
)

// LoadIdentities loads the bot profiles from the given path. Only the first
// call reads the file.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}
		var pool []BotIdentity
		if err := json.Unmarshal(data, &pool); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		SetIdentities(pool)
	})
	return loadErr
}

// SetIdentities replaces the pool.
func SetIdentities(pool []BotIdentity) {
	mu.Lock()
	defer mu.Unlock()
	identities = append([]BotIdentity(nil), pool...)
	byUserID = make(map[string]BotIdentity)
	for _, identity := range identities {
		if identity.UserID != "" {
			byUserID[identity.UserID] = identity
		}
	}
}

// ProvisionBots makes sure every pool entry with a device id has a Nakama
// account flagged as a bot, and records the account ids.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	provisioned.Do(func() {
		mu.Lock()
		pool := append([]BotIdentity(nil), identities...)
		mu.Unlock()

		for i := range pool {
			identity := &pool[i]
			if identity.DeviceID == "" {
				continue
			}
			userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
			if err != nil {
				logger.Error("ProvisionBots: failed to authenticate bot %s: %v", identity.Username, err)
				continue
			}
			identity.UserID = userID
			identity.Username = username

			metadata := map[string]interface{}{
				"is_bot":     true,
				"difficulty": identity.Difficulty,
			}
			if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
				logger.Warn("ProvisionBots: failed to update bot account %s: %v", userID, err)
			}
			logger.Info("ProvisionBots: bot %s (%s) is ready, difficulty %s", identity.DisplayName, userID, identity.Difficulty)
		}
		SetIdentities(pool)
	})
}

// Identity returns the pool entry for slot, wrapping around the pool. An
// empty pool yields an unnamed easy bot.
func Identity(slot int) BotIdentity {
	mu.RLock()
	defer mu.RUnlock()
	if len(identities) == 0 {
		return BotIdentity{DisplayName: fmt.Sprintf("Bot %d", slot+1), Difficulty: "easy"}
	}
	return identities[slot%len(identities)]
}

// Substitute builds the stand-in for a departing participant.
func Substitute(slot int) domain.Participant {
	return Identity(slot).Participant(slot)
}

// Lookup returns the identity behind a provisioned bot account.
func Lookup(userID string) (BotIdentity, bool) {
	mu.RLock()
	defer mu.RUnlock()
	identity, ok := byUserID[userID]
	return identity, ok
}

// IsBot reports whether userID belongs to the bot pool.
func IsBot(userID string) bool {
	_, ok := Lookup(userID)
	return ok
}
