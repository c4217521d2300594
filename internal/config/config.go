package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"settlers/internal/app"
)

// GameConfig is the tunable part of a match and of the lobby around it.
type GameConfig struct {
	VictoryPoints  int `json:"victory_points"`
	DiscardLimit   int `json:"discard_limit"`
	LongestRoadMin int `json:"longest_road_min"`
	ArmyThreshold  int `json:"army_threshold"`

	SetupSeconds   int `json:"setup_seconds"`
	RollSeconds    int `json:"roll_seconds"`
	TurnSeconds    int `json:"turn_seconds"`
	DiscardSeconds int `json:"discard_seconds"`
	RobberSeconds  int `json:"robber_seconds"`

	// Seats is the roster size quick matches fill up to.
	Seats int `json:"seats"`
	// ShuffleBoard randomizes tiles, numbers and harbors for every match.
	ShuffleBoard bool `json:"shuffle_board"`
	// BotAutoFillDelaySeconds is how long a lobby waits before bots take the
	// empty seats.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	BotMinDelayMillis       int `json:"bot_min_delay_millis"`
	BotMaxDelayMillis       int `json:"bot_max_delay_millis"`

	// RewardGold is paid by final standing: first entry to the winner.
	RewardGold []int64 `json:"reward_gold"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the standard configuration.
func Default() GameConfig {
	r := app.DefaultRules()
	return GameConfig{
		VictoryPoints:           r.VictoryPoints,
		DiscardLimit:            r.DiscardLimit,
		LongestRoadMin:          r.LongestRoadMin,
		ArmyThreshold:           r.ArmyThreshold,
		SetupSeconds:            int(r.SetupTime / time.Second),
		RollSeconds:             int(r.RollTime / time.Second),
		TurnSeconds:             int(r.TurnTime / time.Second),
		DiscardSeconds:          int(r.DiscardTime / time.Second),
		RobberSeconds:           int(r.RobberTime / time.Second),
		Seats:                   4,
		BotAutoFillDelaySeconds: 15,
		BotMinDelayMillis:       600,
		BotMaxDelayMillis:       1800,
		RewardGold:              []int64{300, 150, 50},
	}
}

// LoadGameConfig loads the game configuration from the given path. Fields
// left out of the file keep their defaults.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// Parse decodes a configuration document over the defaults.
func Parse(data []byte) (GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return GameConfig{}, err
	}
	return c, nil
}

// Validate rejects configurations no match could run with.
func (c GameConfig) Validate() error {
	if c.Seats < app.MinParticipants || c.Seats > app.MaxParticipants {
		return fmt.Errorf("seats must be %d-%d, got %d", app.MinParticipants, app.MaxParticipants, c.Seats)
	}
	if c.BotMaxDelayMillis < c.BotMinDelayMillis {
		return fmt.Errorf("bot delay range inverted: %d > %d", c.BotMinDelayMillis, c.BotMaxDelayMillis)
	}
	return nil
}

// GetGameConfig returns the loaded configuration, or the defaults when none
// was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		d := Default()
		return &d
	}
	return cfg
}

// Rules maps the configuration onto match rules. Zero fields fall back to
// the match defaults.
func (c GameConfig) Rules() app.Rules {
	return app.Rules{
		VictoryPoints:  c.VictoryPoints,
		DiscardLimit:   c.DiscardLimit,
		LongestRoadMin: c.LongestRoadMin,
		ArmyThreshold:  c.ArmyThreshold,
		SetupTime:      seconds(c.SetupSeconds),
		RollTime:       seconds(c.RollSeconds),
		TurnTime:       seconds(c.TurnSeconds),
		DiscardTime:    seconds(c.DiscardSeconds),
		RobberTime:     seconds(c.RobberSeconds),
	}
}

// Reward returns the gold paid for finishing at rank (0 is the winner).
func (c GameConfig) Reward(rank int) int64 {
	if rank < 0 || rank >= len(c.RewardGold) {
		return 0
	}
	return c.RewardGold[rank]
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
