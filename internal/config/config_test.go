package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"settlers/internal/app"
)

func TestDefaultMatchesRules(t *testing.T) {
	got := Default().Rules()
	if got != app.DefaultRules() {
		t.Fatalf("Default().Rules() = %+v, want %+v", got, app.DefaultRules())
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte(`{"victory_points": 12, "turn_seconds": 45}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := c.Rules()
	if r.VictoryPoints != 12 || r.TurnTime != 45*time.Second {
		t.Fatalf("rules = %+v", r)
	}
	if r.DiscardLimit != 7 || c.Seats != 4 {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", `{"seats":`},
		{"too many seats", `{"seats": 9}`},
		{"one seat", `{"seats": 1}`},
		{"inverted delay", `{"bot_min_delay_millis": 500, "bot_max_delay_millis": 100}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Fatalf("Parse(%s) succeeded", tt.doc)
			}
		})
	}
}

func TestReward(t *testing.T) {
	c := Default()
	if c.Reward(0) != 300 || c.Reward(2) != 50 || c.Reward(3) != 0 || c.Reward(-1) != 0 {
		t.Fatalf("rewards = %v", c.RewardGold)
	}
}

func TestLoadGameConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_config.json")
	if err := os.WriteFile(path, []byte(`{"seats": 3, "reward_gold": [10]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := LoadGameConfig(path); err != nil {
		t.Fatalf("LoadGameConfig: %v", err)
	}
	c := GetGameConfig()
	if c.Seats != 3 || c.Reward(0) != 10 || c.Reward(1) != 0 {
		t.Fatalf("loaded config = %+v", c)
	}
}

func TestLoadServerConfig(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("SETTLERS_ADDR=:9999\nLOG_FORMAT=json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SETTLERS_TICKET_SECRET", "s3cret")
	t.Setenv("SETTLERS_BOTS_ENABLED", "false")
	t.Cleanup(func() {
		os.Unsetenv("SETTLERS_ADDR")
		os.Unsetenv("LOG_FORMAT")
	})

	c, err := LoadServerConfig(dotenv)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if c.Addr != ":9999" || !c.JSONLogs() || c.TicketSecret != "s3cret" || c.BotsEnabled {
		t.Fatalf("config = %+v", c)
	}
	if c.GameConfig != "data/game_config.json" || c.LogLevel != "info" {
		t.Fatalf("defaults lost: %+v", c)
	}
}
