package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ServerConfig configures the standalone websocket server.
type ServerConfig struct {
	Addr          string `env:"SETTLERS_ADDR"           envDefault:":8080"`
	GameConfig    string `env:"SETTLERS_CONFIG"         envDefault:"data/game_config.json"`
	BotIdentities string `env:"SETTLERS_BOTS"           envDefault:"data/bot_identities.json"`
	BotsEnabled   bool   `env:"SETTLERS_BOTS_ENABLED"   envDefault:"true"`
	TicketSecret  string `env:"SETTLERS_TICKET_SECRET"`
	AllowedOrigin string `env:"SETTLERS_ALLOWED_ORIGIN"`
	LogLevel      string `env:"LOG_LEVEL"               envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT"              envDefault:"text"`
}

// LoadServerConfig reads the environment, after loading the given dotenv
// files when they exist.
func LoadServerConfig(dotenv ...string) (ServerConfig, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		// A missing file is not an error; variables may come from the shell.
		_ = godotenv.Load(path)
	}
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// JSONLogs reports whether logs should be written as JSON.
func (c ServerConfig) JSONLogs() bool { return c.LogFormat == "json" }
