package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/obslog"
)

// Pace values for DICECHESS_PACE.
const (
	PaceInstant  = "instant"
	PaceRealtime = "realtime"
)

type AppConfig struct {
	HTTPAddr string `env:"DICECHESS_HTTP_ADDR" envDefault:":8080"`
	WSAddr   string `env:"DICECHESS_WS_ADDR" envDefault:":8081"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	DefaultMode       string        `env:"DICECHESS_DEFAULT_MODE" envDefault:"standard"`
	DefaultDifficulty string        `env:"DICECHESS_DEFAULT_DIFFICULTY" envDefault:"medium"`
	TimeControl       string        `env:"DICECHESS_TIME_CONTROL" envDefault:"5+3"`
	SessionTTL        time.Duration `env:"DICECHESS_SESSION_TTL" envDefault:"24h"`
	StartingTokens    int64         `env:"DICECHESS_STARTING_TOKENS" envDefault:"350"`
	BotPresetsFile    string        `env:"DICECHESS_BOT_PRESETS_FILE"`
	Pace              string        `env:"DICECHESS_PACE" envDefault:"realtime"`
	MessagesDir       string        `env:"DICECHESS_MESSAGES_DIR"`

	Log obslog.Options

	// Resolved by Load.
	Mode       dicechess.GameMode
	Difficulty dicechess.Difficulty
	Clock      dicechess.TimeControl
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the enumerated settings.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) resolve() error {
	var err error
	if c.Mode, err = dicechess.ParseGameMode(c.DefaultMode); err != nil {
		return fmt.Errorf("DICECHESS_DEFAULT_MODE: %w", err)
	}
	if c.Difficulty, err = dicechess.ParseDifficulty(c.DefaultDifficulty); err != nil {
		return fmt.Errorf("DICECHESS_DEFAULT_DIFFICULTY: %w", err)
	}
	if c.Clock, err = dicechess.ParseTimeControl(c.TimeControl); err != nil {
		return fmt.Errorf("DICECHESS_TIME_CONTROL: %w", err)
	}
	c.Pace = strings.ToLower(strings.TrimSpace(c.Pace))
	if c.Pace != PaceInstant && c.Pace != PaceRealtime {
		return fmt.Errorf("DICECHESS_PACE must be %q or %q, got %q", PaceInstant, PaceRealtime, c.Pace)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("DICECHESS_SESSION_TTL must be positive")
	}
	if c.StartingTokens < 0 {
		return fmt.Errorf("DICECHESS_STARTING_TOKENS must not be negative")
	}
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	return nil
}
