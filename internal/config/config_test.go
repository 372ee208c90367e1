package config

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/obslog"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.StartingTokens != 350 || cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Mode != dicechess.ModeStandard || cfg.Difficulty != dicechess.DifficultyMedium {
		t.Fatalf("mode=%s difficulty=%s", cfg.Mode, cfg.Difficulty)
	}
	if cfg.Clock.Initial != 5*time.Minute || cfg.Clock.Increment != 3*time.Second {
		t.Fatalf("clock = %+v", cfg.Clock)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "legacy" || !cfg.Log.Console || cfg.Log.ToFile || cfg.Log.File != "logs/dicechess.log" {
		t.Fatalf("log defaults = %+v", cfg.Log)
	}
}

func TestLoadLogOptions(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "/tmp/dice.log")
	t.Setenv("LOG_CALLER", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := obslog.Options{Level: "debug", Format: "json", ToFile: true, File: "/tmp/dice.log", Caller: true}
	if cfg.Log != want {
		t.Fatalf("log = %+v want %+v", cfg.Log, want)
	}

	t.Setenv("LOG_TO_FILE", "maybe")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error on a non-boolean LOG_TO_FILE")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DICECHESS_DEFAULT_MODE", "x2")
	t.Setenv("DICECHESS_DEFAULT_DIFFICULTY", "expert")
	t.Setenv("DICECHESS_TIME_CONTROL", "none")
	t.Setenv("DICECHESS_PACE", "Instant")
	t.Setenv("DICECHESS_SESSION_TTL", "90m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != dicechess.ModeDouble || cfg.Difficulty != dicechess.DifficultyHard || !cfg.Clock.Unlimited() {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Pace != PaceInstant || cfg.SessionTTL != 90*time.Minute {
		t.Fatalf("pace=%q ttl=%s", cfg.Pace, cfg.SessionTTL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"DICECHESS_DEFAULT_MODE":       "blitz",
		"DICECHESS_DEFAULT_DIFFICULTY": "godlike",
		"DICECHESS_TIME_CONTROL":       "soon",
		"DICECHESS_PACE":               "slow",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("DICECHESS_STARTING_TOKENS", "lots")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}
