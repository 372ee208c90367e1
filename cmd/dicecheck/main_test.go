package main

import (
	"testing"
	"time"

	appcfg "github.com/park285/dice-chess/internal/config"
)

func TestCheckConfigRequiresBaseURL(t *testing.T) {
	t.Setenv("DICECHESS_BASE_URL", "")
	var cfg checkConfig
	if err := appcfg.ParseEnv(&cfg); err == nil {
		t.Fatalf("expected error without DICECHESS_BASE_URL")
	}
}

func TestCheckConfigDefaults(t *testing.T) {
	t.Setenv("DICECHESS_BASE_URL", "http://127.0.0.1:8080")
	t.Setenv("DICECHESS_WATCH_URL", "ws://127.0.0.1:8081")
	var cfg checkConfig
	if err := appcfg.ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.BaseURL != "http://127.0.0.1:8080" || cfg.WatchURL != "ws://127.0.0.1:8081" {
		t.Fatalf("urls = %+v", cfg)
	}
	if cfg.RequestTimeout != 8*time.Second || cfg.Timeout != 30*time.Second {
		t.Fatalf("timeouts = %s %s", cfg.RequestTimeout, cfg.Timeout)
	}
}
