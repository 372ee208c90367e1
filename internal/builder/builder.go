// Package builder wires the dice chess service from configuration.
package builder

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/park285/dice-chess/internal/adapter/dicepresenter"
	"github.com/park285/dice-chess/internal/config"
	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/httpapi"
	"github.com/park285/dice-chess/internal/msgcat"
	"github.com/park285/dice-chess/internal/render"
	"github.com/park285/dice-chess/internal/results"
	"github.com/park285/dice-chess/internal/session"
	"github.com/park285/dice-chess/internal/wallet"
	"github.com/park285/dice-chess/internal/watch"
)

type Deps struct {
	Manager *session.Manager
	API     *httpapi.Server
	Watch   *watch.Server
	Ledger  *wallet.Ledger
	Results results.Repository
	Redis   *redis.Client

	embedded *miniredis.Miniredis
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(cfg.BotPresetsFile) != "" {
		raw, err := os.ReadFile(cfg.BotPresetsFile)
		if err != nil {
			return nil, fmt.Errorf("read bot presets: %w", err)
		}
		if err := dicechess.ApplyBotPresetsYAML(raw); err != nil {
			return nil, fmt.Errorf("apply bot presets: %w", err)
		}
		logger.Info("bot_presets_loaded", zap.String("file", cfg.BotPresetsFile))
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	dicepresenter.UseFormatter(dicepresenter.NewFormatter(language.English, cat))

	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	// Redis (embedded when REDIS_URL is empty)
	if cfg.RedisURL != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.Redis = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = d.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	} else {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		d.embedded = mr
		d.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger.Warn("redis_embedded", zap.String("addr", mr.Addr()), zap.String("hint", "set REDIS_URL to keep sessions across restarts"))
	}

	repo, err := openResults(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	d.Results = repo
	logger.Info("results_repository", zap.String("backend", resultsBackend(cfg.DatabaseURL)))

	d.Ledger = wallet.NewLedger(d.Redis, cfg.StartingTokens)

	pacer := dicechess.PacerFunc(dicechess.InstantPacer)
	if cfg.Pace == config.PaceRealtime {
		pacer = dicechess.SleepPacer(dicechess.DefaultPauses)
	}
	d.Manager, err = session.NewManager(session.Options{
		Store:             session.NewRedisStore(d.Redis, cfg.SessionTTL),
		Wallet:            d.Ledger,
		Results:           d.Results,
		Pacer:             pacer,
		DefaultMode:       cfg.Mode,
		DefaultDifficulty: cfg.Difficulty,
		DefaultClock:      cfg.Clock,
		IdleTimeout:       cfg.SessionTTL,
		Logger:            logger.Named("session"),
	})
	if err != nil {
		return nil, err
	}

	d.API, err = httpapi.New(httpapi.Deps{
		Manager:  d.Manager,
		Accounts: d.Ledger,
		Results:  d.Results,
		Renderer: render.NewSVGBoardRenderer(),
		Logger:   logger.Named("httpapi"),
	})
	if err != nil {
		return nil, err
	}
	d.Watch = watch.New(d.Manager, logger.Named("watch"))

	ok = true
	return d, nil
}

// Close releases the stores. Servers are shut down by the caller first.
func (d *Deps) Close() {
	if d.Manager != nil {
		d.Manager.Close()
	}
	if d.Results != nil {
		_ = d.Results.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.embedded != nil {
		d.embedded.Close()
	}
}

func openResults(ctx context.Context, raw string) (results.Repository, error) {
	switch resultsBackend(raw) {
	case "postgres":
		return results.OpenPostgres(ctx, raw)
	case "sqlite":
		return results.OpenSQLite(ctx, strings.TrimPrefix(raw, "sqlite://"))
	}
	return results.NewMemoryRepository(), nil
}

func resultsBackend(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "memory"
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "postgres"
	}
	return "sqlite"
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	addr := u.Host
	if u.Port() == "" {
		addr = u.Hostname() + ":6379"
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: addr, Username: u.User.Username(), Password: pass, DB: db}, nil
}
