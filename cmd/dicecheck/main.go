// Command dicecheck smoke-tests a running dice chess server: health, a short
// hot-seat game over the API, the board image and the watch feed.
package main

import (
	"context"
	"log"
	"time"

	appcfg "github.com/park285/dice-chess/internal/config"
	"github.com/park285/dice-chess/pkg/diceclient"
	"github.com/park285/dice-chess/pkg/dicedto"
)

type checkConfig struct {
	BaseURL        string        `env:"DICECHESS_BASE_URL,required,notEmpty"`
	WatchURL       string        `env:"DICECHESS_WATCH_URL"`
	RequestTimeout time.Duration `env:"DICECHESS_CHECK_REQUEST_TIMEOUT" envDefault:"8s"`
	Timeout        time.Duration `env:"DICECHESS_CHECK_TIMEOUT" envDefault:"30s"`
}

func main() {
	var cfg checkConfig
	if err := appcfg.ParseEnv(&cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}

	opts := []diceclient.Option{diceclient.WithTimeout(cfg.RequestTimeout)}
	if cfg.WatchURL != "" {
		opts = append(opts, diceclient.WithWatchURL(cfg.WatchURL))
	}
	client := diceclient.New(cfg.BaseURL, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Println("/healthz ok")

	st, err := client.CreateGame(ctx, dicedto.CreateGameRequest{Player: "dicecheck", Hotseat: true, TimeControl: "none"})
	if err != nil {
		log.Fatalf("create game error: %v", err)
	}
	log.Printf("game %s created: %s", st.ID, st.Summary)

	watchDone := make(chan error, 1)
	seen := make(chan struct{}, 1)
	go func() {
		watchDone <- client.Watch(ctx, st.ID, func(gs *dicedto.GameState) {
			log.Printf("watch v%d: %s", gs.Version, gs.Summary)
			select {
			case seen <- struct{}{}:
			default:
			}
		})
	}()
	select {
	case <-seen:
	case err := <-watchDone:
		log.Printf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		log.Println("watch: no initial state within 5s")
	}

	rolled, err := client.Roll(ctx, st.ID)
	if err != nil {
		log.Fatalf("roll error: %v", err)
	}
	log.Printf("rolled %v: %s", rolled.Dice.Rolled, rolled.Summary)

	png, err := client.BoardPNG(ctx, st.ID)
	if err != nil {
		log.Fatalf("board error: %v", err)
	}
	log.Printf("board.png ok: %d bytes", len(png))

	ended, err := client.Resign(ctx, st.ID, "")
	if err != nil {
		log.Fatalf("resign error: %v", err)
	}
	log.Printf("resigned: %s", ended.Summary)

	select {
	case err := <-watchDone:
		if err != nil {
			log.Printf("watch ended with error: %v", err)
		}
	case <-time.After(5 * time.Second):
		log.Println("watch did not observe the end of the game")
	}
}
