// Command botmatch plays seeded bot-vs-bot games and reports the score.
//
// Without -server both sides run in-process. With -server the white side is
// played through the HTTP API against the server's bot.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/dice-chess/internal/config"
	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/obslog"
)

type options struct {
	games    int
	mode     dicechess.GameMode
	white    dicechess.Difficulty
	black    dicechess.Difficulty
	seed     int64
	maxTurns int
	server   string
	player   string
}

// tally counts finished games by winner.
type tally struct {
	White     int
	Black     int
	Abandoned int
	Moves     int
	Reasons   map[dicechess.EndReason]int
}

func (t *tally) add(st dicechess.Status, moves int) {
	if t.Reasons == nil {
		t.Reasons = make(map[dicechess.EndReason]int)
	}
	t.Moves += moves
	switch {
	case st.Status != dicechess.StatusEnded:
		t.Abandoned++
		return
	case st.Winner == dicechess.White:
		t.White++
	case st.Winner == dicechess.Black:
		t.Black++
	}
	t.Reasons[st.Reason]++
}

func main() {
	var (
		games    = flag.Int("games", 100, "number of games")
		mode     = flag.String("mode", "standard", "game mode: standard, x2 or classic")
		white    = flag.String("white", "medium", "white difficulty")
		black    = flag.String("black", "medium", "black difficulty (server bot with -server)")
		seed     = flag.Int64("seed", 1, "seed of the first game; game i uses seed+i")
		maxTurns = flag.Int("max-turns", 500, "abandon a game after this many turns")
		server   = flag.String("server", "", "dice chess API base URL; empty plays in-process")
		player   = flag.String("player", "botmatch", "player id used with -server")
	)
	flag.Parse()

	var logOpts obslog.Options
	if err := appcfg.ParseEnv(&logOpts); err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(logOpts); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.Named("botmatch")
	defer func() { _ = logger.Sync() }()

	opts := options{games: *games, seed: *seed, maxTurns: *maxTurns, server: *server, player: *player}
	var err error
	if opts.mode, err = dicechess.ParseGameMode(*mode); err != nil {
		logger.Fatal("bad_mode", zap.Error(err))
	}
	if opts.white, err = dicechess.ParseDifficulty(*white); err != nil {
		logger.Fatal("bad_difficulty", zap.Error(err))
	}
	if opts.black, err = dicechess.ParseDifficulty(*black); err != nil {
		logger.Fatal("bad_difficulty", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var res tally
	if opts.server != "" {
		res, err = runRemote(ctx, opts, logger)
	} else {
		res, err = runLocal(ctx, opts, logger)
	}
	if err != nil {
		logger.Error("botmatch_failed", zap.Error(err))
	}
	played := res.White + res.Black + res.Abandoned
	logger.Info("botmatch_result",
		zap.String("mode", string(opts.mode)),
		zap.String("white", string(opts.white)),
		zap.String("black", string(opts.black)),
		zap.Int("games", played),
		zap.Int("white_wins", res.White),
		zap.Int("black_wins", res.Black),
		zap.Int("abandoned", res.Abandoned),
		zap.Int("king_captures", res.Reasons[dicechess.ReasonKingCapture]),
		zap.Int("checkmates", res.Reasons[dicechess.ReasonCheckmate]),
		zap.Int("moves", res.Moves),
		zap.Duration("took", time.Since(start)),
	)
}

func runLocal(ctx context.Context, opts options, logger *zap.Logger) (tally, error) {
	var res tally
	presets := map[dicechess.Color]dicechess.BotPreset{}
	for color, d := range map[dicechess.Color]dicechess.Difficulty{dicechess.White: opts.white, dicechess.Black: opts.black} {
		p, err := dicechess.GetBotPreset(d)
		if err != nil {
			return res, err
		}
		presets[color] = p
	}

	for i := 0; i < opts.games; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		seed := opts.seed + int64(i)
		game, err := dicechess.NewGame(dicechess.Config{Mode: opts.mode, Seed: seed})
		if err != nil {
			return res, err
		}
		for turns := 0; !game.Ended() && turns < opts.maxTurns; turns++ {
			if _, err := game.AutoPlay(ctx, presets[game.CurrentTurn()]); err != nil {
				return res, err
			}
		}
		st := game.Status()
		moves := len(game.MoveHistory())
		res.add(st, moves)
		logger.Debug("botmatch_game",
			zap.Int64("seed", seed),
			zap.String("winner", string(st.Winner)),
			zap.String("reason", string(st.Reason)),
			zap.Int("moves", moves),
		)
	}
	return res, nil
}
