package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/pkg/diceclient"
	"github.com/park285/dice-chess/pkg/dicedto"
)

const botWait = 100 * time.Millisecond

// runRemote plays white through the API against the server bot.
func runRemote(ctx context.Context, opts options, logger *zap.Logger) (tally, error) {
	var res tally
	preset, err := dicechess.GetBotPreset(opts.white)
	if err != nil {
		return res, err
	}
	client := diceclient.New(opts.server)

	for i := 0; i < opts.games; i++ {
		seed := opts.seed + int64(i)
		st, err := client.CreateGame(ctx, dicedto.CreateGameRequest{
			Player:      opts.player,
			Mode:        string(opts.mode),
			Difficulty:  string(opts.black),
			Color:       string(dicechess.White),
			TimeControl: "none",
			Seed:        seed,
		})
		if err != nil {
			return res, fmt.Errorf("create game: %w", err)
		}
		rng := rand.New(rand.NewSource(seed))
		final, err := playRemote(ctx, client, st, preset, rng, opts.maxTurns)
		if err != nil {
			return res, fmt.Errorf("game %s: %w", st.ID, err)
		}
		res.add(dicechess.Status{
			Status: dicechess.GameStatus(final.Status),
			Winner: dicechess.Color(final.Winner),
			Reason: dicechess.EndReason(final.Reason),
		}, len(final.Moves))
		logger.Debug("botmatch_game",
			zap.String("game_id", final.ID),
			zap.Int64("seed", seed),
			zap.String("winner", final.Winner),
			zap.String("reason", final.Reason),
			zap.Int("moves", len(final.Moves)),
		)
	}
	return res, nil
}

func playRemote(ctx context.Context, client *diceclient.Client, st *dicedto.GameState, preset dicechess.BotPreset, rng *rand.Rand, maxTurns int) (*dicedto.GameState, error) {
	id := st.ID
	var err error
	for st.Status != string(dicechess.StatusEnded) {
		if st.TurnNumber > maxTurns {
			return client.Resign(ctx, id, "")
		}
		switch {
		case st.BotToMove:
			if err := sleep(ctx, botWait); err != nil {
				return nil, err
			}
			st, err = client.Game(ctx, id)
		case st.Phase == string(dicechess.PhaseRolling):
			st, err = client.Roll(ctx, id)
		default:
			st, err = playOneMove(ctx, client, st, preset, rng)
		}
		var apiErr *diceclient.APIError
		if errors.As(err, &apiErr) && apiErr.Retryable {
			st, err = client.Game(ctx, id)
		}
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

func playOneMove(ctx context.Context, client *diceclient.Client, st *dicedto.GameState, preset dicechess.BotPreset, rng *rand.Rand) (*dicedto.GameState, error) {
	board, err := dicechess.ParseBoardFEN(st.FEN)
	if err != nil {
		return nil, err
	}
	allowed := make(map[dicechess.PieceType]bool, len(st.Dice.Allowed))
	for _, t := range st.Dice.Allowed {
		allowed[dicechess.PieceType(t)] = true
	}
	cand, err := dicechess.SelectMove(preset, &board, dicechess.Color(st.Turn), func(t dicechess.PieceType) bool { return allowed[t] }, rng)
	if err != nil {
		// the server passes the turn itself when nothing can move
		return client.Game(ctx, st.ID)
	}
	resp, err := client.Move(ctx, st.ID, cand.Move.From.String(), cand.Move.To.String())
	if err != nil {
		return nil, err
	}
	if !resp.Accepted {
		return nil, fmt.Errorf("server refused %s%s", cand.Move.From, cand.Move.To)
	}
	return resp.State, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
