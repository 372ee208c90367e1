package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/dice-chess/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("insufficient tokens for stake")
	ErrAlreadySettled    = errors.New("game already settled")
	ErrInvalidPlayer     = errors.New("player id required")
)

const (
	DefaultStartingTokens = 350

	settledTTL = 30 * 24 * time.Hour
	maxRetries = 5
)

// Settlement is the stake outcome of one finished game.
type Settlement struct {
	GameID   string
	PlayerID string
	Stake    int64
	Won      bool
}

// Delta is the balance change: a win pays twice the stake, a loss costs the stake.
func (s Settlement) Delta() int64 {
	if s.Won {
		return s.Stake * 2
	}
	return -s.Stake
}

// Ledger keeps player balances and records in Redis hashes.
type Ledger struct {
	rdb      *redis.Client
	starting int64
}

func NewLedger(rdb *redis.Client, startingTokens int64) *Ledger {
	if startingTokens < 0 {
		startingTokens = DefaultStartingTokens
	}
	return &Ledger{rdb: rdb, starting: startingTokens}
}

func accountKey(player string) string { return "dice:wallet:" + strings.TrimSpace(player) }
func settledKey(gameID string) string { return "dice:settled:" + strings.TrimSpace(gameID) }

// Account returns the player's account. Unknown players start with the configured balance.
func (l *Ledger) Account(ctx context.Context, player string) (domain.PlayerAccount, error) {
	if strings.TrimSpace(player) == "" {
		return domain.PlayerAccount{}, ErrInvalidPlayer
	}
	fields, err := l.rdb.HGetAll(ctx, accountKey(player)).Result()
	if err != nil {
		return domain.PlayerAccount{}, fmt.Errorf("load account: %w", err)
	}
	return l.decode(player, fields), nil
}

// CanStake reports ErrInsufficientFunds when the player cannot cover stake.
func (l *Ledger) CanStake(ctx context.Context, player string, stake int64) error {
	if stake <= 0 {
		return nil
	}
	acc, err := l.Account(ctx, player)
	if err != nil {
		return err
	}
	if acc.Tokens < stake {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, acc.Tokens, stake)
	}
	return nil
}

// Settle applies s exactly once per game id.
func (l *Ledger) Settle(ctx context.Context, s Settlement) (domain.PlayerAccount, error) {
	if strings.TrimSpace(s.PlayerID) == "" {
		return domain.PlayerAccount{}, ErrInvalidPlayer
	}
	if strings.TrimSpace(s.GameID) == "" {
		return domain.PlayerAccount{}, fmt.Errorf("settle: game id required")
	}
	accK := accountKey(s.PlayerID)
	doneK := settledKey(s.GameID)

	var out domain.PlayerAccount
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, doneK).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadySettled
		}
		fields, err := tx.HGetAll(ctx, accK).Result()
		if err != nil {
			return err
		}
		acc := l.decode(s.PlayerID, fields)
		apply(&acc, s)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, accK, encode(acc))
			pipe.Set(ctx, doneK, strconv.FormatInt(s.Delta(), 10), settledTTL)
			return nil
		})
		if err == nil {
			out = acc
		}
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := l.rdb.Watch(ctx, txf, accK, doneK)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrAlreadySettled) {
			return domain.PlayerAccount{}, err
		}
		return domain.PlayerAccount{}, fmt.Errorf("settle: %w", err)
	}
	return domain.PlayerAccount{}, fmt.Errorf("settle: %w", redis.TxFailedErr)
}

func apply(acc *domain.PlayerAccount, s Settlement) {
	delta := s.Delta()
	acc.Tokens += delta
	acc.TotalGames++
	if s.Won {
		acc.Wins++
		acc.CurrentStreak++
		if acc.CurrentStreak > acc.BestWinStreak {
			acc.BestWinStreak = acc.CurrentStreak
		}
		acc.TokensWon += delta
		return
	}
	acc.Losses++
	acc.CurrentStreak = 0
	acc.TokensLost -= delta
}

func (l *Ledger) decode(player string, f map[string]string) domain.PlayerAccount {
	acc := domain.PlayerAccount{PlayerID: player, Tokens: l.starting}
	if len(f) == 0 {
		return acc
	}
	acc.Tokens = parseInt(f["tokens"])
	acc.TotalGames = int(parseInt(f["total_games"]))
	acc.Wins = int(parseInt(f["wins"]))
	acc.Losses = int(parseInt(f["losses"]))
	acc.CurrentStreak = int(parseInt(f["current_streak"]))
	acc.BestWinStreak = int(parseInt(f["best_win_streak"]))
	acc.TokensWon = parseInt(f["tokens_won"])
	acc.TokensLost = parseInt(f["tokens_lost"])
	return acc
}

func encode(acc domain.PlayerAccount) map[string]any {
	return map[string]any{
		"tokens":          acc.Tokens,
		"total_games":     acc.TotalGames,
		"wins":            acc.Wins,
		"losses":          acc.Losses,
		"current_streak":  acc.CurrentStreak,
		"best_win_streak": acc.BestWinStreak,
		"tokens_won":      acc.TokensWon,
		"tokens_lost":     acc.TokensLost,
	}
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
