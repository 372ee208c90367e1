package wallet

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLedger(rdb, DefaultStartingTokens)
}

func TestNewPlayerStartsWithDefaultBalance(t *testing.T) {
	l := newTestLedger(t)
	acc, err := l.Account(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acc.Tokens != 350 || acc.TotalGames != 0 {
		t.Fatalf("account = %+v", acc)
	}
	if _, err := l.Account(context.Background(), " "); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("blank player: %v", err)
	}
}

func TestSettleWinAndLoss(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	acc, err := l.Settle(ctx, Settlement{GameID: "g1", PlayerID: "p1", Stake: 50, Won: true})
	if err != nil {
		t.Fatalf("Settle win: %v", err)
	}
	if acc.Tokens != 450 || acc.Wins != 1 || acc.CurrentStreak != 1 || acc.TokensWon != 100 {
		t.Fatalf("after win: %+v", acc)
	}

	acc, err = l.Settle(ctx, Settlement{GameID: "g2", PlayerID: "p1", Stake: 30})
	if err != nil {
		t.Fatalf("Settle loss: %v", err)
	}
	if acc.Tokens != 420 || acc.Losses != 1 || acc.CurrentStreak != 0 || acc.BestWinStreak != 1 || acc.TokensLost != 30 {
		t.Fatalf("after loss: %+v", acc)
	}

	stored, err := l.Account(ctx, "p1")
	if err != nil || stored != acc {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
	if stored.WinRate() != 50 {
		t.Fatalf("win rate = %f", stored.WinRate())
	}
}

func TestSettleIsIdempotentPerGame(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	s := Settlement{GameID: "g1", PlayerID: "p1", Stake: 10, Won: true}
	if _, err := l.Settle(ctx, s); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if _, err := l.Settle(ctx, s); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("second settle: %v", err)
	}
	acc, _ := l.Account(ctx, "p1")
	if acc.Tokens != 370 {
		t.Fatalf("tokens = %d", acc.Tokens)
	}
}

func TestCanStake(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	if err := l.CanStake(ctx, "p1", 350); err != nil {
		t.Fatalf("full balance stake: %v", err)
	}
	if err := l.CanStake(ctx, "p1", 351); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("over-stake: %v", err)
	}
	if err := l.CanStake(ctx, "", 0); err != nil {
		t.Fatalf("zero stake needs no account: %v", err)
	}
}
