package dicepresenter

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/domain"
	"github.com/park285/dice-chess/internal/msgcat"
	"github.com/park285/dice-chess/internal/session"
	"github.com/park285/dice-chess/internal/wallet"
	"github.com/park285/dice-chess/pkg/dicedto"
)

func newRecord(t *testing.T, tc string) (*dicechess.Session, *session.Record) {
	t.Helper()
	control, err := dicechess.ParseTimeControl(tc)
	if err != nil {
		t.Fatalf("ParseTimeControl: %v", err)
	}
	g, err := dicechess.NewGame(dicechess.Config{Seed: 42, TimeControl: control, Bot: &dicechess.BotSeat{Color: dicechess.Black}})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	rec := &session.Record{
		Meta:     session.Meta{ID: "g1", Player: "p1", HumanColor: dicechess.White, Difficulty: "medium"},
		Snapshot: g.Snapshot(),
	}
	return g, rec
}

func TestToGameStateInitial(t *testing.T) {
	_, rec := newRecord(t, "5+3")
	s := ToGameState(rec)

	if len(s.Squares) != 32 {
		t.Fatalf("squares = %d", len(s.Squares))
	}
	if k := s.Squares["e1"]; k.Type != "king" || k.Color != "white" || k.Symbol != "♔" {
		t.Fatalf("e1 = %+v", k)
	}
	if s.Turn != "white" || s.Phase != "rolling" || s.BotToMove || s.Check {
		t.Fatalf("state = %+v", s)
	}
	if s.Clock == nil || s.Clock.WhiteMS != 300000 || s.Clock.Control != "5+3" {
		t.Fatalf("clock = %+v", s.Clock)
	}
	if len(s.Dice.Rolled) != 0 || len(s.Dice.Allowed) != 0 {
		t.Fatalf("dice before roll = %+v", s.Dice)
	}
	if want := "White to roll · Standard · turn 1 · 5:00 5:00"; s.Summary != want {
		t.Fatalf("summary = %q, want %q", s.Summary, want)
	}
}

func TestToGameStateAfterRollAndEnd(t *testing.T) {
	g, _ := newRecord(t, "none")
	if _, err := g.RollDice(t.Context()); err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	rec := &session.Record{Meta: session.Meta{ID: "g1"}, Snapshot: g.Snapshot()}
	s := ToGameState(rec)
	switch s.Phase {
	case "awaiting_move":
		if len(s.Dice.Rolled) != 3 || len(s.Dice.Used) != 3 || len(s.Dice.Allowed) == 0 {
			t.Fatalf("dice = %+v", s.Dice)
		}
	case "rolling":
		// the roll was unusable and the turn passed
		if s.Turn != "black" || len(s.Dice.Rolled) != 0 {
			t.Fatalf("auto-passed state = %+v", s)
		}
	default:
		t.Fatalf("phase = %q", s.Phase)
	}
	if s.Clock != nil {
		t.Fatalf("unlimited game has a clock: %+v", s.Clock)
	}

	g.Resign(dicechess.White)
	ended := ToGameState(&session.Record{Snapshot: g.Snapshot()})
	if ended.Status != "ended" || ended.Winner != "black" || ended.Summary != "Black wins by resignation" {
		t.Fatalf("ended = %+v", ended)
	}
	if ended.BotToMove {
		t.Fatalf("bot to move after the game ended")
	}
}

func TestToMoveReport(t *testing.T) {
	if ToMoveReport(nil) != nil {
		t.Fatalf("nil report should stay nil")
	}
	e2, _ := dicechess.ParsePosition("e2")
	e4, _ := dicechess.ParsePosition("e4")
	rep := ToMoveReport(&dicechess.MoveReport{
		Record:     dicechess.MoveRecord{Color: dicechess.White, Piece: dicechess.Pawn, From: e2, To: e4, Text: "♙ e2 → e4"},
		TurnPassed: true,
	})
	if rep.Move.From != "e2" || rep.Move.To != "e4" || rep.Move.Piece != "pawn" || !rep.TurnPassed {
		t.Fatalf("report = %+v", rep)
	}
}

func TestToDomainError(t *testing.T) {
	cases := []struct {
		err       error
		code      string
		retryable bool
	}{
		{session.ErrNotFound, dicedto.CodeNotFound, false},
		{fmt.Errorf("wrap: %w", session.ErrInvalidRequest), dicedto.CodeInvalidRequest, false},
		{dicechess.ErrNotYourTurn, dicedto.CodeNotYourTurn, true},
		{dicechess.ErrNotRollingPhase, dicedto.CodeNotRollingPhase, false},
		{dicechess.ErrGameOver, dicedto.CodeGameOver, false},
		{fmt.Errorf("%w: have 1", wallet.ErrInsufficientFunds), dicedto.CodeInsufficientFunds, false},
		{session.ErrConflict, dicedto.CodeConflict, true},
		{fmt.Errorf("dial tcp: refused"), dicedto.CodeInternal, true},
		{dicedto.DomainError{Code: "custom"}, "custom", false},
	}
	for _, tc := range cases {
		got := ToDomainError(tc.err)
		if got.Code != tc.code || got.Retryable != tc.retryable {
			t.Fatalf("%v -> %+v, want %s/%v", tc.err, got, tc.code, tc.retryable)
		}
	}
	if got := ToDomainError(fmt.Errorf("dial tcp: refused")); got.Message != "internal error" {
		t.Fatalf("internal message leaked: %q", got.Message)
	}
}

func TestFormatterHistoryAndAccount(t *testing.T) {
	f := defaultFormatter()
	if f.History(nil) != "No finished games yet." {
		t.Fatalf("empty history = %q", f.History(nil))
	}
	games := ToGameSummaries([]*domain.DiceGame{
		{Result: "win", Difficulty: "hard", Mode: "x2", TokenDelta: 40, Reason: "king_capture", MovesUCI: []string{"e2e4"}, Duration: time.Second},
		nil,
		{Result: "hotseat", Mode: "classic", Reason: "timeout"},
	})
	want := "1. Win vs Hard (X2) +40 · king capture · 1 moves\n2. Hotseat hot-seat (Classic) +0 · timeout · 0 moves"
	if got := f.History(games); got != want {
		t.Fatalf("history =\n%s\nwant\n%s", got, want)
	}

	acc := ToAccount(domain.PlayerAccount{PlayerID: "p1", Tokens: 390, TotalGames: 4, Wins: 3, Losses: 1, CurrentStreak: 2, BestWinStreak: 2})
	if got := f.Account(acc); got != "p1: 390 tokens · 3W 1L (75.0%) · streak 2, best 2" {
		t.Fatalf("account = %q", got)
	}
}

func TestFormatterCatalogOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ko.yaml"), []byte("game:\n  over: \"대국 종료\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err := msgcat.New(dir)
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	f := NewFormatter(language.Korean, cat)
	if got := f.Summary(&dicedto.GameState{Status: "ended"}); got != "대국 종료" {
		t.Fatalf("summary = %q", got)
	}
	if got := f.Summary(&dicedto.GameState{Status: "ended", Winner: "black", Reason: "timeout"}); got != "Black wins on time" {
		t.Fatalf("non-overridden line = %q", got)
	}
}
