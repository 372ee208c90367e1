package dicechess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestGame(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	s, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return s
}

// forceRoll installs a chosen roll in place of a random one.
func forceRoll(t *testing.T, s *Session, types ...PieceType) {
	t.Helper()
	if err := s.seq.SetRoll(roll(types...)); err != nil {
		t.Fatalf("SetRoll: %v", err)
	}
	s.ensureMovable(context.Background())
}

func TestNewGameDefaults(t *testing.T) {
	s := newTestGame(t, Config{})
	if s.Mode() != ModeStandard || s.CurrentTurn() != White || s.TurnState().Phase != PhaseRolling {
		t.Fatalf("unexpected start: mode=%s state=%+v", s.Mode(), s.TurnState())
	}
	if st := s.Status(); st.Status != StatusPlaying || st.Winner != NoColor {
		t.Fatalf("status = %+v", st)
	}
	if _, err := NewGame(Config{Mode: "nope"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("bad mode: %v", err)
	}
	if _, err := NewGame(Config{Bot: &BotSeat{Color: "green"}}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("bad bot color: %v", err)
	}
}

func TestRollDiceUsesRuleDiceCount(t *testing.T) {
	for mode, n := range map[GameMode]int{ModeClassic: 1, ModeStandard: 3, ModeDouble: 6} {
		s := newTestGame(t, Config{Mode: mode})
		d, err := s.RollDice(context.Background())
		if err != nil {
			t.Fatalf("%s: RollDice: %v", mode, err)
		}
		if len(d.Rolled) != n {
			t.Fatalf("%s: rolled %d dice", mode, len(d.Rolled))
		}
		if s.CurrentTurn() == White {
			if _, err := s.RollDice(context.Background()); !errors.Is(err, ErrNotRollingPhase) {
				t.Fatalf("%s: second roll: %v", mode, err)
			}
		}
	}
}

func TestSelectPawnShowsHints(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeClassic})
	forceRoll(t, s, Pawn)
	ctx := context.Background()
	e2 := mustSquare(t, "e2")

	if out, _ := s.SelectSquare(ctx, mustSquare(t, "g1")); out != SelectIgnored {
		t.Fatalf("knight was not rolled, got %s", out)
	}
	if out, _ := s.SelectSquare(ctx, e2); out != SelectSelected {
		t.Fatalf("select e2: %s", out)
	}
	if got := s.LegalDestinations(e2); !sameSquares(got, squares(t, "e3", "e4")) {
		t.Fatalf("hints = %v", got)
	}
	if out, _ := s.SelectSquare(ctx, mustSquare(t, "e5")); out != SelectRejected {
		t.Fatalf("illegal destination: %s", out)
	}
	if _, ok := s.Selected(); ok {
		t.Fatalf("rejected destination should clear the selection")
	}
	s.SelectSquare(ctx, e2)
	if out, _ := s.SelectSquare(ctx, e2); out != SelectDeselected {
		t.Fatalf("second click on e2: %s", out)
	}
	s.SelectSquare(ctx, e2)
	out, rep := s.SelectSquare(ctx, mustSquare(t, "e4"))
	if out != SelectMoved || rep == nil || rep.Record.Text != "♙ e2 → e4" {
		t.Fatalf("move: %s %+v", out, rep)
	}
	if !rep.TurnPassed || s.CurrentTurn() != Black || s.TurnState().Phase != PhaseRolling {
		t.Fatalf("turn did not pass: %+v", s.TurnState())
	}
	if h := s.MoveHistory(); len(h) != 1 || h[0].Piece != Pawn {
		t.Fatalf("history = %+v", h)
	}
}

func TestUnusableRollAutoPasses(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeStandard})
	forceRoll(t, s, Rook, Rook, Rook)
	st := s.TurnState()
	if st.Turn != Black || st.Phase != PhaseRolling {
		t.Fatalf("boxed-in rooks should pass the turn: %+v", st)
	}
	if len(s.MoveHistory()) != 0 {
		t.Fatalf("auto-pass must not record a move")
	}
}

func TestRemainingDiceAutoPass(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeStandard})
	forceRoll(t, s, Pawn, Rook, Rook)
	rep, ok := s.Move(context.Background(), mustSquare(t, "e2"), mustSquare(t, "e4"))
	if !ok {
		t.Fatalf("e2e4 rejected")
	}
	if !rep.AutoPassed || s.CurrentTurn() != Black {
		t.Fatalf("rook dice cannot move; report=%+v state=%+v", rep, s.TurnState())
	}
}

func TestMoveRejectsWithoutSideEffects(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeStandard})
	ctx := context.Background()
	if _, ok := s.Move(ctx, mustSquare(t, "e2"), mustSquare(t, "e4")); ok {
		t.Fatalf("move before rolling")
	}
	forceRoll(t, s, Pawn, Knight, Knight)
	before := s.Snapshot()
	for _, mv := range [][2]string{{"e7", "e5"}, {"e2", "e5"}, {"b1", "b3"}, {"f1", "c4"}} {
		if _, ok := s.Move(ctx, mustSquare(t, mv[0]), mustSquare(t, mv[1])); ok {
			t.Fatalf("%s-%s accepted", mv[0], mv[1])
		}
	}
	if s.Board() != before.Board || s.Version() != before.Version {
		t.Fatalf("rejected moves changed the session")
	}
}

func TestKingCaptureEndsGame(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeStandard})
	s.board = mustBoard(t, "4k3/8/8/8/8/8/8/4Q1K1")
	forceRoll(t, s, Queen, Pawn, Pawn)

	fired := 0
	s.OnTerminal(func(st Status) {
		fired++
		if st.Winner != White || st.Reason != ReasonKingCapture {
			t.Fatalf("terminal status = %+v", st)
		}
	})
	rep, ok := s.Move(context.Background(), mustSquare(t, "e1"), mustSquare(t, "e8"))
	if !ok || !rep.KingCaptured {
		t.Fatalf("king capture: %+v %v", rep, ok)
	}
	if s.Resign(White) {
		t.Fatalf("resign after terminal must be ignored")
	}
	if s.Tick(time.Hour) {
		t.Fatalf("tick after terminal must be ignored")
	}
	if fired != 1 {
		t.Fatalf("OnTerminal fired %d times", fired)
	}
	if _, err := s.RollDice(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Fatalf("roll after end: %v", err)
	}
	if out, _ := s.SelectSquare(context.Background(), mustSquare(t, "g1")); out != SelectIgnored {
		t.Fatalf("select after end: %s", out)
	}
}

func TestClassicCheckmate(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeClassic})
	s.board = mustBoard(t, "8/8/8/8/K7/3N4/6pp/6pk")
	forceRoll(t, s, Knight)
	rep, ok := s.Move(context.Background(), mustSquare(t, "d3"), mustSquare(t, "f2"))
	if !ok || !rep.Check {
		t.Fatalf("Nf2 should give check: %+v", rep)
	}
	st := s.Status()
	if st.Status != StatusEnded || st.Winner != White || st.Reason != ReasonCheckmate {
		t.Fatalf("status = %+v", st)
	}
}

func TestCheckFlagInMultiDiceMode(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeStandard})
	s.board = mustBoard(t, "8/8/8/8/K7/3N4/6pp/6pk")
	forceRoll(t, s, Knight, King, King)
	if _, ok := s.Move(context.Background(), mustSquare(t, "d3"), mustSquare(t, "f2")); !ok {
		t.Fatalf("Nf2 rejected")
	}
	if st := s.Status(); st.Status != StatusPlaying || !st.Check {
		t.Fatalf("status = %+v", st)
	}
}

func TestResign(t *testing.T) {
	s := newTestGame(t, Config{})
	if !s.Resign(White) {
		t.Fatalf("resign failed")
	}
	if st := s.Status(); st.Winner != Black || st.Reason != ReasonResignation {
		t.Fatalf("status = %+v", st)
	}
}

func TestClockTimeoutAndIncrement(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeClassic, TimeControl: TimeControl{Initial: time.Minute, Increment: 3 * time.Second}})
	s.Tick(10 * time.Second)
	forceRoll(t, s, Pawn)
	if _, ok := s.Move(context.Background(), mustSquare(t, "e2"), mustSquare(t, "e4")); !ok {
		t.Fatalf("e2e4 rejected")
	}
	if got := s.Clock().Remaining(White); got != 53*time.Second {
		t.Fatalf("white clock = %s", got)
	}
	if s.Tick(59 * time.Second) {
		t.Fatalf("black still has a second")
	}
	if !s.Tick(2 * time.Second) {
		t.Fatalf("black should flag")
	}
	if st := s.Status(); st.Winner != White || st.Reason != ReasonTimeout {
		t.Fatalf("status = %+v", st)
	}
}

func TestUnlimitedClockNeverFlags(t *testing.T) {
	s := newTestGame(t, Config{})
	if s.Tick(24 * time.Hour) {
		t.Fatalf("unlimited clock flagged")
	}
}

func TestPlayBotFinishesItsTurn(t *testing.T) {
	s := newTestGame(t, Config{Mode: ModeStandard, Bot: &BotSeat{Color: Black, Difficulty: DifficultyHard}})
	ctx := context.Background()
	if played, _ := s.PlayBot(ctx); played != nil {
		t.Fatalf("bot moved on white's turn")
	}
	forceRoll(t, s, Pawn, Knight, Knight)
	if out, _ := s.SelectSquare(ctx, mustSquare(t, "e2")); out != SelectSelected {
		t.Fatalf("human select: %s", out)
	}
	for _, mv := range [][2]string{{"e2", "e4"}, {"g1", "f3"}, {"b1", "c3"}} {
		if _, ok := s.Move(ctx, mustSquare(t, mv[0]), mustSquare(t, mv[1])); !ok {
			t.Fatalf("%s-%s rejected", mv[0], mv[1])
		}
	}
	if !s.BotToMove() {
		t.Fatalf("expected bot to move, state=%+v", s.TurnState())
	}
	if out, _ := s.SelectSquare(ctx, mustSquare(t, "e7")); out != SelectIgnored {
		t.Fatalf("human clicks on the bot's turn must be ignored")
	}
	if _, err := s.PlayBot(ctx); err != nil {
		t.Fatalf("PlayBot: %v", err)
	}
	if !s.Ended() && s.CurrentTurn() != White {
		t.Fatalf("bot left the turn unfinished: %+v", s.TurnState())
	}
}

func TestPacerCalledForEachPause(t *testing.T) {
	var pauses []Pause
	s := newTestGame(t, Config{
		Mode:  ModeStandard,
		Pacer: func(_ context.Context, p Pause) { pauses = append(pauses, p) },
	})
	if _, err := s.RollDice(context.Background()); err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	if len(pauses) == 0 || pauses[0] != PauseRoll {
		t.Fatalf("pauses = %v", pauses)
	}

	s = newTestGame(t, Config{
		Mode:  ModeStandard,
		Pacer: func(_ context.Context, p Pause) { pauses = append(pauses, p) },
	})
	forceRoll(t, s, Pawn, Pawn, Pawn)
	pauses = nil
	played, err := s.AutoPlay(context.Background(), preset(t, DifficultyMedium))
	if err != nil {
		t.Fatalf("AutoPlay: %v", err)
	}
	think := 0
	for _, p := range pauses {
		if p == PauseBotThink {
			think++
		}
	}
	if think != len(played) || think == 0 {
		t.Fatalf("pauses = %v for %d moves", pauses, len(played))
	}
}

func TestSleepPacerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	SleepPacer(map[Pause]time.Duration{PauseBotThink: time.Minute})(ctx, PauseBotThink)
	if time.Since(start) > time.Second {
		t.Fatalf("cancelled pacer kept sleeping")
	}
}

func TestSnapshotRoundTripContinuesDeterministically(t *testing.T) {
	ctx := context.Background()
	easy := preset(t, DifficultyEasy)
	a := newTestGame(t, Config{Mode: ModeDouble, Seed: 7, TimeControl: TimeControl{Initial: 5 * time.Minute, Increment: 3 * time.Second}})
	for i := 0; i < 6 && !a.Ended(); i++ {
		if _, err := a.AutoPlay(ctx, easy); err != nil {
			t.Fatalf("AutoPlay: %v", err)
		}
		a.Tick(time.Second)
	}

	raw, err := json.Marshal(a.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	b, err := Restore(decoded)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	again, _ := json.Marshal(b.Snapshot())
	if !bytes.Equal(raw, again) {
		t.Fatalf("restored snapshot differs:\n%s\n%s", raw, again)
	}

	for i := 0; i < 6 && !a.Ended(); i++ {
		if _, err := a.AutoPlay(ctx, easy); err != nil {
			t.Fatalf("AutoPlay a: %v", err)
		}
		if _, err := b.AutoPlay(ctx, easy); err != nil {
			t.Fatalf("AutoPlay b: %v", err)
		}
	}
	sa, _ := json.Marshal(a.Snapshot())
	sb, _ := json.Marshal(b.Snapshot())
	if !bytes.Equal(sa, sb) {
		t.Fatalf("games diverged after restore")
	}
}

func TestRestoreRejectsUnknownFormat(t *testing.T) {
	if _, err := Restore(Snapshot{Format: 99}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRestoreRejectsInconsistentDice(t *testing.T) {
	awaiting := func() Snapshot {
		snap := newTestGame(t, Config{Mode: ModeStandard, Seed: 11}).Snapshot()
		snap.Turn.Phase = PhaseAwaitingMove
		snap.Dice = DiceState{Rolled: []PieceType{Pawn, Pawn, Knight}, Used: []bool{false, false, false}}
		return snap
	}
	if _, err := Restore(awaiting()); err != nil {
		t.Fatalf("Restore of a consistent snapshot: %v", err)
	}

	short := awaiting()
	short.Dice.Used = short.Dice.Used[:1]
	if _, err := Restore(short); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("short used list: %v", err)
	}

	missing := awaiting()
	missing.Dice = DiceState{Rolled: []PieceType{Pawn, Knight}, Used: []bool{false, false}}
	if _, err := Restore(missing); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("two dice under three-dice rules: %v", err)
	}
}

func TestSnapshotAllowed(t *testing.T) {
	s := newTestGame(t, Config{})
	if got := s.Snapshot().Allowed(); len(got) != 0 {
		t.Fatalf("allowed before roll = %v", got)
	}
	forceRoll(t, s, Pawn, Pawn, Knight)
	got := s.Snapshot().Allowed()
	if len(got) != 2 || got[0] != Pawn || got[1] != Knight {
		t.Fatalf("allowed = %v", got)
	}
}
