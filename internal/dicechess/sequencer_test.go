package dicechess

import (
	"errors"
	"testing"
)

func roll(types ...PieceType) DiceState {
	return DiceState{Rolled: types, Used: make([]bool, len(types))}
}

func TestPerDieConsumption(t *testing.T) {
	rules, _ := RulesFor(ModeStandard)
	s := NewSequencer(rules)
	if err := s.SetRoll(roll(Pawn, Pawn, Knight)); err != nil {
		t.Fatalf("SetRoll: %v", err)
	}
	if s.Permits(Rook) {
		t.Fatalf("rook was not rolled")
	}
	if s.Consume(Pawn) || s.State().MovesLeft != 2 {
		t.Fatalf("after first pawn: %+v", s.State())
	}
	if s.Consume(Pawn) || s.Permits(Pawn) {
		t.Fatalf("both pawn dice should be spent")
	}
	if !s.Permits(Knight) {
		t.Fatalf("knight die still unused")
	}
	if !s.Consume(Knight) {
		t.Fatalf("last die should pass the turn")
	}
	st := s.State()
	if st.Turn != Black || st.Phase != PhaseRolling || !s.Dice().Empty() {
		t.Fatalf("after pass: %+v", st)
	}
}

func TestMoveBudgetConsumption(t *testing.T) {
	rules, _ := RulesFor(ModeBudget)
	s := NewSequencer(rules)
	if err := s.SetRoll(roll(Rook, Pawn, Pawn)); err != nil {
		t.Fatalf("SetRoll: %v", err)
	}
	for i := 0; i < 2; i++ {
		if s.Consume(Pawn) {
			t.Fatalf("turn passed after %d moves", i+1)
		}
	}
	if !s.Permits(Pawn) || !s.Permits(Rook) {
		t.Fatalf("budget mode keeps every rolled type available")
	}
	if !s.Consume(Pawn) {
		t.Fatalf("third move should exhaust the budget")
	}
}

func TestSingleConsumptionAndTurnNumber(t *testing.T) {
	rules, _ := RulesFor(ModeClassic)
	s := NewSequencer(rules)
	for i, c := range []Color{White, Black} {
		if s.CurrentTurn() != c {
			t.Fatalf("move %d: turn %s", i, s.CurrentTurn())
		}
		if err := s.SetRoll(roll(Queen)); err != nil {
			t.Fatalf("SetRoll: %v", err)
		}
		if !s.Consume(Queen) {
			t.Fatalf("classic turn is one move")
		}
	}
	if s.State().TurnNumber != 2 {
		t.Fatalf("turn number = %d", s.State().TurnNumber)
	}
}

func TestSetRollGuards(t *testing.T) {
	rules, _ := RulesFor(ModeStandard)
	s := NewSequencer(rules)
	if err := s.SetRoll(roll(Pawn)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("wrong dice count: %v", err)
	}
	if err := s.SetRoll(roll(Pawn, Pawn, Pawn)); err != nil {
		t.Fatalf("SetRoll: %v", err)
	}
	if err := s.SetRoll(roll(Pawn, Pawn, Pawn)); !errors.Is(err, ErrNotRollingPhase) {
		t.Fatalf("double roll: %v", err)
	}
	if s.Consume(King) {
		t.Fatalf("consuming an unrolled type must be a no-op")
	}
}

func TestEndFirstWriterWins(t *testing.T) {
	rules, _ := RulesFor(ModeStandard)
	s := NewSequencer(rules)
	if !s.End(White, ReasonKingCapture) {
		t.Fatalf("first End should win")
	}
	if s.End(Black, ReasonTimeout) {
		t.Fatalf("second End must be ignored")
	}
	st := s.State()
	if st.Winner != White || st.Reason != ReasonKingCapture || st.Phase != PhaseEnded {
		t.Fatalf("state = %+v", st)
	}
	if err := s.SetRoll(roll(Pawn, Pawn, Pawn)); !errors.Is(err, ErrGameOver) {
		t.Fatalf("roll after end: %v", err)
	}
	s.Pass()
	if s.CurrentTurn() != White {
		t.Fatalf("Pass after end changed the turn")
	}
}

func TestRulesValidate(t *testing.T) {
	bad := []Rules{
		{DiceCount: 0, Consumption: ConsumePerDie},
		{DiceCount: 3, Consumption: "sometimes"},
		{DiceCount: 3, Consumption: ConsumeMoveBudget},
	}
	for _, r := range bad {
		if err := r.Validate(); err == nil {
			t.Fatalf("expected error for %+v", r)
		}
	}
	if _, err := ParseGameMode("blitz"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
	if m, err := ParseGameMode(""); err != nil || m != ModeStandard {
		t.Fatalf("empty mode = %q, %v", m, err)
	}
}
