package dicechess

import "fmt"

// Phase is the sequencer state within a turn.
type Phase string

const (
	PhaseRolling      Phase = "rolling"
	PhaseAwaitingMove Phase = "awaiting_move"
	PhaseEnded        Phase = "ended"
)

// GameStatus is the coarse lifecycle of a game.
type GameStatus string

const (
	StatusPlaying GameStatus = "playing"
	StatusEnded   GameStatus = "ended"
)

// EndReason records how a game reached Terminal.
type EndReason string

const (
	ReasonNone        EndReason = ""
	ReasonKingCapture EndReason = "king_capture"
	ReasonResignation EndReason = "resignation"
	ReasonTimeout     EndReason = "timeout"
	ReasonCheckmate   EndReason = "checkmate"
)

// TurnState is whose turn it is and how much of it is left.
type TurnState struct {
	Turn       Color      `json:"turn"`
	Phase      Phase      `json:"phase"`
	MovesLeft  int        `json:"moves_left"`
	TurnNumber int        `json:"turn_number"`
	Status     GameStatus `json:"status"`
	Winner     Color      `json:"winner,omitempty"`
	Reason     EndReason  `json:"reason,omitempty"`
}

// Sequencer is the turn/dice state machine:
// rolling -> awaiting_move -> rolling (opponent), with ended reachable from anywhere.
type Sequencer struct {
	rules Rules
	state TurnState
	dice  DiceState
}

func NewSequencer(rules Rules) *Sequencer {
	return &Sequencer{
		rules: rules,
		state: TurnState{
			Turn:       White,
			Phase:      PhaseRolling,
			TurnNumber: 1,
			Status:     StatusPlaying,
		},
	}
}

func (s *Sequencer) Rules() Rules { return s.rules }
func (s *Sequencer) State() TurnState { return s.state }
func (s *Sequencer) Dice() DiceState { return s.dice.clone() }
func (s *Sequencer) Ended() bool { return s.state.Status == StatusEnded }
func (s *Sequencer) Awaiting() bool { return s.state.Phase == PhaseAwaitingMove }
func (s *Sequencer) CurrentTurn() Color { return s.state.Turn }

// SetRoll installs a completed roll for the side to move.
func (s *Sequencer) SetRoll(d DiceState) error {
	if s.Ended() {
		return ErrGameOver
	}
	if s.state.Phase != PhaseRolling {
		return ErrNotRollingPhase
	}
	if len(d.Rolled) != s.rules.DiceCount || len(d.Used) != len(d.Rolled) {
		return fmt.Errorf("%w: roll has %d dice, want %d", ErrInvalidConfig, len(d.Rolled), s.rules.DiceCount)
	}
	s.dice = d.clone()
	s.state.Phase = PhaseAwaitingMove
	s.state.MovesLeft = s.rules.movesPerTurn()
	return nil
}

// Permits reports whether a piece of type t may move now.
func (s *Sequencer) Permits(t PieceType) bool {
	if s.Ended() || s.state.Phase != PhaseAwaitingMove {
		return false
	}
	if s.rules.Consumption == ConsumePerDie {
		return s.dice.Allows(t)
	}
	return s.dice.Shows(t)
}

// Allowed lists the distinct piece types that may move now, in face order.
func (s *Sequencer) Allowed() []PieceType {
	var out []PieceType
	for _, t := range AllPieceTypes {
		if s.Permits(t) {
			out = append(out, t)
		}
	}
	return out
}

// Consume spends the turn budget for a move of type t and reports whether the
// turn passed to the opponent as a result.
func (s *Sequencer) Consume(t PieceType) bool {
	if !s.Permits(t) {
		return false
	}
	switch s.rules.Consumption {
	case ConsumePerDie:
		s.dice.Consume(t)
		s.state.MovesLeft = s.dice.Unused()
	default:
		s.state.MovesLeft--
	}
	if s.state.MovesLeft <= 0 {
		s.Pass()
		return true
	}
	return false
}

// Pass hands the turn to the opponent, who must roll next.
func (s *Sequencer) Pass() {
	if s.Ended() {
		return
	}
	s.state.Turn = s.state.Turn.Opponent()
	s.state.Phase = PhaseRolling
	s.state.MovesLeft = 0
	if s.state.Turn == White {
		s.state.TurnNumber++
	}
	s.dice = DiceState{}
}

// End moves the game to Terminal. The first caller wins; later calls report false.
func (s *Sequencer) End(winner Color, reason EndReason) bool {
	if s.Ended() {
		return false
	}
	s.state.Status = StatusEnded
	s.state.Phase = PhaseEnded
	s.state.Winner = winner
	s.state.Reason = reason
	s.state.MovesLeft = 0
	return true
}

func restoreSequencer(rules Rules, state TurnState, dice DiceState) *Sequencer {
	return &Sequencer{rules: rules, state: state, dice: dice.clone()}
}
