package dicechess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// BotSeat puts a bot on one side of the board.
type BotSeat struct {
	Color      Color      `json:"color"`
	Difficulty Difficulty `json:"difficulty"`
}

// Config describes a new game.
type Config struct {
	Mode        GameMode
	Rules       *Rules // overrides Mode when set
	TimeControl TimeControl
	Bot         *BotSeat
	Seed        int64 // 0 draws a seed from crypto/rand
	Stake       int
	Pacer       PacerFunc
}

// Status is the externally visible game status.
type Status struct {
	Status GameStatus `json:"status"`
	Winner Color      `json:"winner,omitempty"`
	Reason EndReason  `json:"reason,omitempty"`
	Turn   Color      `json:"turn"`
	Check  bool       `json:"check"`
}

// Captured lists pieces taken by each side, in capture order.
type Captured struct {
	ByWhite []Piece `json:"by_white"`
	ByBlack []Piece `json:"by_black"`
}

// SelectOutcome reports what a square selection did.
type SelectOutcome string

const (
	SelectIgnored    SelectOutcome = "ignored"
	SelectSelected   SelectOutcome = "selected"
	SelectDeselected SelectOutcome = "deselected"
	SelectRejected   SelectOutcome = "rejected"
	SelectMoved      SelectOutcome = "moved"
)

// MoveReport describes one executed move and what followed it.
type MoveReport struct {
	Record       MoveRecord `json:"record"`
	KingCaptured bool       `json:"king_captured"`
	TurnPassed   bool       `json:"turn_passed"`
	AutoPassed   bool       `json:"auto_passed"`
	Check        bool       `json:"check"`
}

// Session is one game: board, sequencer, log and clock behind a single API.
// A Session is not safe for concurrent use; callers serialise access.
type Session struct {
	mode   GameMode
	board  Board
	seq    *Sequencer
	log    GameLog
	clock  Clock
	bot    *BotSeat
	stake  int
	seed   int64
	src    *countingSource
	rng    *rand.Rand
	pacer  PacerFunc
	botCfg BotPreset

	selected *Position
	check    bool
	version  int64

	onTerminal []func(Status)
}

// NewGame starts a game in the initial position with white to roll.
func NewGame(cfg Config) (*Session, error) {
	rules, mode, err := resolveRules(cfg.Mode, cfg.Rules)
	if err != nil {
		return nil, err
	}
	if cfg.Stake < 0 {
		return nil, fmt.Errorf("%w: negative stake %d", ErrInvalidConfig, cfg.Stake)
	}
	seed := cfg.Seed
	if seed == 0 {
		if seed, err = NewSeed(); err != nil {
			return nil, err
		}
	}
	s := &Session{
		mode:  mode,
		board: NewInitialBoard(),
		seq:   NewSequencer(rules),
		clock: NewClock(cfg.TimeControl),
		stake: cfg.Stake,
		seed:  seed,
	}
	if err := s.seatBot(cfg.Bot); err != nil {
		return nil, err
	}
	s.seedRNG(seed, 0)
	s.SetPacer(cfg.Pacer)
	return s, nil
}

func resolveRules(mode GameMode, override *Rules) (Rules, GameMode, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return Rules{}, "", err
		}
		return *override, mode, nil
	}
	if mode == "" {
		mode = ModeStandard
	}
	rules, err := RulesFor(mode)
	if err != nil {
		return Rules{}, "", err
	}
	return rules, mode, nil
}

func (s *Session) seatBot(seat *BotSeat) error {
	if seat == nil {
		return nil
	}
	if !seat.Color.Valid() {
		return fmt.Errorf("%w: bot color %q", ErrInvalidConfig, seat.Color)
	}
	if seat.Difficulty == "" {
		seat = &BotSeat{Color: seat.Color, Difficulty: DifficultyMedium}
	}
	p, err := GetBotPreset(seat.Difficulty)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cp := *seat
	s.bot = &cp
	s.botCfg = p
	return nil
}

func (s *Session) seedRNG(seed int64, draws uint64) {
	s.src = newCountingSource(seed, draws)
	s.rng = rand.New(s.src)
}

// SetPacer installs the presentation hook. nil means no pauses.
func (s *Session) SetPacer(p PacerFunc) {
	if p == nil {
		p = InstantPacer
	}
	s.pacer = p
}

// OnTerminal registers fn to run once when the game ends.
func (s *Session) OnTerminal(fn func(Status)) {
	s.onTerminal = append(s.onTerminal, fn)
}

// RollDice rolls for the side to move. If nothing the roll allows can move, the
// turn passes immediately.
func (s *Session) RollDice(ctx context.Context) (DiceState, error) {
	if s.seq.Ended() {
		return DiceState{}, ErrGameOver
	}
	if s.seq.State().Phase != PhaseRolling {
		return DiceState{}, ErrNotRollingPhase
	}
	s.pacer(ctx, PauseRoll)
	roll := RollDice(s.rng, s.seq.Rules().DiceCount)
	if err := s.seq.SetRoll(roll); err != nil {
		return DiceState{}, err
	}
	s.selected = nil
	s.touch()
	s.ensureMovable(ctx)
	return roll, nil
}

// ensureMovable passes the turn while the side to move holds a roll it cannot use.
func (s *Session) ensureMovable(ctx context.Context) bool {
	if s.seq.Ended() || !s.seq.Awaiting() {
		return false
	}
	if HasLegalMove(&s.board, s.seq.CurrentTurn(), s.seq.Permits) {
		return false
	}
	s.pacer(ctx, PauseAutoPass)
	s.passTurn()
	return true
}

func (s *Session) passTurn() {
	mover := s.seq.CurrentTurn()
	s.seq.Pass()
	s.clock.credit(mover)
	s.selected = nil
	s.touch()
}

// SelectSquare is the click interface: pick up a movable piece, drop it on a legal
// destination, or clear the selection. Anything else is a silent no-op.
func (s *Session) SelectSquare(ctx context.Context, pos Position) (SelectOutcome, *MoveReport) {
	if !pos.Valid() || s.seq.Ended() || !s.seq.Awaiting() || s.BotToMove() {
		return SelectIgnored, nil
	}
	turn := s.seq.CurrentTurn()
	piece := s.board.At(pos)
	movable := piece.Color == turn && s.seq.Permits(piece.Type)

	if s.selected != nil {
		from := *s.selected
		switch {
		case from == pos:
			s.selected = nil
			s.touch()
			return SelectDeselected, nil
		case IsLegal(&s.board, from, pos, s.board.At(from)):
			rep := s.applyMove(ctx, from, pos)
			return SelectMoved, &rep
		case movable:
			s.selected = &pos
			s.touch()
			return SelectSelected, nil
		default:
			s.selected = nil
			s.touch()
			return SelectRejected, nil
		}
	}
	if !movable {
		return SelectIgnored, nil
	}
	s.selected = &pos
	s.touch()
	return SelectSelected, nil
}

// Move plays from→to for the side to move. It reports false and changes nothing
// when the move is not available.
func (s *Session) Move(ctx context.Context, from, to Position) (MoveReport, bool) {
	if s.seq.Ended() || !s.seq.Awaiting() {
		return MoveReport{}, false
	}
	piece := s.board.At(from)
	if piece.Color != s.seq.CurrentTurn() || !s.seq.Permits(piece.Type) {
		return MoveReport{}, false
	}
	if !IsLegal(&s.board, from, to, piece) {
		return MoveReport{}, false
	}
	return s.applyMove(ctx, from, to), true
}

func (s *Session) applyMove(ctx context.Context, from, to Position) MoveReport {
	mover := s.seq.CurrentTurn()
	res := ApplyMove(s.board, from, to)
	rec := newMoveRecord(res, from, to)
	s.board = res.Board
	s.selected = nil
	s.touch()

	rep := MoveReport{Record: rec}
	if res.KingCaptured {
		s.check = false
		rep.KingCaptured = true
		s.end(mover, ReasonKingCapture)
		return rep
	}
	s.log.record(rec, res.Captured)

	s.check = false
	if king, ok := FindKing(&s.board, mover.Opponent()); ok {
		s.check = IsSquareAttacked(&s.board, king, mover)
	}
	rep.Check = s.check
	if s.check && s.seq.Rules().Consumption == ConsumeSingle && !HasLegalMove(&s.board, mover.Opponent(), nil) {
		s.end(mover, ReasonCheckmate)
		return rep
	}

	if s.seq.Consume(res.Moved.Type) {
		s.clock.credit(mover)
		rep.TurnPassed = true
		return rep
	}
	if s.ensureMovable(ctx) {
		rep.TurnPassed = true
		rep.AutoPassed = true
	}
	return rep
}

// Resign ends the game in favour of color's opponent.
func (s *Session) Resign(color Color) bool {
	if !color.Valid() {
		return false
	}
	return s.end(color.Opponent(), ReasonResignation)
}

// Tick charges elapsed time to the side to move and ends the game on a flag fall.
func (s *Session) Tick(elapsed time.Duration) bool {
	if s.seq.Ended() || s.clock.Control.Unlimited() {
		return false
	}
	turn := s.seq.CurrentTurn()
	flagged := s.clock.tick(turn, elapsed)
	s.touch()
	if flagged {
		return s.end(turn.Opponent(), ReasonTimeout)
	}
	return false
}

// BotToMove reports whether the seated bot owns the current turn.
func (s *Session) BotToMove() bool {
	return s.bot != nil && !s.seq.Ended() && s.seq.CurrentTurn() == s.bot.Color
}

// PlayBot plays the bot's whole turn, rolling if needed. It returns the moves made.
func (s *Session) PlayBot(ctx context.Context) ([]MoveReport, error) {
	if !s.BotToMove() {
		return nil, nil
	}
	return s.AutoPlay(ctx, s.botCfg)
}

// maxTurnMoves bounds one automated turn. The x2 mode needs at most six.
const maxTurnMoves = 16

// AutoPlay plays the current side's turn with preset p until the turn passes or
// the game ends.
func (s *Session) AutoPlay(ctx context.Context, p BotPreset) ([]MoveReport, error) {
	if s.seq.Ended() {
		return nil, ErrGameOver
	}
	turn := s.seq.CurrentTurn()
	if s.seq.State().Phase == PhaseRolling {
		if _, err := s.RollDice(ctx); err != nil {
			return nil, err
		}
	}
	var played []MoveReport
	for i := 0; i < maxTurnMoves; i++ {
		if s.seq.Ended() || s.seq.CurrentTurn() != turn || !s.seq.Awaiting() {
			return played, nil
		}
		s.pacer(ctx, PauseBotThink)
		cand, err := SelectMove(p, &s.board, turn, s.seq.Permits, s.rng)
		if errors.Is(err, ErrNoCandidates) {
			s.passTurn()
			return played, nil
		}
		if err != nil {
			return played, err
		}
		played = append(played, s.applyMove(ctx, cand.Move.From, cand.Move.To))
	}
	return played, nil
}

func (s *Session) end(winner Color, reason EndReason) bool {
	if !s.seq.End(winner, reason) {
		return false
	}
	s.selected = nil
	s.touch()
	st := s.Status()
	for _, fn := range s.onTerminal {
		fn(st)
	}
	return true
}

func (s *Session) touch() { s.version++ }

func (s *Session) Mode() GameMode { return s.mode }
func (s *Session) Rules() Rules { return s.seq.Rules() }
func (s *Session) Board() Board { return s.board }
func (s *Session) CurrentTurn() Color { return s.seq.CurrentTurn() }
func (s *Session) TurnState() TurnState { return s.seq.State() }
func (s *Session) Dice() DiceState { return s.seq.Dice() }
func (s *Session) Clock() Clock { return s.clock }
func (s *Session) Stake() int { return s.stake }
func (s *Session) Seed() int64 { return s.seed }
func (s *Session) Version() int64 { return s.version }
func (s *Session) Ended() bool { return s.seq.Ended() }

// Bot returns the bot seat, if any.
func (s *Session) Bot() (BotSeat, bool) {
	if s.bot == nil {
		return BotSeat{}, false
	}
	return *s.bot, true
}

func (s *Session) Selected() (Position, bool) {
	if s.selected == nil {
		return Position{}, false
	}
	return *s.selected, true
}

// LegalDestinations returns the move hints for the piece on pos. Only pieces the
// side to move may move right now get hints.
func (s *Session) LegalDestinations(pos Position) []Position {
	if !pos.Valid() || !s.seq.Awaiting() {
		return nil
	}
	piece := s.board.At(pos)
	if piece.Color != s.seq.CurrentTurn() || !s.seq.Permits(piece.Type) {
		return nil
	}
	return LegalDestinations(&s.board, pos)
}

func (s *Session) MoveHistory() []MoveRecord {
	return append([]MoveRecord(nil), s.log.Moves...)
}

func (s *Session) CapturedPieces() Captured {
	return Captured{
		ByWhite: append([]Piece(nil), s.log.CapturedByWhite...),
		ByBlack: append([]Piece(nil), s.log.CapturedByBlack...),
	}
}

func (s *Session) Status() Status {
	st := s.seq.State()
	return Status{
		Status: st.Status,
		Winner: st.Winner,
		Reason: st.Reason,
		Turn:   st.Turn,
		Check:  s.check && st.Status == StatusPlaying,
	}
}
