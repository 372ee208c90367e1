package dicechess

import "fmt"

const snapshotVersion = 1

// Snapshot is the serialisable state of a Session.
type Snapshot struct {
	Format   int       `json:"format"`
	Version  int64     `json:"version"`
	Mode     GameMode  `json:"mode"`
	Rules    Rules     `json:"rules"`
	Board    Board     `json:"board"`
	FEN      string    `json:"fen"`
	Turn     TurnState `json:"turn"`
	Dice     DiceState `json:"dice"`
	Log      GameLog   `json:"log"`
	Clock    Clock     `json:"clock"`
	Selected *Position `json:"selected,omitempty"`
	Check    bool      `json:"check"`
	Bot      *BotSeat  `json:"bot,omitempty"`
	Stake    int       `json:"stake"`
	Seed     int64     `json:"seed"`
	Draws    uint64    `json:"draws"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Format:  snapshotVersion,
		Version: s.version,
		Mode:    s.mode,
		Rules:   s.seq.Rules(),
		Board:   s.board,
		FEN:     s.board.FEN(),
		Turn:    s.seq.State(),
		Dice:    s.seq.Dice(),
		Log:     s.log.clone(),
		Clock:   s.clock,
		Check:   s.check,
		Stake:   s.stake,
		Seed:    s.seed,
		Draws:   s.src.draws,
	}
	if s.selected != nil {
		p := *s.selected
		snap.Selected = &p
	}
	if s.bot != nil {
		b := *s.bot
		snap.Bot = &b
	}
	return snap
}

// Restore rebuilds a Session from snap. The random stream resumes where it stopped.
// Terminal hooks and the pacer are not part of the snapshot.
func Restore(snap Snapshot) (*Session, error) {
	if snap.Format != snapshotVersion {
		return nil, fmt.Errorf("%w: snapshot format %d", ErrInvalidConfig, snap.Format)
	}
	if err := snap.Rules.Validate(); err != nil {
		return nil, err
	}
	if !snap.Turn.Turn.Valid() {
		return nil, fmt.Errorf("%w: snapshot turn %q", ErrInvalidConfig, snap.Turn.Turn)
	}
	if len(snap.Dice.Used) != len(snap.Dice.Rolled) {
		return nil, fmt.Errorf("%w: snapshot dice has %d rolled and %d used", ErrInvalidConfig, len(snap.Dice.Rolled), len(snap.Dice.Used))
	}
	if snap.Turn.Phase == PhaseAwaitingMove && len(snap.Dice.Rolled) != snap.Rules.DiceCount {
		return nil, fmt.Errorf("%w: snapshot awaiting a move with %d dice, rules roll %d", ErrInvalidConfig, len(snap.Dice.Rolled), snap.Rules.DiceCount)
	}
	s := &Session{
		mode:    snap.Mode,
		board:   snap.Board,
		seq:     restoreSequencer(snap.Rules, snap.Turn, snap.Dice),
		log:     snap.Log.clone(),
		clock:   snap.Clock,
		stake:   snap.Stake,
		seed:    snap.Seed,
		check:   snap.Check,
		version: snap.Version,
	}
	if snap.Selected != nil {
		p := *snap.Selected
		s.selected = &p
	}
	if err := s.seatBot(snap.Bot); err != nil {
		return nil, err
	}
	s.seedRNG(snap.Seed, snap.Draws)
	s.SetPacer(nil)
	return s, nil
}

// Allowed lists the piece types the side to move may move in this snapshot.
func (snap Snapshot) Allowed() []PieceType {
	return restoreSequencer(snap.Rules, snap.Turn, snap.Dice).Allowed()
}
