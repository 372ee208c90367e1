package dicechess

import "fmt"

// MoveResult is the outcome of ApplyMove. Board is a new value; the input is untouched.
type MoveResult struct {
	Board        Board
	Moved        Piece
	Captured     Piece
	KingCaptured bool
}

// ApplyMove moves whatever stands on from to to, overwriting the destination.
// It performs no legality checks.
func ApplyMove(b Board, from, to Position) MoveResult {
	moved := b.At(from)
	captured := b.At(to)
	b.set(to, moved)
	b.set(from, Piece{})
	return MoveResult{
		Board:        b,
		Moved:        moved,
		Captured:     captured,
		KingCaptured: captured.Type == King,
	}
}

// MoveRecord is one entry of the display log.
type MoveRecord struct {
	Color    Color     `json:"color"`
	Piece    PieceType `json:"piece"`
	From     Position  `json:"from"`
	To       Position  `json:"to"`
	Captured PieceType `json:"captured,omitempty"`
	Text     string    `json:"text"`
}

func newMoveRecord(res MoveResult, from, to Position) MoveRecord {
	return MoveRecord{
		Color:    res.Moved.Color,
		Piece:    res.Moved.Type,
		From:     from,
		To:       to,
		Captured: res.Captured.Type,
		Text:     fmt.Sprintf("%s %s → %s", res.Moved.Symbol(), from, to),
	}
}

// GameLog is display-only history. Legality never reads it.
type GameLog struct {
	Moves           []MoveRecord `json:"moves"`
	CapturedByWhite []Piece      `json:"captured_by_white"`
	CapturedByBlack []Piece      `json:"captured_by_black"`
}

func (l *GameLog) record(rec MoveRecord, captured Piece) {
	l.Moves = append(l.Moves, rec)
	if captured.IsEmpty() {
		return
	}
	if rec.Color == White {
		l.CapturedByWhite = append(l.CapturedByWhite, captured)
	} else {
		l.CapturedByBlack = append(l.CapturedByBlack, captured)
	}
}

// Texts returns the human-readable move list.
func (l *GameLog) Texts() []string {
	out := make([]string, len(l.Moves))
	for i, m := range l.Moves {
		out[i] = m.Text
	}
	return out
}

// UCI returns the moves as from/to coordinate pairs, e.g. "e2e4".
func (l *GameLog) UCI() []string {
	out := make([]string, len(l.Moves))
	for i, m := range l.Moves {
		out[i] = m.From.String() + m.To.String()
	}
	return out
}

func (l GameLog) clone() GameLog {
	return GameLog{
		Moves:           append([]MoveRecord(nil), l.Moves...),
		CapturedByWhite: append([]Piece(nil), l.CapturedByWhite...),
		CapturedByBlack: append([]Piece(nil), l.CapturedByBlack...),
	}
}
