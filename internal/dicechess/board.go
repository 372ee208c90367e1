// Package dicechess implements the Dice Chess rules engine: board, move legality,
// dice-gated turn sequencing, move execution and the computer opponent.
package dicechess

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies chess side.
type Color string

const (
	NoColor Color = ""
	White   Color = "white"
	Black   Color = "black"
)

func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) Valid() bool { return c == White || c == Black }

// PieceType is one of the six chess piece kinds. It doubles as a die face.
type PieceType string

const (
	NoPieceType PieceType = ""
	Pawn        PieceType = "pawn"
	Knight      PieceType = "knight"
	Bishop      PieceType = "bishop"
	Rook        PieceType = "rook"
	Queen       PieceType = "queen"
	King        PieceType = "king"
)

// AllPieceTypes lists the die faces in face order.
var AllPieceTypes = []PieceType{Pawn, Knight, Bishop, Rook, Queen, King}

func (t PieceType) Valid() bool {
	for _, v := range AllPieceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Piece is an immutable (type, color) pair. The zero value is an empty cell.
type Piece struct {
	Type  PieceType `json:"type,omitempty"`
	Color Color     `json:"color,omitempty"`
}

func (p Piece) IsEmpty() bool { return p.Type == NoPieceType }

var pieceSymbols = map[Color]map[PieceType]string{
	White: {King: "♔", Queen: "♕", Rook: "♖", Bishop: "♗", Knight: "♘", Pawn: "♙"},
	Black: {King: "♚", Queen: "♛", Rook: "♜", Bishop: "♝", Knight: "♞", Pawn: "♟"},
}

// Symbol returns the unicode glyph of the piece, or an empty string for an empty cell.
func (p Piece) Symbol() string {
	if p.IsEmpty() {
		return ""
	}
	return pieceSymbols[p.Color][p.Type]
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return string(p.Color) + " " + string(p.Type)
}

// Position addresses a board cell. Row 0 is black's back rank, row 7 is white's.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < 8 && p.Col >= 0 && p.Col < 8
}

func (p Position) square() nchess.Square {
	return nchess.NewSquare(nchess.File(p.Col), nchess.Rank(7-p.Row))
}

// String renders the position in algebraic form, e.g. "e2".
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return p.square().String()
}

// ParsePosition parses algebraic notation ("e2") into a Position.
func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	file, rank := s[0], s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	return Position{Row: 7 - int(rank-'1'), Col: int(file - 'a')}, nil
}

// Move is a from/to pair. Validity depends on the board it is played on.
type Move struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

func (m Move) String() string { return m.From.String() + m.To.String() }

// Board is the 8x8 grid. It is a value type: assigning a Board copies it.
type Board [8][8]Piece

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewInitialBoard returns the standard 32-piece starting position.
func NewInitialBoard() Board {
	var b Board
	for col := 0; col < 8; col++ {
		b[0][col] = Piece{Type: backRank[col], Color: Black}
		b[1][col] = Piece{Type: Pawn, Color: Black}
		b[6][col] = Piece{Type: Pawn, Color: White}
		b[7][col] = Piece{Type: backRank[col], Color: White}
	}
	return b
}

// At returns the piece at pos; off-board positions read as empty.
func (b *Board) At(pos Position) Piece {
	if !pos.Valid() {
		return Piece{}
	}
	return b[pos.Row][pos.Col]
}

func (b *Board) set(pos Position, p Piece) { b[pos.Row][pos.Col] = p }

func (b Board) Clone() Board { return b }
