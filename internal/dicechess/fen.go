package dicechess

import (
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
)

var toNChessPiece = map[Piece]nchess.Piece{
	{Type: King, Color: White}:   nchess.WhiteKing,
	{Type: Queen, Color: White}:  nchess.WhiteQueen,
	{Type: Rook, Color: White}:   nchess.WhiteRook,
	{Type: Bishop, Color: White}: nchess.WhiteBishop,
	{Type: Knight, Color: White}: nchess.WhiteKnight,
	{Type: Pawn, Color: White}:   nchess.WhitePawn,
	{Type: King, Color: Black}:   nchess.BlackKing,
	{Type: Queen, Color: Black}:  nchess.BlackQueen,
	{Type: Rook, Color: Black}:   nchess.BlackRook,
	{Type: Bishop, Color: Black}: nchess.BlackBishop,
	{Type: Knight, Color: Black}: nchess.BlackKnight,
	{Type: Pawn, Color: Black}:   nchess.BlackPawn,
}

// corentings/chess decodes board fields through a package-level rank buffer.
var fenMu sync.Mutex

var fromNChessPiece = func() map[nchess.Piece]Piece {
	m := make(map[nchess.Piece]Piece, len(toNChessPiece))
	for p, np := range toNChessPiece {
		m[np] = p
	}
	return m
}()

// NChessBoard converts the board into a corentings/chess board. Captured kings are
// simply absent; the result is only used for notation, never for move generation.
func (b *Board) NChessBoard() *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, 32)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p.IsEmpty() {
				continue
			}
			m[Position{Row: row, Col: col}.square()] = toNChessPiece[p]
		}
	}
	return nchess.NewBoard(m)
}

// FEN returns the piece-placement field of a FEN record for the board.
func (b *Board) FEN() string {
	return b.NChessBoard().String()
}

// ParseBoardFEN reads a FEN piece-placement field (anything after the first space
// is ignored). Boards without kings are accepted.
func ParseBoardFEN(fen string) (Board, error) {
	placement := strings.TrimSpace(fen)
	if i := strings.IndexByte(placement, ' '); i >= 0 {
		placement = placement[:i]
	}
	if n := strings.Count(placement, "/") + 1; n != 8 {
		return Board{}, fmt.Errorf("fen: expected 8 ranks, got %d", n)
	}
	fenMu.Lock()
	opt, err := nchess.FEN(placement + " w - - 0 1")
	fenMu.Unlock()
	if err != nil {
		return Board{}, fmt.Errorf("fen: parse %q: %w", placement, err)
	}
	var b Board
	for sq, np := range nchess.NewGame(opt).Position().Board().SquareMap() {
		p, ok := fromNChessPiece[np]
		if !ok {
			return Board{}, fmt.Errorf("fen: unknown piece on %s", sq)
		}
		b[7-int(sq.Rank())][int(sq.File())] = p
	}
	return b, nil
}
