package dicechess

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func pawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// IsLegal reports whether piece may move from -> to on b. The piece is passed
// explicitly so hypothetical placements can be checked; self-check is not a rule.
func IsLegal(b *Board, from, to Position, piece Piece) bool {
	if !from.Valid() || !to.Valid() || from == to || piece.IsEmpty() {
		return false
	}
	target := b.At(to)
	if !target.IsEmpty() && target.Color == piece.Color {
		return false
	}

	dCol := to.Col - from.Col
	dRow := to.Row - from.Row
	adx, ady := abs(dCol), abs(dRow)

	switch piece.Type {
	case Pawn:
		dir := pawnDirection(piece.Color)
		if dCol == 0 && target.IsEmpty() {
			if dRow == dir {
				return true
			}
			if from.Row == pawnStartRow(piece.Color) && dRow == 2*dir {
				return b.At(Position{Row: from.Row + dir, Col: from.Col}).IsEmpty()
			}
			return false
		}
		return adx == 1 && dRow == dir && !target.IsEmpty()
	case Knight:
		return (adx == 1 && ady == 2) || (adx == 2 && ady == 1)
	case Bishop:
		return adx == ady && pathClear(b, from, to)
	case Rook:
		return (adx == 0 || ady == 0) && pathClear(b, from, to)
	case Queen:
		if adx != ady && adx != 0 && ady != 0 {
			return false
		}
		return pathClear(b, from, to)
	case King:
		return adx <= 1 && ady <= 1
	default:
		return false
	}
}

// pathClear walks unit steps from -> to, exclusive of both ends, and fails on the
// first occupied cell. Callers guarantee a straight or diagonal line.
func pathClear(b *Board, from, to Position) bool {
	stepRow := sign(to.Row - from.Row)
	stepCol := sign(to.Col - from.Col)
	row, col := from.Row+stepRow, from.Col+stepCol
	for row != to.Row || col != to.Col {
		if !b[row][col].IsEmpty() {
			return false
		}
		row += stepRow
		col += stepCol
	}
	return true
}

// IsSquareAttacked reports whether any piece of color by could legally move onto pos.
func IsSquareAttacked(b *Board, pos Position, by Color) bool {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p.IsEmpty() || p.Color != by {
				continue
			}
			if IsLegal(b, Position{Row: row, Col: col}, pos, p) {
				return true
			}
		}
	}
	return false
}

// FindKing returns the position of color's king, if it is still on the board.
func FindKing(b *Board, c Color) (Position, bool) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p.Type == King && p.Color == c {
				return Position{Row: row, Col: col}, true
			}
		}
	}
	return Position{}, false
}

// LegalDestinations lists every square the piece on from may move to.
func LegalDestinations(b *Board, from Position) []Position {
	piece := b.At(from)
	if piece.IsEmpty() {
		return nil
	}
	var out []Position
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			to := Position{Row: row, Col: col}
			if IsLegal(b, from, to, piece) {
				out = append(out, to)
			}
		}
	}
	return out
}

// LegalMoves enumerates the moves of color whose piece type passes allowed.
// A nil allowed func admits every type.
func LegalMoves(b *Board, c Color, allowed func(PieceType) bool) []Move {
	var moves []Move
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p.IsEmpty() || p.Color != c {
				continue
			}
			if allowed != nil && !allowed(p.Type) {
				continue
			}
			from := Position{Row: row, Col: col}
			for _, to := range LegalDestinations(b, from) {
				moves = append(moves, Move{From: from, To: to})
			}
		}
	}
	return moves
}

// HasLegalMove is LegalMoves without the allocation.
func HasLegalMove(b *Board, c Color, allowed func(PieceType) bool) bool {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p.IsEmpty() || p.Color != c {
				continue
			}
			if allowed != nil && !allowed(p.Type) {
				continue
			}
			from := Position{Row: row, Col: col}
			for r := 0; r < 8; r++ {
				for cc := 0; cc < 8; cc++ {
					if IsLegal(b, from, Position{Row: r, Col: cc}, p) {
						return true
					}
				}
			}
		}
	}
	return false
}
