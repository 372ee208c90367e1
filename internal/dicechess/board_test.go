package dicechess

import (
	"fmt"
	"testing"
)

const initialPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

func mustSquare(t *testing.T, s string) Position {
	t.Helper()
	p, err := ParsePosition(s)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", s, err)
	}
	return p
}

func mustBoard(t *testing.T, fen string) Board {
	t.Helper()
	b, err := ParseBoardFEN(fen)
	if err != nil {
		t.Fatalf("ParseBoardFEN(%q): %v", fen, err)
	}
	return b
}

func countPieces(b Board, c Color) int {
	n := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if !b[row][col].IsEmpty() && b[row][col].Color == c {
				n++
			}
		}
	}
	return n
}

func TestInitialBoard(t *testing.T) {
	b := NewInitialBoard()
	if countPieces(b, White) != 16 || countPieces(b, Black) != 16 {
		t.Fatalf("piece counts: white=%d black=%d", countPieces(b, White), countPieces(b, Black))
	}
	if got := b.At(mustSquare(t, "e1")); got != (Piece{Type: King, Color: White}) {
		t.Fatalf("e1 = %v", got)
	}
	if got := b.At(mustSquare(t, "d8")); got != (Piece{Type: Queen, Color: Black}) {
		t.Fatalf("d8 = %v", got)
	}
	if got := b.FEN(); got != initialPlacement {
		t.Fatalf("FEN = %q", got)
	}
}

func TestParsePosition(t *testing.T) {
	cases := map[string]Position{
		"a8": {Row: 0, Col: 0},
		"h1": {Row: 7, Col: 7},
		"e2": {Row: 6, Col: 4},
		"D7": {Row: 1, Col: 3},
	}
	for in, want := range cases {
		got := mustSquare(t, in)
		if got != want {
			t.Fatalf("%s: got %+v want %+v", in, got, want)
		}
	}
	for _, bad := range []string{"", "i1", "a9", "e", "e22"} {
		if _, err := ParsePosition(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if s := (Position{Row: 6, Col: 4}).String(); s != "e2" {
		t.Fatalf("String = %q", s)
	}
}

func TestBoardValueSemantics(t *testing.T) {
	b := NewInitialBoard()
	res := ApplyMove(b, mustSquare(t, "e2"), mustSquare(t, "e4"))
	if b.At(mustSquare(t, "e2")).IsEmpty() {
		t.Fatalf("ApplyMove mutated its input")
	}
	if res.Board.At(mustSquare(t, "e4")).Type != Pawn || !res.Board.At(mustSquare(t, "e2")).IsEmpty() {
		t.Fatalf("move not applied")
	}
}

func TestFENRoundTrip(t *testing.T) {
	fen := "4k3/8/8/3q4/8/8/8/R3K2R"
	b := mustBoard(t, fen)
	if got := b.FEN(); got != fen {
		t.Fatalf("FEN = %q want %q", got, fen)
	}
	if _, err := ParseBoardFEN("8/8/8"); err == nil {
		t.Fatalf("expected error on short fen")
	}
	if _, err := ParseBoardFEN("8/8/8/8/8/8/8/7x"); err == nil {
		t.Fatalf("expected error on unknown piece")
	}
	if _, err := ParseBoardFEN("8/8/8/8/8/8/8/7"); err == nil {
		t.Fatalf("expected error on short rank")
	}
}

func TestParseBoardFENKinglessAndTrailingFields(t *testing.T) {
	b := mustBoard(t, "8/8/8/8/8/8/8/4Q1K1 b - - 3 40")
	if countPieces(b, White) != 2 || countPieces(b, Black) != 0 {
		t.Fatalf("piece counts: white=%d black=%d", countPieces(b, White), countPieces(b, Black))
	}
	if got := b.At(mustSquare(t, "e1")); got != (Piece{Type: Queen, Color: White}) {
		t.Fatalf("e1 = %v", got)
	}
	if got := b.At(mustSquare(t, "g1")); got != (Piece{Type: King, Color: White}) {
		t.Fatalf("g1 = %v", got)
	}

	empty := mustBoard(t, "8/8/8/8/8/8/8/8")
	if empty != (Board{}) {
		t.Fatalf("empty placement produced pieces: %s", empty.FEN())
	}

	afterE4 := ApplyMove(NewInitialBoard(), mustSquare(t, "e2"), mustSquare(t, "e4")).Board
	if got := mustBoard(t, afterE4.FEN()); got != afterE4 {
		t.Fatalf("round trip after e4: %s", got.FEN())
	}
}

func TestParseBoardFENConcurrent(t *testing.T) {
	fens := []string{initialPlacement, "4k3/8/8/3q4/8/8/8/R3K2R", "8/8/8/8/8/8/8/4Q1K1"}
	done := make(chan error, 30)
	for i := 0; i < 30; i++ {
		fen := fens[i%len(fens)]
		go func() {
			b, err := ParseBoardFEN(fen)
			if err == nil && b.FEN() != fen {
				err = fmt.Errorf("got %q want %q", b.FEN(), fen)
			}
			done <- err
		}()
	}
	for i := 0; i < 30; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent parse: %v", err)
		}
	}
}
