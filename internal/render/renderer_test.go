package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/dice-chess/internal/dicechess"
)

func mustPos(t *testing.T, s string) dicechess.Position {
	t.Helper()
	p, err := dicechess.ParsePosition(s)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", s, err)
	}
	return p
}

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	return img
}

func center(t *testing.T, sq string, flip bool) image.Point {
	r := squareRect(mustPos(t, sq), image.Pt(sideMargin, topMargin), flip)
	return image.Pt(r.Min.X+squareSize/2, r.Min.Y+squareSize/2)
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

func TestRenderInitialBoard(t *testing.T) {
	r := NewSVGBoardRenderer()
	board := dicechess.NewInitialBoard()
	raw, err := r.RenderPNG(context.Background(), board, Options{
		Caption: "p1 vs Medium bot",
		Status:  "White to move: pawn",
		Hints:   []dicechess.Position{mustPos(t, "e3"), mustPos(t, "e4")},
		Dice:    dicechess.DiceState{Rolled: []dicechess.PieceType{dicechess.Pawn, dicechess.Rook, dicechess.King}, Used: []bool{false, true, false}},
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)
	if b := img.Bounds(); b.Dx() != boardSize+2*sideMargin || b.Dy() != boardSize+topMargin+bottomMargin {
		t.Fatalf("bounds = %v", b)
	}

	a4 := center(t, "a4", false)
	if !sameColor(img.At(a4.X, a4.Y), lightSquare) {
		t.Fatalf("a4 = %v, want light square", img.At(a4.X, a4.Y))
	}
	e4 := center(t, "e4", false)
	if sameColor(img.At(e4.X, e4.Y), lightSquare) {
		t.Fatalf("hint on e4 not drawn")
	}
	a3 := center(t, "a3", false)
	if !sameColor(img.At(a3.X, a3.Y), darkSquare) {
		t.Fatalf("a3 = %v, want dark square", img.At(a3.X, a3.Y))
	}
}

func TestRenderFlipped(t *testing.T) {
	r := NewSVGBoardRenderer()
	board := dicechess.NewInitialBoard()
	plain, err := r.RenderPNG(context.Background(), board, Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	flipped, err := r.RenderPNG(context.Background(), board, Options{Flip: true})
	if err != nil {
		t.Fatalf("RenderPNG flipped: %v", err)
	}
	p := center(t, "e1", false)
	if sameColor(decode(t, plain).At(p.X, p.Y), decode(t, flipped).At(p.X, p.Y)) {
		t.Fatalf("flipped board draws the same piece on the bottom king square")
	}
}

func TestRenderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSVGBoardRenderer().RenderPNG(ctx, dicechess.NewInitialBoard(), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPieceImagesAreCached(t *testing.T) {
	p := dicechess.Piece{Type: dicechess.Knight, Color: dicechess.White}
	a, err := renderPieceImage(p, 32)
	if err != nil {
		t.Fatalf("renderPieceImage: %v", err)
	}
	b, _ := renderPieceImage(p, 32)
	if a != b {
		t.Fatalf("second render not served from cache")
	}
	for _, typ := range dicechess.AllPieceTypes {
		for _, c := range []dicechess.Color{dicechess.White, dicechess.Black} {
			if _, err := renderPieceImage(dicechess.Piece{Type: typ, Color: c}, 24); err != nil {
				t.Fatalf("%s %s: %v", c, typ, err)
			}
		}
	}
	if _, err := renderPieceImage(dicechess.Piece{Type: dicechess.Pawn}, 24); err == nil {
		t.Fatalf("colorless piece rendered")
	}
}
