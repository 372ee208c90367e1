package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/dice-chess/internal/dicechess"
)

// Options decorates the board. All fields are optional.
type Options struct {
	Caption  string
	Status   string
	Selected *dicechess.Position
	Hints    []dicechess.Position
	LastMove *dicechess.MoveRecord
	Dice     dicechess.DiceState
	// Flip draws the board from black's side.
	Flip bool
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board dicechess.Board, opts Options) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

const (
	squareSize   = 72
	boardSize    = squareSize * 8
	sideMargin   = 36
	topMargin    = 96
	coordBand    = 28
	diceBand     = 64
	bottomMargin = coordBand + diceBand
	dieSize      = 44
	dieGap       = 10
	panelRadius  = 10
)

var (
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	backgroundColor  = color.RGBA{22, 24, 34, 255}
	lastMoveFill     = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	selectedFill     = color.NRGBA{R: 120, G: 200, B: 255, A: 150}
	hintColor        = color.NRGBA{R: 20, G: 20, B: 20, A: 90}
	hudPanelColor    = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextSecondary = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateColor  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	dieFace          = color.NRGBA{R: 245, G: 240, B: 228, A: 255}
	dieUsedFace      = color.NRGBA{R: 110, G: 110, B: 118, A: 255}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board dicechess.Board, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width := boardSize + sideMargin*2
	height := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, boardRect)
	drawSquares(img, origin)
	if opts.LastMove != nil {
		drawSquareOverlay(img, opts.LastMove.From, origin, opts.Flip, lastMoveFill)
		drawSquareOverlay(img, opts.LastMove.To, origin, opts.Flip, lastMoveFill)
	}
	if opts.Selected != nil {
		drawSquareOverlay(img, *opts.Selected, origin, opts.Flip, selectedFill)
	}
	if err := drawPieces(img, &board, origin, opts.Flip); err != nil {
		return nil, err
	}
	for _, h := range opts.Hints {
		rect := squareRect(h, origin, opts.Flip)
		center := image.Pt(rect.Min.X+squareSize/2, rect.Min.Y+squareSize/2)
		drawDisc(img, center, squareSize/7, hintColor)
	}
	drawCoordinates(img, origin, opts.Flip)
	if err := drawDice(img, opts.Dice, boardRect); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

// squareRect maps a board position to its pixel rectangle.
func squareRect(pos dicechess.Position, origin image.Point, flip bool) image.Rectangle {
	row, col := pos.Row, pos.Col
	if flip {
		row, col = 7-row, 7-col
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(pos dicechess.Position) color.Color {
	if (pos.Row+pos.Col)%2 == 0 {
		return lightSquare
	}
	return darkSquare
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			pos := dicechess.Position{Row: r, Col: c}
			imagedraw.Draw(dst, squareRect(pos, origin, false), image.NewUniform(squareColor(pos)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *dicechess.Board, origin image.Point, flip bool) error {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			pos := dicechess.Position{Row: r, Col: c}
			piece := board.At(pos)
			if piece.IsEmpty() {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(pos, origin, flip), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, pos dicechess.Position, origin image.Point, flip bool, clr color.Color) {
	if !pos.Valid() {
		return
	}
	imagedraw.Draw(img, squareRect(pos, origin, flip), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawHUD(img *image.RGBA, opts Options, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	caption := strings.TrimSpace(opts.Caption)
	if caption == "" {
		caption = "Dice Chess"
	}
	captionRect := image.Rect(boardRect.Min.X, 14, boardRect.Max.X, 46)
	drawRoundedPanel(img, captionRect, panelRadius, hudPanelColor)
	drawCenteredString(drawer, captionRect, truncateWithEllipsis(face, caption, captionRect.Dx()-24), hudTextPrimary)

	if status := strings.TrimSpace(opts.Status); status != "" {
		statusRect := image.Rect(boardRect.Min.X+40, 54, boardRect.Max.X-40, 80)
		drawRoundedPanel(img, statusRect, panelRadius, hudPanelColor)
		drawCenteredString(drawer, statusRect, truncateWithEllipsis(face, status, statusRect.Dx()-20), hudTextSecondary)
	}
}

// drawDice lays the rolled faces out under the board; spent dice are greyed.
func drawDice(img *image.RGBA, dice dicechess.DiceState, boardRect image.Rectangle) error {
	n := len(dice.Rolled)
	if n == 0 {
		return nil
	}
	total := n*dieSize + (n-1)*dieGap
	x := boardRect.Min.X + (boardRect.Dx()-total)/2
	y := boardRect.Max.Y + coordBand + (diceBand-dieSize)/2
	for i, t := range dice.Rolled {
		rect := image.Rect(x, y, x+dieSize, y+dieSize)
		face := dieFace
		if i < len(dice.Used) && dice.Used[i] {
			face = dieUsedFace
		}
		drawRoundedPanel(img, rect, 8, face)
		icon, err := renderPieceImage(dicechess.Piece{Type: t, Color: dicechess.Black}, dieSize-8)
		if err != nil {
			return err
		}
		imagedraw.Draw(img, rect.Inset(4), icon, image.Point{}, imagedraw.Over)
		x += dieSize + dieGap
	}
	return nil
}

func drawCoordinates(dst imagedraw.Image, origin image.Point, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateColor)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		idx := i
		if flip {
			idx = 7 - i
		}
		rank := string(rune('8' - idx))
		file := string(rune('a' + idx))
		center := i*squareSize + squareSize/2
		drawCenteredText(drawer, rank, origin.X-sideMargin/2, origin.Y+center+ascent/2)
		drawCenteredText(drawer, file, origin.X+center, origin.Y+boardSize+ascent+6)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if limit := min(rect.Dx(), rect.Dy()) / 2; radius > limit {
		radius = limit
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	// a cross of two rectangles plus four corner discs
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, c := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterDisc fills the part of a disc that lies in a rounded corner of rect.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y+radius, rect.Max.X-radius, rect.Max.Y-radius)
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			p := image.Pt(center.X+x, center.Y+y)
			if x*x+y*y > r2 || !p.In(rect) {
				continue
			}
			// skip pixels the cross already covered
			if (p.X >= inner.Min.X && p.X < inner.Max.X) || (p.Y >= inner.Min.Y && p.Y < inner.Max.Y) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/0xffff) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/0xffff) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/0xffff) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/0xffff) >> 8),
	})
}
