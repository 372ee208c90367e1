package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/dice-chess/internal/dicechess"
)

// Piece outlines are shared by both sides; FILL and STROKE are replaced per color.
//
//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceCacheKey struct {
	piece dicechess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

var pieceColors = map[dicechess.Color][2][]byte{
	dicechess.White: {[]byte("#f8f8f8"), []byte("#1a1a1a")},
	dicechess.Black: {[]byte("#2b2b2b"), []byte("#0a0a0a")},
}

func renderPieceImage(piece dicechess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := fmt.Sprintf("assets/pieces/%s.svg", piece.Type)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	colors, ok := pieceColors[piece.Color]
	if !ok {
		return nil, fmt.Errorf("piece color %q", piece.Color)
	}
	data = bytes.ReplaceAll(data, []byte("FILL"), colors[0])
	data = bytes.ReplaceAll(data, []byte("STROKE"), colors[1])

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
