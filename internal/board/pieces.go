package board

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

const (
	whiteFill   = "#f8f8f8"
	whiteStroke = "#1b1b1b"
	blackFill   = "#262626"
	blackStroke = "#d9d9d9"
)

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name, err := pieceAssetName(piece)
	if err != nil {
		return nil, err
	}
	tmpl, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	fill, stroke := whiteFill, whiteStroke
	if piece.Color() == nchess.Black {
		fill, stroke = blackFill, blackStroke
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(tintSVG(tmpl, fill, stroke))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
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

func pieceAssetName(piece nchess.Piece) (string, error) {
	var name string
	switch piece.Type() {
	case nchess.King:
		name = "k"
	case nchess.Queen:
		name = "q"
	case nchess.Rook:
		name = "r"
	case nchess.Bishop:
		name = "b"
	case nchess.Knight:
		name = "n"
	case nchess.Pawn:
		name = "p"
	default:
		return "", fmt.Errorf("no asset for piece %v", piece)
	}
	return "assets/pieces/" + name + ".svg", nil
}
