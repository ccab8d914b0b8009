package board

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chesswatch/internal/fen"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	// Flip draws the board from black's side.
	Flip      bool
	Highlight *MoveHighlight
	HUDHeader string
	HUDTurn   string
	// ShowMaterial adds a panel with the material balance.
	ShowMaterial bool
}

type Renderer interface {
	RenderPNG(ctx context.Context, b fen.Board, opts RenderOptions) ([]byte, error)
}

type pngRenderer struct {
	squareSize int
}

func NewRenderer() Renderer {
	return &pngRenderer{squareSize: 64}
}

const (
	sideMargin           = 32
	topMargin            = 104
	bottomMargin         = 32
	titleHeight          = 34
	secondaryPanelHeight = 28
	gapBetweenPanels     = 10
	gapToBoard           = 18
	panelRadius          = 10
	titlePaddingX        = 22
	scorePaddingX        = 18
	turnPaddingX         = 18
	titleMinWidth        = 240
	scoreMinWidth        = 72
	turnMinWidth         = 120
	shadowOffsetY        = 5
)

func (r *pngRenderer) RenderPNG(ctx context.Context, b fen.Board, opts RenderOptions) ([]byte, error) {
	squareSize := r.squareSize
	boardSize := squareSize * 8
	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	boardOrigin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(boardOrigin.X, boardOrigin.Y, boardOrigin.X+boardSize, boardOrigin.Y+boardSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	nb := ToNChess(b)
	geo := geometry{squareSize: squareSize, origin: boardOrigin, flip: opts.Flip}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, MaterialOf(b), boardRect)
	drawBoardShadow(img, boardRect)
	drawSquares(img, geo)
	drawHighlight(img, nb, opts.Highlight, geo)
	if err := drawPieces(img, nb, geo); err != nil {
		return nil, err
	}
	drawCoordinates(img, geo)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{R: 22, G: 24, B: 35, A: 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveHighlight    = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudPanelColor           = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor       = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor          = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary          = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor        = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	boardShadowColor        = color.NRGBA{0, 0, 0, 60}
	coordinateTextColor     = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// geometry maps squares to screen cells, honouring orientation.
type geometry struct {
	squareSize int
	origin     image.Point
	flip       bool
}

func (g geometry) cell(row, col int) image.Rectangle {
	x := g.origin.X + col*g.squareSize
	y := g.origin.Y + row*g.squareSize
	return image.Rect(x, y, x+g.squareSize, y+g.squareSize)
}

// squareAt returns the square drawn at screen row/col.
func (g geometry) squareAt(row, col int) nchess.Square {
	if g.flip {
		return nchess.NewSquare(filesLeftToRight[7-col], ranksTopDown[7-row])
	}
	return nchess.NewSquare(filesLeftToRight[col], ranksTopDown[row])
}

func (g geometry) squareRect(sq nchess.Square) image.Rectangle {
	file := int(sq.File())
	rank := int(sq.Rank())
	row, col := 7-rank, file
	if g.flip {
		row, col = rank, 7-file
	}
	return g.cell(row, col)
}

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	shadowRect := image.Rect(boardRect.Min.X+4, boardRect.Min.Y+8, boardRect.Max.X+8, boardRect.Max.Y+10)
	imagedraw.Draw(img, shadowRect, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawSquares(dst imagedraw.Image, g geometry) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			clr := squareColor(g.squareAt(row, col))
			imagedraw.Draw(dst, g.cell(row, col), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, g geometry) error {
	boardMap := board.SquareMap()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := boardMap[g.squareAt(row, col)]
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, g.squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, g.cell(row, col), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, g geometry) {
	if highlight == nil {
		return
	}
	switch moverColor, ok := moveHighlightMoverColor(board, highlight); {
	case ok && moverColor == nchess.Black:
		drawArrow(img, highlight.From, highlight.To, g, blackMoveHighlightArrow)
	case ok && moverColor == nchess.White:
		drawSquareOverlay(img, g.squareRect(highlight.From), whiteMoveHighlightFill)
		drawSquareOverlay(img, g.squareRect(highlight.To), whiteMoveHighlightFill)
	default:
		drawArrow(img, highlight.From, highlight.To, g, neutralMoveHighlight)
	}
}

// moveHighlightMoverColor guesses who moved from the piece standing on the
// destination, or on the origin for positions that were not updated yet.
func moveHighlightMoverColor(board *nchess.Board, highlight *MoveHighlight) (nchess.Color, bool) {
	if board == nil || highlight == nil {
		return nchess.NoColor, false
	}
	if piece := board.Piece(highlight.To); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	if piece := board.Piece(highlight.From); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	return nchess.NoColor, false
}

func drawHUD(img *image.RGBA, opts RenderOptions, material Material, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "ChessWatch"
	}
	turnText := strings.TrimSpace(opts.HUDTurn)

	turnBottom := boardRect.Min.Y - gapToBoard
	turnTop := turnBottom - secondaryPanelHeight
	titleBottom := turnTop - gapBetweenPanels
	titleTop := titleBottom - titleHeight

	scoreWidth := 0
	var scoreText string
	if opts.ShowMaterial {
		scoreText = formatMaterialDiff(material)
		scoreWidth = max(scoreMinWidth, drawer.MeasureString(scoreText).Round()+scorePaddingX*2)
	}

	titleWidth := max(titleMinWidth, drawer.MeasureString(title).Round()+titlePaddingX*2)
	maxTitleWidth := max(titleMinWidth, boardRect.Dx()-scoreWidth-16)
	titleWidth = min(titleWidth, maxTitleWidth)

	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+titleWidth, titleBottom)
	drawRoundedPanel(img, titleRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, titleRect, panelRadius, hudPanelColor)
	drawCenteredString(drawer, titleRect, truncateWithEllipsis(face, title, titleRect.Dx()-titlePaddingX*2), hudTextPrimary)

	if opts.ShowMaterial {
		scoreRect := image.Rect(boardRect.Max.X-scoreWidth, titleTop, boardRect.Max.X, titleBottom)
		drawRoundedPanel(img, scoreRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
		drawRoundedPanel(img, scoreRect, panelRadius, hudPanelColor)
		drawCenteredString(drawer, scoreRect, scoreText, hudTextPrimary)
	}

	if turnText == "" {
		return
	}
	turnWidth := max(turnMinWidth, drawer.MeasureString(turnText).Round()+turnPaddingX*2)
	turnWidth = min(turnWidth, boardRect.Dx()-40)
	turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnWidth, turnBottom)
	drawRoundedPanel(img, turnRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, turnRect, panelRadius, hudTurnPanelColor)
	drawCenteredString(drawer, turnRect, truncateWithEllipsis(face, turnText, turnRect.Dx()-turnPaddingX*2), hudTurnTextColor)
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to nchess.Square, g geometry, clr color.Color) {
	if from == to {
		return
	}
	squareSize := g.squareSize
	startRect := g.squareRect(from)
	endRect := g.squareRect(to)
	start := image.Pt(startRect.Min.X+squareSize/2, startRect.Min.Y+squareSize/2)
	end := image.Pt(endRect.Min.X+squareSize/2, endRect.Min.Y+squareSize/2)

	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	dirX := dx / length
	dirY := dy / length
	perpX := -dirY
	perpY := dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.18
	headWidth := float64(squareSize) * 0.32

	baseX := float64(start.X) + dirX*baseLength
	baseY := float64(start.Y) + dirY*baseLength

	fillQuad(img,
		pointF{X: float64(start.X) - perpX*halfWidth, Y: float64(start.Y) - perpY*halfWidth},
		pointF{X: float64(start.X) + perpX*halfWidth, Y: float64(start.Y) + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		pointF{X: float64(end.X), Y: float64(end.Y)},
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}

	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
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
	radius = max(0, min(radius, rect.Dx()/2, rect.Dy()/2))
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	// Non-overlapping strips, then quarter discs in the corners.
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []struct {
		center image.Point
		sx, sy int
	}{
		{image.Pt(rect.Min.X+radius, rect.Min.Y+radius), -1, -1},
		{image.Pt(rect.Max.X-radius-1, rect.Min.Y+radius), 1, -1},
		{image.Pt(rect.Min.X+radius, rect.Max.Y-radius-1), -1, 1},
		{image.Pt(rect.Max.X-radius-1, rect.Max.Y-radius-1), 1, 1},
	}
	rSquared := radius * radius
	for _, c := range corners {
		for y := 1; y <= radius; y++ {
			for x := 1; x <= radius; x++ {
				if x*x+y*y > rSquared {
					continue
				}
				blendPixel(img, c.center.X+c.sx*x, c.center.Y+c.sy*y, clr)
			}
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X, rect.Min.X+(rect.Dx()-width)/2)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func formatMaterialDiff(material Material) string {
	diff := material.Diff()
	if diff == 0 {
		return "="
	}
	return fmt.Sprintf("%+d", diff)
}

func drawCoordinates(dst imagedraw.Image, g geometry) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := g.origin.Y + 8*g.squareSize

	for i := 0; i < 8; i++ {
		rankSq := g.squareAt(i, 0)
		rankBaseline := g.origin.Y + i*g.squareSize + g.squareSize/2 + ascent/2
		drawCenteredText(drawer, rankSq.Rank().String(), g.origin.X-sideMargin/2, rankBaseline)

		fileSq := g.squareAt(7, i)
		fileCenter := g.origin.X + i*g.squareSize + g.squareSize/2
		drawCenteredText(drawer, fileSq.File().String(), fileCenter, boardEndY+ascent+4)
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

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	// Premultiplied "over".
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/65535) >> 8),
	})
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}
