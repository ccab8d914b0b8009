package board

import (
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chesswatch/internal/fen"
)

var (
	ranksTopDown     = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	filesLeftToRight = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

// ToNChess converts a decoded placement into a chess library board.
func ToNChess(b fen.Board) *nchess.Board {
	squares := make(map[nchess.Square]nchess.Piece, 32)
	for row, rank := range ranksTopDown {
		for col, file := range filesLeftToRight {
			p := b[row][col]
			// opaque cells have no chess piece to draw
			if p.Empty() || p.Opaque() {
				continue
			}
			squares[nchess.NewSquare(file, rank)] = nchess.NewPiece(pieceType(p.Kind), pieceColor(p.Color))
		}
	}
	return nchess.NewBoard(squares)
}

func pieceType(k fen.Kind) nchess.PieceType {
	switch k {
	case fen.Pawn:
		return nchess.Pawn
	case fen.Knight:
		return nchess.Knight
	case fen.Bishop:
		return nchess.Bishop
	case fen.Rook:
		return nchess.Rook
	case fen.Queen:
		return nchess.Queen
	case fen.King:
		return nchess.King
	default:
		return nchess.NoPieceType
	}
}

func pieceColor(c fen.Color) nchess.Color {
	switch c {
	case fen.White:
		return nchess.White
	case fen.Black:
		return nchess.Black
	default:
		return nchess.NoColor
	}
}

// Material sums pawn-unit piece values per side.
type Material struct {
	White int
	Black int
}

func (m Material) Diff() int { return m.White - m.Black }

func MaterialOf(b fen.Board) Material {
	var m Material
	for _, row := range b {
		for _, p := range row {
			v := pieceValue(p.Kind)
			switch p.Color {
			case fen.White:
				m.White += v
			case fen.Black:
				m.Black += v
			}
		}
	}
	return m
}

func pieceValue(k fen.Kind) int {
	switch k {
	case fen.Pawn:
		return 1
	case fen.Knight, fen.Bishop:
		return 3
	case fen.Rook:
		return 5
	case fen.Queen:
		return 9
	default:
		return 0
	}
}

// ParseLastMove reads a UCI move such as "e2e4" or "e7e8q".
func ParseLastMove(uci string) (*MoveHighlight, bool) {
	uci = strings.TrimSpace(uci)
	if len(uci) < 4 {
		return nil, false
	}
	from, ok := parseSquare(uci[0:2])
	if !ok {
		return nil, false
	}
	to, ok := parseSquare(uci[2:4])
	if !ok {
		return nil, false
	}
	return &MoveHighlight{From: from, To: to}, true
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(filesLeftToRight[s[0]-'a'], ranksTopDown[7-int(s[1]-'1')]), true
}
