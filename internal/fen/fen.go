package fen

import (
	"errors"
	"fmt"
	"strings"
)

// StartPlacement is the piece-placement field of the standard starting position.
const StartPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

var (
	ErrEmpty      = errors.New("fen: empty placement")
	ErrRankCount  = errors.New("fen: placement must have 8 ranks")
	ErrRankLength = errors.New("fen: rank must total 8 squares")
)

// Color identifies the side a piece belongs to.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Kind is the piece type without color.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
	// Opaque marks a cell holding a character that is not a piece letter.
	Opaque
)

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	case Opaque:
		return "opaque"
	default:
		return ""
	}
}

// Piece is a colored piece. The zero value is an empty square. Opaque cells
// keep the source character in Raw and have no color.
type Piece struct {
	Color Color
	Kind  Kind
	Raw   rune
}

func (p Piece) Opaque() bool { return p.Kind == Opaque }

func (p Piece) Empty() bool { return p.Kind == NoKind }

// Symbol returns the FEN letter of the piece, the raw character of an opaque
// cell, or "" for an empty square.
func (p Piece) Symbol() string {
	var r byte
	switch p.Kind {
	case Opaque:
		return string(p.Raw)
	case Pawn:
		r = 'p'
	case Knight:
		r = 'n'
	case Bishop:
		r = 'b'
	case Rook:
		r = 'r'
	case Queen:
		r = 'q'
	case King:
		r = 'k'
	default:
		return ""
	}
	if p.Color == White {
		r -= 'a' - 'A'
	}
	return string(r)
}

// Board is the decoded placement. Row 0 is rank 8, column 0 is file a.
type Board [8][8]Piece

// At returns the piece on a square given as file 0..7 (a..h) and rank 1..8.
func (b Board) At(file, rank int) Piece {
	if file < 0 || file > 7 || rank < 1 || rank > 8 {
		return Piece{}
	}
	return b[8-rank][file]
}

// Symbols returns the grid as FEN letters, "" for empty squares.
func (b Board) Symbols() [][]string {
	rows := make([][]string, 8)
	for i := range b {
		row := make([]string, 8)
		for j, p := range b[i] {
			row[j] = p.Symbol()
		}
		rows[i] = row
	}
	return rows
}

// Placement encodes the board back into a FEN piece-placement field.
func (b Board) Placement() string {
	var sb strings.Builder
	for i := range b {
		if i > 0 {
			sb.WriteByte('/')
		}
		run := 0
		for _, p := range b[i] {
			if p.Empty() {
				run++
				continue
			}
			if run > 0 {
				sb.WriteByte(byte('0' + run))
				run = 0
			}
			sb.WriteString(p.Symbol())
		}
		if run > 0 {
			sb.WriteByte(byte('0' + run))
		}
	}
	return sb.String()
}

// Decode parses the piece-placement field of a FEN string. Side to move,
// castling rights, en passant and clocks are ignored. A character that is
// neither a digit 1-8 nor a piece letter occupies one opaque cell.
func Decode(s string) (Board, error) {
	var b Board
	placement, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	if placement == "" {
		return b, ErrEmpty
	}
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("%w: got %d", ErrRankCount, len(ranks))
	}
	for row, rank := range ranks {
		col := 0
		for _, ch := range rank {
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				if col > 8 {
					return Board{}, fmt.Errorf("%w: rank %d overflows", ErrRankLength, 8-row)
				}
				continue
			}
			if col >= 8 {
				return Board{}, fmt.Errorf("%w: rank %d overflows", ErrRankLength, 8-row)
			}
			p, ok := pieceFromLetter(ch)
			if !ok {
				p = Piece{Kind: Opaque, Raw: ch}
			}
			b[row][col] = p
			col++
		}
		if col != 8 {
			return Board{}, fmt.Errorf("%w: rank %d has %d", ErrRankLength, 8-row, col)
		}
	}
	return b, nil
}

// StartingBoard returns the standard starting position.
func StartingBoard() Board {
	b, err := Decode(StartPlacement)
	if err != nil {
		panic("fen: starting placement does not decode: " + err.Error())
	}
	return b
}

func pieceFromLetter(ch rune) (Piece, bool) {
	color := Black
	lower := ch
	if ch >= 'A' && ch <= 'Z' {
		color = White
		lower = ch + ('a' - 'A')
	}
	var kind Kind
	switch lower {
	case 'p':
		kind = Pawn
	case 'n':
		kind = Knight
	case 'b':
		kind = Bishop
	case 'r':
		kind = Rook
	case 'q':
		kind = Queen
	case 'k':
		kind = King
	default:
		return Piece{}, false
	}
	return Piece{Color: color, Kind: kind}, true
}
