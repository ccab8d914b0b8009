package fen

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStartingPosition(t *testing.T) {
	b, err := Decode("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	require.NoError(t, err)

	backRank := []Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for col, kind := range backRank {
		assert.Equal(t, Piece{Color: Black, Kind: kind}, b[0][col], "black back rank col %d", col)
		assert.Equal(t, Piece{Color: Black, Kind: Pawn}, b[1][col], "black pawn col %d", col)
		assert.Equal(t, Piece{Color: White, Kind: Pawn}, b[6][col], "white pawn col %d", col)
		assert.Equal(t, Piece{Color: White, Kind: kind}, b[7][col], "white back rank col %d", col)
	}
	for row := 2; row <= 5; row++ {
		for col := 0; col < 8; col++ {
			assert.True(t, b[row][col].Empty(), "square %d,%d should be empty", row, col)
		}
	}
	assert.Equal(t, StartingBoard(), b)
}

func TestDecodeMiddlegame(t *testing.T) {
	b, err := Decode("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 3 3")
	require.NoError(t, err)

	assert.Equal(t, Piece{Color: Black, Kind: Knight}, b.At(2, 6))
	assert.Equal(t, Piece{Color: Black, Kind: Pawn}, b.At(4, 5))
	assert.Equal(t, Piece{Color: White, Kind: Pawn}, b.At(4, 4))
	assert.Equal(t, Piece{Color: White, Kind: Knight}, b.At(5, 3))
	assert.True(t, b.At(6, 1).Empty())
	assert.True(t, b.At(8, 1).Empty(), "out of range square reads empty")
}

func TestDecodeIgnoresTrailingFields(t *testing.T) {
	a, err := Decode("8/8/8/8/8/8/8/K6k")
	require.NoError(t, err)
	b, err := Decode("8/8/8/8/8/8/8/K6k w - - 12 80")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrEmpty},
		{"blank", "   ", ErrEmpty},
		{"not a fen", "not-a-fen", ErrRankCount},
		{"seven ranks", "8/8/8/8/8/8/8", ErrRankCount},
		{"nine ranks", "8/8/8/8/8/8/8/8/8", ErrRankCount},
		{"nine is one opaque cell", "rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR", ErrRankLength},
		{"rank sums to nine", "rnbqkbnr/pppppppp/81/8/8/8/PPPPPPPP/RNBQKBNR", ErrRankLength},
		{"extra piece", "rnbqkbnrp/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", ErrRankLength},
		{"short rank", "rnbqkbn/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", ErrRankLength},
		{"opaque cell overflows", "rnbqkbnr/pppppppp/08/8/8/8/PPPPPPPP/RNBQKBNR", ErrRankLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v, want %v", err, tc.want)
		})
	}
}

func TestUnknownCharactersAreOpaqueCells(t *testing.T) {
	b, err := Decode("4k3/8/8/8/8/8/8/4K2x w - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, Piece{Color: White, Kind: King}, b.At(4, 1))
	assert.Equal(t, Piece{Color: Black, Kind: King}, b.At(4, 8))
	cell := b.At(7, 1)
	assert.True(t, cell.Opaque())
	assert.False(t, cell.Empty())
	assert.Equal(t, NoColor, cell.Color)
	assert.Equal(t, "x", cell.Symbol())
	assert.Equal(t, "4K2x", b.Placement()[len(b.Placement())-4:])

	b, err = Decode("rnbqkbnr/pppppppp/07/8/8/8/PPPPPPPP/RNBQKBNX")
	require.NoError(t, err)
	assert.Equal(t, Piece{Kind: Opaque, Raw: '0'}, b.At(0, 6))
	assert.True(t, b.At(1, 6).Empty())
	assert.Equal(t, Piece{Kind: Opaque, Raw: 'X'}, b.At(7, 1))
	assert.Equal(t, "rnbqkbnr/pppppppp/07/8/8/8/PPPPPPPP/RNBQKBNX", b.Placement())
}

func TestMalformedFallsBackToStart(t *testing.T) {
	b, err := Decode("not-a-fen")
	if err != nil {
		b = StartingBoard()
	}
	start, err := Decode(StartPlacement)
	require.NoError(t, err)
	if diff := cmp.Diff(start.Symbols(), b.Symbols()); diff != "" {
		t.Fatalf("fallback board mismatch (-want +got):\n%s", diff)
	}
}

func TestPlacementRoundTrip(t *testing.T) {
	for _, in := range []string{
		StartPlacement,
		"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R",
		"8/8/8/8/8/8/8/8",
		"4k3/8/8/3Q4/8/8/8/4K3",
	} {
		b, err := Decode(in)
		require.NoError(t, err)
		assert.Equal(t, in, b.Placement())
	}
}

func TestSymbols(t *testing.T) {
	b, err := Decode("4k3/8/8/8/8/8/8/4K3")
	require.NoError(t, err)
	rows := b.Symbols()
	require.Len(t, rows, 8)
	for _, row := range rows {
		require.Len(t, row, 8)
	}
	want := []string{"", "", "", "", "k", "", "", ""}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Fatalf("rank 8 mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "K", rows[7][4])
}

func TestPieceStrings(t *testing.T) {
	assert.Equal(t, "Q", Piece{Color: White, Kind: Queen}.Symbol())
	assert.Equal(t, "n", Piece{Color: Black, Kind: Knight}.Symbol())
	assert.Equal(t, "", Piece{}.Symbol())
	assert.Equal(t, "white", White.String())
	assert.Equal(t, "bishop", Bishop.String())
}
