package board

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func sq(t *testing.T, name string) Square {
	t.Helper()
	s, err := ParseSquare(name)
	require.NoError(t, err)
	return s
}

func names(sqs []Square) []string {
	out := make([]string, 0, len(sqs))
	for _, s := range sqs {
		out = append(out, s.String())
	}
	sort.Strings(out)
	return out
}

func TestRookOnEmptyBoard(t *testing.T) {
	var b Board
	d4 := sq(t, "d4")
	b[d4] = Piece{Type: Rook, Color: White}

	got := names(Destinations(&b, d4))
	require.Len(t, got, 14)
	want := []string{
		"a4", "b4", "c4", "e4", "f4", "g4", "h4",
		"d1", "d2", "d3", "d5", "d6", "d7", "d8",
	}
	sort.Strings(want)
	require.Equal(t, want, got)
}

func TestPawnForward(t *testing.T) {
	b := Start()
	got := names(Destinations(&b, sq(t, "e2")))
	require.Equal(t, []string{"e3", "e4"}, got)

	// A blocker on e3 kills both the single and double push, either color.
	for _, c := range []Color{White, Black} {
		blocked := Start()
		blocked[sq(t, "e3")] = Piece{Type: Knight, Color: c}
		require.Empty(t, Destinations(&blocked, sq(t, "e2")))
	}
}

func TestPawnCapturesOnlyDiagonallyOntoEnemies(t *testing.T) {
	b := Start()
	b[sq(t, "d3")] = Piece{Type: Pawn, Color: Black}
	b[sq(t, "f3")] = Piece{Type: Pawn, Color: White}

	got := names(Destinations(&b, sq(t, "e2")))
	require.Equal(t, []string{"d3", "e3", "e4"}, got)
}

func TestBlackPawnDoublePushFromSeventhRank(t *testing.T) {
	b := Start()
	got := names(Destinations(&b, sq(t, "c7")))
	require.Equal(t, []string{"c5", "c6"}, got)
}

func TestKnightCornerAndFriendlyBlockers(t *testing.T) {
	var b Board
	a1 := sq(t, "a1")
	b[a1] = Piece{Type: Knight, Color: White}
	require.Equal(t, []string{"b3", "c2"}, names(Destinations(&b, a1)))

	b[sq(t, "b3")] = Piece{Type: Pawn, Color: White}
	require.Equal(t, []string{"c2"}, names(Destinations(&b, a1)))
}

func TestSlidersStopAtCaptures(t *testing.T) {
	var b Board
	c1 := sq(t, "c1")
	b[c1] = Piece{Type: Bishop, Color: White}
	b[sq(t, "e3")] = Piece{Type: Rook, Color: Black}

	got := names(Destinations(&b, c1))
	// Up-right ray ends with the capture on e3; f4..h6 are not offered.
	require.Equal(t, []string{"a3", "b2", "d2", "e3"}, got)
}

func TestQueenCombinesRookAndBishopRays(t *testing.T) {
	var b Board
	d4 := sq(t, "d4")
	b[d4] = Piece{Type: Queen, Color: Black}
	require.Len(t, Destinations(&b, d4), 27)
}

func TestKingSingleStep(t *testing.T) {
	b := Start()
	// Boxed in at the start.
	require.Empty(t, Destinations(&b, sq(t, "e1")))
}

func TestEmptySquareHasNoDestinations(t *testing.T) {
	b := Start()
	require.Nil(t, Destinations(&b, sq(t, "e4")))
}

func TestCanReachGatesGestures(t *testing.T) {
	b := Start()
	require.True(t, CanReach(&b, sq(t, "g1"), sq(t, "f3")))
	require.False(t, CanReach(&b, sq(t, "g1"), sq(t, "g3")))
}
