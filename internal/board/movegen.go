package board

// Advisory destination generator. It prunes the obviously illegal targets so
// the surface only offers plausible moves; it deliberately skips en passant,
// castling and check detection because the server rejects anything it
// disagrees with anyway.

type offset struct{ df, dr int }

var (
	knightOffsets = []offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = []offset{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}

	rookDirs   = []offset{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	bishopDirs = []offset{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
)

// Destinations returns the candidate target squares for the piece standing on
// from. An empty origin yields nil.
func Destinations(b *Board, from Square) []Square {
	p := b.At(from)
	switch p.Type {
	case Pawn:
		return pawnDests(b, from, p.Color)
	case Knight:
		return fanDests(b, from, p.Color, knightOffsets)
	case King:
		return fanDests(b, from, p.Color, kingOffsets)
	case Rook:
		return slideDests(b, from, p.Color, rookDirs)
	case Bishop:
		return slideDests(b, from, p.Color, bishopDirs)
	case Queen:
		return slideDests(b, from, p.Color, append(append([]offset(nil), rookDirs...), bishopDirs...))
	default:
		return nil
	}
}

func pawnDests(b *Board, from Square, c Color) []Square {
	dir, startRank := 1, 1
	if c == Black {
		dir, startRank = -1, 6
	}
	var out []Square

	one := SquareAt(from.File(), from.Rank()+dir)
	if one.Valid() && b.At(one).Type == NoPiece {
		out = append(out, one)
		two := SquareAt(from.File(), from.Rank()+2*dir)
		if from.Rank() == startRank && two.Valid() && b.At(two).Type == NoPiece {
			out = append(out, two)
		}
	}

	for _, df := range []int{-1, 1} {
		diag := SquareAt(from.File()+df, from.Rank()+dir)
		if !diag.Valid() {
			continue
		}
		if t := b.At(diag); t.Type != NoPiece && t.Color != c {
			out = append(out, diag)
		}
	}
	return out
}

func fanDests(b *Board, from Square, c Color, offs []offset) []Square {
	var out []Square
	for _, o := range offs {
		to := SquareAt(from.File()+o.df, from.Rank()+o.dr)
		if !to.Valid() {
			continue
		}
		if t := b.At(to); t.Type != NoPiece && t.Color == c {
			continue
		}
		out = append(out, to)
	}
	return out
}

func slideDests(b *Board, from Square, c Color, dirs []offset) []Square {
	var out []Square
	for _, d := range dirs {
		f, r := from.File()+d.df, from.Rank()+d.dr
		for {
			to := SquareAt(f, r)
			if !to.Valid() {
				break
			}
			t := b.At(to)
			if t.Type != NoPiece {
				if t.Color != c {
					out = append(out, to)
				}
				break
			}
			out = append(out, to)
			f += d.df
			r += d.dr
		}
	}
	return out
}

// CanReach reports whether to is among the advisory destinations of the piece
// on from. The gesture gate for outbound moves.
func CanReach(b *Board, from, to Square) bool {
	for _, sq := range Destinations(b, from) {
		if sq == to {
			return true
		}
	}
	return false
}
