package board

import "fmt"

// Move is one move in coordinate (UCI) form: origin, destination, optional
// promotion piece. Round-trips losslessly through ParseMove and UCI.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
}

// ParseMove decodes a 4-or-5 character coordinate code like "e2e4" or "e7e8q".
func ParseMove(code string) (Move, error) {
	if len(code) != 4 && len(code) != 5 {
		return Move{}, fmt.Errorf("bad move code %q", code)
	}
	from, err := ParseSquare(code[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("bad move code %q: %w", code, err)
	}
	to, err := ParseSquare(code[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("bad move code %q: %w", code, err)
	}
	m := Move{From: from, To: to}
	if len(code) == 5 {
		switch code[4] {
		case 'q':
			m.Promotion = Queen
		case 'r':
			m.Promotion = Rook
		case 'b':
			m.Promotion = Bishop
		case 'n':
			m.Promotion = Knight
		default:
			return Move{}, fmt.Errorf("bad promotion in %q", code)
		}
	}
	return m, nil
}

// UCI encodes the move back to its coordinate code.
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPiece {
		s += string(m.Promotion.Letter())
	}
	return s
}

func (m Move) String() string { return m.UCI() }

// IsPromotion reports whether playing m on b would complete a pawn promotion,
// so the caller knows to attach a promotion letter before submitting.
func IsPromotion(b *Board, m Move) bool {
	p := b.At(m.From)
	if p.Type != Pawn {
		return false
	}
	return (p.Color == White && m.To.Rank() == 7) || (p.Color == Black && m.To.Rank() == 0)
}
