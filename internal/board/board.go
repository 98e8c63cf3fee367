// Package board holds the client-side view of a chess position: a 64-square
// occupancy grid replayed from the server's cumulative move list, plus the
// advisory destination generator that gates user input. The server remains
// the authority on legality; nothing here decides game outcomes.
package board

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType enumerates the chessmen. The zero value marks an empty square.
type PieceType uint8

const (
	NoPiece PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = [...]byte{0, 'p', 'n', 'b', 'r', 'q', 'k'}

// Letter returns the lowercase UCI letter for the piece type.
func (p PieceType) Letter() byte {
	if p == NoPiece || int(p) >= len(pieceLetters) {
		return '?'
	}
	return pieceLetters[p]
}

// Piece is a colored chessman. The zero Piece is an empty square.
type Piece struct {
	Type  PieceType
	Color Color
}

// Square indexes the board 0..63, a1=0, b1=1 ... h8=63.
type Square int8

// SquareAt builds a square from zero-based file (a=0) and rank (1st=0).
// Coordinates outside the 8x8 grid return -1.
func SquareAt(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return -1
	}
	return Square(rank*8 + file)
}

func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return -1, fmt.Errorf("bad square %q", s)
	}
	return SquareAt(int(s[0]-'a'), int(s[1]-'1')), nil
}

func (s Square) Valid() bool { return s >= 0 && s < 64 }
func (s Square) File() int   { return int(s) % 8 }
func (s Square) Rank() int   { return int(s) / 8 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// Board is the occupancy of all 64 squares.
type Board [64]Piece

// Start returns the standard initial position.
func Start() Board {
	var b Board
	back := [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for f := 0; f < 8; f++ {
		b[SquareAt(f, 0)] = Piece{Type: back[f], Color: White}
		b[SquareAt(f, 1)] = Piece{Type: Pawn, Color: White}
		b[SquareAt(f, 6)] = Piece{Type: Pawn, Color: Black}
		b[SquareAt(f, 7)] = Piece{Type: back[f], Color: Black}
	}
	return b
}

func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b[sq]
}

// Undo records the previous contents of the squares a move touched, newest
// last, so a locally applied move can be taken back.
type Undo struct {
	Entries []UndoEntry
}

// UndoEntry is one square's contents before and after a move.
type UndoEntry struct {
	Square Square
	Before Piece
	After  Piece
}

// Apply plays one already-validated move onto the board and returns the undo
// record. It mirrors how the server reports moves: castling arrives as the
// king's two-file hop (the rook shift is implied) and an en-passant capture
// lands on an empty square with the victim behind it.
func (b *Board) Apply(m Move) Undo {
	var u Undo
	set := func(sq Square, p Piece) {
		u.Entries = append(u.Entries, UndoEntry{Square: sq, Before: b[sq], After: p})
		b[sq] = p
	}

	moving := b[m.From]
	landed := moving
	if m.Promotion != NoPiece && moving.Type == Pawn {
		landed = Piece{Type: m.Promotion, Color: moving.Color}
	}

	// En passant: a pawn capturing onto an empty square.
	if moving.Type == Pawn && m.From.File() != m.To.File() && b[m.To] == (Piece{}) {
		victim := SquareAt(m.To.File(), m.From.Rank())
		if victim.Valid() && b[victim].Type == Pawn {
			set(victim, Piece{})
		}
	}

	// Castling: the king travels two files, the rook jumps over.
	if moving.Type == King && abs(m.To.File()-m.From.File()) == 2 {
		rank := m.From.Rank()
		if m.To.File() > m.From.File() {
			set(SquareAt(7, rank), Piece{})
			set(SquareAt(5, rank), Piece{Type: Rook, Color: moving.Color})
		} else {
			set(SquareAt(0, rank), Piece{})
			set(SquareAt(3, rank), Piece{Type: Rook, Color: moving.Color})
		}
	}

	set(m.From, Piece{})
	set(m.To, landed)
	return u
}

// Unapply reverses a move by restoring the recorded square contents.
func (b *Board) Unapply(u Undo) {
	for i := len(u.Entries) - 1; i >= 0; i-- {
		b[u.Entries[i].Square] = u.Entries[i].Before
	}
}

// Replay rebuilds a position from the server's cumulative space-separated
// move list. Used for the initial position of a joined game and for
// re-deriving the board after a rejected optimistic move.
func Replay(moves string) (Board, error) {
	b := Start()
	for _, code := range strings.Fields(moves) {
		m, err := ParseMove(code)
		if err != nil {
			return b, fmt.Errorf("replay %q: %w", code, err)
		}
		b.Apply(m)
	}
	return b, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
