package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	nchess "github.com/corentings/chess/v2"

	"github.com/quietfold/boardseek/internal/board"
)

var (
	lightSquare = lipgloss.NewStyle().Background(lipgloss.Color("187")).Foreground(lipgloss.Color("16"))
	darkSquare  = lipgloss.NewStyle().Background(lipgloss.Color("101")).Foreground(lipgloss.Color("16"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	chatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

var glyphs = map[board.Piece]string{
	{Type: board.King, Color: board.White}:   "♔",
	{Type: board.Queen, Color: board.White}:  "♕",
	{Type: board.Rook, Color: board.White}:   "♖",
	{Type: board.Bishop, Color: board.White}: "♗",
	{Type: board.Knight, Color: board.White}: "♘",
	{Type: board.Pawn, Color: board.White}:   "♙",
	{Type: board.King, Color: board.Black}:   "♚",
	{Type: board.Queen, Color: board.Black}:  "♛",
	{Type: board.Rook, Color: board.Black}:   "♜",
	{Type: board.Bishop, Color: board.Black}: "♝",
	{Type: board.Knight, Color: board.Black}: "♞",
	{Type: board.Pawn, Color: board.Black}:   "♟",
}

// renderBoard draws the position from the given side's point of view.
func renderBoard(b board.Board, flipped bool) string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		rank := 7 - row
		if flipped {
			rank = row
		}
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%d ", rank+1)))
		for col := 0; col < 8; col++ {
			file := col
			if flipped {
				file = 7 - col
			}
			sq := board.SquareAt(file, rank)
			cell := " " + glyphAt(b, sq) + " "
			if (file+rank)%2 == 0 {
				sb.WriteString(darkSquare.Render(cell))
			} else {
				sb.WriteString(lightSquare.Render(cell))
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString(labelStyle.Render("  "))
	for col := 0; col < 8; col++ {
		file := col
		if flipped {
			file = 7 - col
		}
		sb.WriteString(labelStyle.Render(fmt.Sprintf(" %c ", 'a'+file)))
	}
	sb.WriteString("\n")
	return sb.String()
}

func glyphAt(b board.Board, sq board.Square) string {
	p := b.At(sq)
	if p.Type == board.NoPiece {
		return " "
	}
	return glyphs[p]
}

// sanLine renders the move history in algebraic notation, numbered by full
// move. Codes the library cannot interpret fall back to their raw form.
func sanLine(codes []string) string {
	game := nchess.NewGame()
	var parts []string
	for i, code := range codes {
		san := code
		pos := game.Position()
		if err := game.PushNotationMove(code, nchess.UCINotation{}, nil); err == nil {
			if moves := game.Moves(); len(moves) > 0 {
				san = nchess.AlgebraicNotation{}.Encode(pos, moves[len(moves)-1])
			}
		}
		if i%2 == 0 {
			parts = append(parts, fmt.Sprintf("%d.%s", i/2+1, san))
		} else {
			parts = append(parts, san)
		}
	}
	return strings.Join(parts, " ")
}

// outcomeLine asks the rules library what the final position says, as a
// cross-check next to the server-reported status.
func outcomeLine(codes []string) string {
	game := nchess.NewGame()
	for _, code := range codes {
		if err := game.PushNotationMove(code, nchess.UCINotation{}, nil); err != nil {
			return ""
		}
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		return "1-0"
	case nchess.BlackWon:
		return "0-1"
	case nchess.Draw:
		return "1/2-1/2"
	default:
		return ""
	}
}
