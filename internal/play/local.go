package play

import (
	"errors"
	"fmt"

	"github.com/quietfold/boardseek/internal/board"
)

// LocalGame is the hot-seat two-player variant: both sides at one terminal,
// gated by the same advisory generator, with an undo stack instead of a
// server. No network involved.
type LocalGame struct {
	board board.Board
	turn  board.Color
	undo  []board.Undo
	moves []board.Move
}

func NewLocalGame() *LocalGame {
	return &LocalGame{board: board.Start(), turn: board.White}
}

func (g *LocalGame) Board() board.Board { return g.board }
func (g *LocalGame) Turn() board.Color  { return g.turn }

// Moves returns the coordinate codes played so far.
func (g *LocalGame) Moves() []string {
	out := make([]string, len(g.moves))
	for i, m := range g.moves {
		out[i] = m.UCI()
	}
	return out
}

// Play applies a move for the side to move. Promotion defaults to a queen
// when a pawn reaches the last rank.
func (g *LocalGame) Play(m board.Move) error {
	p := g.board.At(m.From)
	if p.Type == board.NoPiece {
		return fmt.Errorf("no piece on %s", m.From)
	}
	if p.Color != g.turn {
		return fmt.Errorf("it is %s to move", g.turn)
	}
	if !board.CanReach(&g.board, m.From, m.To) {
		return fmt.Errorf("%s cannot reach %s", m.From, m.To)
	}
	if board.IsPromotion(&g.board, m) && m.Promotion == board.NoPiece {
		m.Promotion = board.Queen
	}
	g.undo = append(g.undo, g.board.Apply(m))
	g.moves = append(g.moves, m)
	g.turn = g.turn.Other()
	return nil
}

// TakeBack undoes the most recent move.
func (g *LocalGame) TakeBack() error {
	if len(g.undo) == 0 {
		return errors.New("nothing to take back")
	}
	g.board.Unapply(g.undo[len(g.undo)-1])
	g.undo = g.undo[:len(g.undo)-1]
	g.moves = g.moves[:len(g.moves)-1]
	g.turn = g.turn.Other()
	return nil
}
