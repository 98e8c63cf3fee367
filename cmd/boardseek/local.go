package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quietfold/boardseek/internal/board"
	"github.com/quietfold/boardseek/internal/play"
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Play a hot-seat game at this terminal, no account needed",
	Long: `Runs a two-player game offline. Both sides type moves at the same
prompt; "undo" takes back the last move, "quit" exits.`,
	RunE: runLocal,
}

func runLocal(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	game := play.NewLocalGame()

	printLocal := func() {
		fmt.Fprint(out, renderBoard(game.Board(), false))
		if codes := game.Moves(); len(codes) > 0 {
			fmt.Fprintln(out, labelStyle.Render(sanLine(codes)))
			if score := outcomeLine(codes); score != "" {
				fmt.Fprintln(out, statusStyle.Render("Result: "+score))
			}
		}
	}

	printLocal()
	fmt.Fprintf(out, "%s to move: ", game.Turn())
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line == "quit":
			return nil
		case line == "undo":
			if err := game.TakeBack(); err != nil {
				fmt.Fprintln(out, errStyle.Render(err.Error()))
			} else {
				printLocal()
			}
		default:
			mv, err := board.ParseMove(line)
			if err != nil {
				fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("%q is not a move (try e2e4), \"undo\" or \"quit\"", line)))
				break
			}
			if err := game.Play(mv); err != nil {
				fmt.Fprintln(out, errStyle.Render(err.Error()))
				break
			}
			printLocal()
		}
		fmt.Fprintf(out, "%s to move: ", game.Turn())
	}
	return sc.Err()
}
