package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quietfold/boardseek/internal/board"
	"github.com/quietfold/boardseek/internal/config"
	"github.com/quietfold/boardseek/internal/gamestream"
	"github.com/quietfold/boardseek/internal/lichess"
	"github.com/quietfold/boardseek/internal/play"
)

var (
	flagRated       bool
	flagTime        int
	flagIncrement   int
	flagColor       string
	flagRatingRange string
	flagSeekTimeout time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Seek an opponent in the lobby and play a game",
	Long: `Posts a public seek and waits for a pairing, then plays the game live.

During the game, type moves as coordinate codes ("e2e4", "e7e8q"), send chat
with "say <text>", or "quit" to leave.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&flagRated, "rated", false, "seek a rated game")
	playCmd.Flags().IntVar(&flagTime, "time", 0, "initial clock in minutes")
	playCmd.Flags().IntVar(&flagIncrement, "increment", 0, "increment in seconds")
	playCmd.Flags().StringVar(&flagColor, "color", "", "color preference: random|white|black")
	playCmd.Flags().StringVar(&flagRatingRange, "rating-range", "", `opponent rating range, e.g. "1200-1600"`)
	playCmd.Flags().DurationVar(&flagSeekTimeout, "timeout", 0, "give up seeking after this long")
}

func runPlay(cmd *cobra.Command, args []string) error {
	token, err := resolveToken()
	if err != nil {
		return err
	}
	spec, err := buildSeekSpec(cmd)
	if err != nil {
		return err
	}
	timeout := cfg.SeekTimeout
	if flagSeekTimeout > 0 {
		timeout = flagSeekTimeout
	}

	client := lichess.NewClient(lichess.WithBaseURL(cfg.BaseURL))
	ui := newTerminalSurface(cmd.OutOrStdout())
	orch := play.New(play.NewRemote(client), ui, play.Config{
		Token:       token,
		Seek:        spec,
		SeekTimeout: timeout,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel() // game over means the input loop is done too
		return orch.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					orch.Abort()
					return nil
				}
				handleLine(gctx, orch, ui, line)
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildSeekSpec layers command flags over the YAML seek file over built-in
// defaults.
func buildSeekSpec(cmd *cobra.Command) (lichess.SeekSpec, error) {
	def, err := config.LoadSeekDefaults(cfg.SeekFile)
	if err != nil {
		return lichess.SeekSpec{}, err
	}
	spec := lichess.SeekSpec{
		Rated:            def.Rated,
		TimeMinutes:      def.TimeMinutes,
		IncrementSeconds: def.IncrementSeconds,
		Color:            def.Color,
		Variant:          def.Variant,
		RatingRange:      def.RatingRange,
	}
	if cmd.Flags().Changed("rated") {
		spec.Rated = flagRated
	}
	if cmd.Flags().Changed("time") {
		spec.TimeMinutes = flagTime
	}
	if cmd.Flags().Changed("increment") {
		spec.IncrementSeconds = flagIncrement
	}
	if cmd.Flags().Changed("color") {
		spec.Color = flagColor
	}
	if cmd.Flags().Changed("rating-range") {
		spec.RatingRange = flagRatingRange
	}
	return spec, spec.Validate()
}

func handleLine(ctx context.Context, orch *play.Orchestrator, ui *terminalSurface, line string) {
	switch {
	case line == "":
	case line == "quit":
		ui.Status("Leaving.")
		orch.Abort()
	case strings.HasPrefix(line, "say "):
		if err := orch.SendChat(ctx, strings.TrimSpace(strings.TrimPrefix(line, "say "))); err != nil {
			ui.Error(err.Error())
		}
	default:
		mv, err := board.ParseMove(line)
		if err != nil {
			ui.Error(fmt.Sprintf("%q is not a move (try e2e4) or a command (say, quit)", line))
			return
		}
		if err := orch.PlayMove(ctx, mv.From, mv.To, mv.Promotion); err != nil {
			ui.Error(err.Error())
		}
	}
}

// terminalSurface prints session output to the terminal.
type terminalSurface struct {
	mu    sync.Mutex
	out   io.Writer
	role  gamestream.Role
	moves []string
}

func newTerminalSurface(out io.Writer) *terminalSurface {
	return &terminalSurface{out: out}
}

func (s *terminalSurface) Status(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, statusStyle.Render(text))
}

func (s *terminalSurface) Error(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, errStyle.Render(text))
}

func (s *terminalSurface) GameReady(info gamestream.Info) {
	s.mu.Lock()
	s.role = info.Role
	s.mu.Unlock()
	s.Status(fmt.Sprintf("%s vs %s, you play %s", info.WhiteName, info.BlackName, info.Role))
	s.BoardUpdated(board.Start(), nil)
}

func (s *terminalSurface) BoardUpdated(b board.Board, moves []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if moves != nil {
		s.moves = moves
	}
	fmt.Fprint(s.out, renderBoard(b, s.role == gamestream.RoleBlack))
	if len(s.moves) > 0 {
		fmt.Fprintln(s.out, labelStyle.Render(sanLine(s.moves)))
	}
}

func (s *terminalSurface) ChatMessage(author, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, chatStyle.Render(fmt.Sprintf("%s: %s", author, text)))
}

func (s *terminalSurface) GameEnded(status, winner string) {
	s.mu.Lock()
	moves := append([]string(nil), s.moves...)
	s.mu.Unlock()
	text := "Game over: " + status
	if winner != "" {
		text += ", " + winner + " wins"
	}
	if score := outcomeLine(moves); score != "" {
		text += " (" + score + ")"
	}
	s.Status(text)
}
