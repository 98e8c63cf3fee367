// Package play wires matchmaking, the game stream consumer and the outbound
// API calls into one session, behind a Surface the presentation layer
// implements.
package play

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quietfold/boardseek/internal/board"
	"github.com/quietfold/boardseek/internal/gamestream"
	"github.com/quietfold/boardseek/internal/lichess"
	"github.com/quietfold/boardseek/internal/matchmaking"
	"github.com/quietfold/boardseek/internal/obslog"
)

// Remote is the full remote surface the orchestrator drives. *lichess.Client
// satisfies it through NewRemote.
type Remote interface {
	GetAccount(ctx context.Context, token string) (*lichess.Account, error)
	StreamEvents(ctx context.Context, token string) (matchmaking.EventSource, error)
	CreateSeek(ctx context.Context, token string, spec lichess.SeekSpec) (io.Closer, error)
	StreamGame(ctx context.Context, token, gameID string) (gamestream.Source, error)
	SubmitMove(ctx context.Context, token, gameID, moveCode string) error
	PostChat(ctx context.Context, token, gameID, text, room string) error
}

type remoteClient struct{ c *lichess.Client }

// NewRemote adapts the concrete client's stream types to the interfaces the
// session layers consume.
func NewRemote(c *lichess.Client) Remote { return remoteClient{c: c} }

func (r remoteClient) GetAccount(ctx context.Context, token string) (*lichess.Account, error) {
	return r.c.GetAccount(ctx, token)
}

func (r remoteClient) StreamEvents(ctx context.Context, token string) (matchmaking.EventSource, error) {
	s, err := r.c.StreamEvents(ctx, token)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r remoteClient) CreateSeek(ctx context.Context, token string, spec lichess.SeekSpec) (io.Closer, error) {
	h, err := r.c.CreateSeek(ctx, token, spec)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r remoteClient) StreamGame(ctx context.Context, token, gameID string) (gamestream.Source, error) {
	s, err := r.c.StreamGame(ctx, token, gameID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r remoteClient) SubmitMove(ctx context.Context, token, gameID, moveCode string) error {
	return r.c.SubmitMove(ctx, token, gameID, moveCode)
}

func (r remoteClient) PostChat(ctx context.Context, token, gameID, text, room string) error {
	return r.c.PostChat(ctx, token, gameID, text, room)
}

// Surface receives session output. Implemented by the CLI; every failure
// arrives as a short status string, diagnostics go to the log.
type Surface interface {
	Status(text string)
	GameReady(info gamestream.Info)
	BoardUpdated(b board.Board, moves []string)
	ChatMessage(author, text string)
	GameEnded(status, winner string)
}

// Config for one session. The token is held in memory only and forwarded
// per call.
type Config struct {
	Token       string
	Seek        lichess.SeekSpec
	SeekTimeout time.Duration
}

type Orchestrator struct {
	remote  Remote
	surface Surface
	cfg     Config
	log     *zap.Logger

	mu        sync.Mutex
	session   *matchmaking.Session
	abort     context.CancelFunc
	gameID    string
	identity  string
	role      gamestream.Role
	roleKnown bool
	board     board.Board
	confirmed []string // authoritative cumulative history
	pending   string   // optimistic move awaiting the server's echo
	finished  bool
}

func New(remote Remote, surface Surface, cfg Config) *Orchestrator {
	if cfg.SeekTimeout <= 0 {
		cfg.SeekTimeout = matchmaking.DefaultTimeout
	}
	return &Orchestrator{remote: remote, surface: surface, cfg: cfg, log: obslog.L()}
}

// Run performs one full session: matchmake, then consume the game stream
// until it ends. Blocks until the game is over or the context dies.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := matchmaking.New(o.remote, o.cfg.Token, o.cfg.Seek, matchmaking.WithTimeout(o.cfg.SeekTimeout))
	o.mu.Lock()
	o.session = sess
	o.abort = cancel
	o.mu.Unlock()

	o.surface.Status("Joining Lichess lobby…")
	pairing, err := sess.Run(ctx)
	if err != nil {
		o.surface.Status(statusText(err))
		return err
	}
	o.surface.Status("Match found! Starting…")

	o.mu.Lock()
	o.gameID = pairing.GameID
	o.identity = pairing.Username
	o.board = board.Start()
	o.confirmed = nil
	o.mu.Unlock()

	src, err := o.remote.StreamGame(ctx, o.cfg.Token, pairing.GameID)
	if err != nil {
		o.surface.Status("Could not open the game stream.")
		return fmt.Errorf("open game stream: %w", err)
	}
	// Aborting the session must unblock the consumer's pending read.
	go func() {
		<-ctx.Done()
		_ = src.Close()
	}()

	consumer := gamestream.New(src, pairing.GameID, pairing.Username, gamestream.Handlers{
		Ready:  o.onReady,
		Move:   o.onRemoteMove,
		Status: o.onStatus,
		Chat:   o.onChat,
	})
	if err := consumer.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.surface.Status("Connection to the game was lost.")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	o.mu.Lock()
	done := o.finished
	o.mu.Unlock()
	if !done {
		// The remote closed the stream without a terminal status. Not a
		// crash; the game likely just concluded.
		o.surface.Status("Game stream ended.")
	}
	return nil
}

// CancelSearch aborts a session still in matchmaking.
func (o *Orchestrator) CancelSearch() {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()
	if sess != nil {
		sess.Cancel()
	}
}

// Abort tears the whole session down: the matchmaking attempt if one is
// still seeking, and the running game otherwise.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	sess := o.session
	abort := o.abort
	o.mu.Unlock()
	if sess != nil {
		sess.Cancel()
	}
	if abort != nil {
		abort()
	}
}

// PlayMove validates a from/to gesture against the advisory generator and,
// if it passes, applies it optimistically and submits it. Validation errors
// return synchronously; the server verdict arrives via the Surface.
func (o *Orchestrator) PlayMove(ctx context.Context, from, to board.Square, promotion board.PieceType) error {
	o.mu.Lock()
	if o.gameID == "" {
		o.mu.Unlock()
		return errors.New("no game in progress")
	}
	if o.finished {
		o.mu.Unlock()
		return errors.New("game is over")
	}
	if !o.roleKnown || o.role == gamestream.RoleUnknown {
		o.mu.Unlock()
		return errors.New("spectators cannot move")
	}
	if o.pending != "" {
		o.mu.Unlock()
		return errors.New("previous move still awaiting confirmation")
	}
	if turn := o.turnLocked(); turn != o.role {
		o.mu.Unlock()
		return errors.New("not your turn")
	}
	p := o.board.At(from)
	if p.Type == board.NoPiece || pieceRole(p.Color) != o.role {
		o.mu.Unlock()
		return errors.New("not your piece")
	}
	if !board.CanReach(&o.board, from, to) {
		o.mu.Unlock()
		return fmt.Errorf("%s is not a destination for %s", to, from)
	}

	m := board.Move{From: from, To: to}
	if board.IsPromotion(&o.board, m) {
		if promotion == board.NoPiece {
			promotion = board.Queen
		}
		m.Promotion = promotion
	}

	// Optimistic apply; the authoritative echo confirms it, a rejection
	// rolls it back.
	o.board.Apply(m)
	o.pending = m.UCI()
	snapshot := o.board
	history := append([]string(nil), o.confirmed...)
	gameID := o.gameID
	o.mu.Unlock()

	o.surface.BoardUpdated(snapshot, append(history, m.UCI()))
	go o.submit(ctx, gameID, m.UCI())
	return nil
}

func (o *Orchestrator) submit(ctx context.Context, gameID, code string) {
	err := o.remote.SubmitMove(ctx, o.cfg.Token, gameID, code)
	if err == nil {
		return
	}
	o.log.Warn("move_rejected", zap.String("game_id", gameID), zap.String("move", code), zap.Error(err))

	if errors.Is(err, lichess.ErrUnauthorized) {
		// Credentials are not self-healing; tear the session down.
		o.surface.Status("Session token rejected; leaving the game.")
		o.mu.Lock()
		abort := o.abort
		o.mu.Unlock()
		if abort != nil {
			abort()
		}
		return
	}

	// Rejected move: re-derive the board from the last known-good history
	// instead of trusting the optimistic mutation.
	o.mu.Lock()
	if o.pending == code {
		o.pending = ""
		if b, rerr := board.Replay(strings.Join(o.confirmed, " ")); rerr == nil {
			o.board = b
		}
	}
	snapshot := o.board
	history := append([]string(nil), o.confirmed...)
	o.mu.Unlock()

	o.surface.BoardUpdated(snapshot, history)
	o.surface.Status("Move rejected by the server.")
}

// SendChat relays a line to the player room.
func (o *Orchestrator) SendChat(ctx context.Context, text string) error {
	o.mu.Lock()
	gameID := o.gameID
	identity := o.identity
	o.mu.Unlock()
	if gameID == "" {
		return errors.New("no game in progress")
	}
	if err := o.remote.PostChat(ctx, o.cfg.Token, gameID, text, lichess.ChatRoomPlayer); err != nil {
		return fmt.Errorf("send chat: %w", err)
	}
	o.surface.ChatMessage(identity, text)
	return nil
}

// Board returns a snapshot plus the cumulative history it reflects.
func (o *Orchestrator) Board() (board.Board, []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	history := append([]string(nil), o.confirmed...)
	if o.pending != "" {
		history = append(history, o.pending)
	}
	return o.board, history
}

// Turn reports which role moves next per the applied history.
func (o *Orchestrator) Turn() gamestream.Role {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turnLocked()
}

func (o *Orchestrator) Role() gamestream.Role {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.role
}

func (o *Orchestrator) turnLocked() gamestream.Role {
	n := len(o.confirmed)
	if o.pending != "" {
		n++
	}
	if n%2 == 0 {
		return gamestream.RoleWhite
	}
	return gamestream.RoleBlack
}

func (o *Orchestrator) onReady(info gamestream.Info) {
	o.mu.Lock()
	o.role = info.Role
	o.roleKnown = true
	o.mu.Unlock()
	o.surface.GameReady(info)
}

func (o *Orchestrator) onRemoteMove(mv board.Move, cumulative string) {
	o.mu.Lock()
	fields := strings.Fields(cumulative)
	switch {
	case o.pending != "" && mv.UCI() == o.pending:
		// The server echoed our optimistic move; the board already shows it.
		o.pending = ""
		o.confirmed = fields
		o.mu.Unlock()
		return
	case o.pending != "":
		// History diverged from what we applied locally. Remote wins.
		o.pending = ""
		if b, err := board.Replay(cumulative); err == nil {
			o.board = b
		}
	default:
		o.board.Apply(mv)
	}
	o.confirmed = fields
	snapshot := o.board
	o.mu.Unlock()
	o.surface.BoardUpdated(snapshot, fields)
}

func (o *Orchestrator) onStatus(status, winner string) {
	if status == "" || status == "started" || status == "created" {
		return
	}
	o.mu.Lock()
	o.finished = true
	o.mu.Unlock()
	o.surface.GameEnded(status, winner)
}

func (o *Orchestrator) onChat(author, text string) {
	o.surface.ChatMessage(author, text)
}

func pieceRole(c board.Color) gamestream.Role {
	if c == board.White {
		return gamestream.RoleWhite
	}
	return gamestream.RoleBlack
}

func statusText(err error) string {
	switch {
	case errors.Is(err, lichess.ErrTimeout):
		return "No match found within the timeout window."
	case errors.Is(err, lichess.ErrCancelled):
		return "Matchmaking cancelled."
	case errors.Is(err, lichess.ErrUnauthorized):
		return "Failed to join. Check token & scopes."
	case errors.Is(err, lichess.ErrInvalidRequest):
		return "Seek settings were rejected."
	default:
		return "Matchmaking failed."
	}
}
