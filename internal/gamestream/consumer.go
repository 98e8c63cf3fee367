// Package gamestream consumes one game's event stream and re-emits it as a
// normalized move feed and chat feed. The server's cumulative move list is
// authoritative; the consumer only ever extracts the unseen suffix.
package gamestream

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/quietfold/boardseek/internal/board"
	"github.com/quietfold/boardseek/internal/lichess"
	"github.com/quietfold/boardseek/internal/obslog"
)

// Source is the open per-game stream the consumer reads.
type Source interface {
	Next() (*lichess.GameRecord, error)
	Close() error
}

// Role of the local player in the streamed game.
type Role int

const (
	RoleUnknown Role = iota
	RoleWhite
	RoleBlack
)

func (r Role) String() string {
	switch r {
	case RoleWhite:
		return "white"
	case RoleBlack:
		return "black"
	default:
		return "unknown"
	}
}

// Info is published once, when the gameFull snapshot arrives.
type Info struct {
	GameID    string
	Role      Role
	WhiteName string
	BlackName string
}

// Handlers receive the normalized feeds. Nil entries are skipped. All
// callbacks run on the consumer's goroutine, in stream arrival order.
type Handlers struct {
	// Ready fires exactly once, after the full snapshot resolved the local
	// role.
	Ready func(info Info)
	// Move fires once per newly observed move; cumulative is the full
	// authoritative move list including it.
	Move func(mv board.Move, cumulative string)
	// Status fires when a state record carries a status (started, mate,
	// resign, draw, aborted, ...).
	Status func(status, winner string)
	// Chat fires for player-room lines only.
	Chat func(author, text string)
}

// Consumer classifies records from one game stream. Single-use.
type Consumer struct {
	src      Source
	gameID   string
	identity string
	h        Handlers
	log      *zap.Logger

	applied    int
	readySent  bool
	lastStatus string
}

func New(src Source, gameID, identity string, h Handlers) *Consumer {
	return &Consumer{src: src, gameID: gameID, identity: identity, h: h, log: obslog.L()}
}

// Run reads the stream until it ends or ctx-driven closure of the source
// unblocks it. A clean remote close returns nil: the game may simply be
// over, which is not a crash.
func (c *Consumer) Run() error {
	defer func() { _ = c.src.Close() }()
	for {
		rec, err := c.src.Next()
		if err != nil {
			if err == io.EOF {
				c.log.Info("game_stream_ended", zap.String("game_id", c.gameID))
				return nil
			}
			return fmt.Errorf("game stream: %w", err)
		}
		c.handle(rec)
	}
}

func (c *Consumer) handle(rec *lichess.GameRecord) {
	switch rec.Type {
	case lichess.RecordGameFull:
		c.handleFull(rec)
	case lichess.RecordGameState:
		c.handleState(rec.Moves, rec.Status, rec.Winner)
	case lichess.RecordChatLine:
		if rec.Room == lichess.ChatRoomPlayer && c.h.Chat != nil {
			c.h.Chat(rec.Username, rec.Text)
		}
	default:
		// Unknown record tags are protocol noise, not errors.
		c.log.Debug("game_record_ignored", zap.String("type", rec.Type))
	}
}

func (c *Consumer) handleFull(rec *lichess.GameRecord) {
	if !c.readySent {
		c.readySent = true
		info := Info{GameID: c.gameID, Role: RoleUnknown}
		if rec.White != nil {
			info.WhiteName = rec.White.Name
		}
		if rec.Black != nil {
			info.BlackName = rec.Black.Name
		}
		switch {
		case strings.EqualFold(info.WhiteName, c.identity):
			info.Role = RoleWhite
		case strings.EqualFold(info.BlackName, c.identity):
			info.Role = RoleBlack
		}
		c.log.Info("game_ready",
			zap.String("game_id", c.gameID),
			zap.Stringer("role", info.Role),
			zap.String("white", info.WhiteName),
			zap.String("black", info.BlackName))
		if c.h.Ready != nil {
			c.h.Ready(info)
		}
	}
	// The snapshot embeds the current state; initial moves flow through the
	// same path as live ones.
	if rec.State != nil {
		c.handleState(rec.State.Moves, rec.State.Status, rec.State.Winner)
	}
}

// handleState extracts the not-yet-applied suffix of the cumulative move
// list. Duplicate deliveries of the same list emit nothing.
func (c *Consumer) handleState(moves, status, winner string) {
	fields := strings.Fields(moves)
	for ; c.applied < len(fields); c.applied++ {
		code := fields[c.applied]
		mv, err := board.ParseMove(code)
		if err != nil {
			c.log.Warn("unparseable_move", zap.String("code", code), zap.Error(err))
			continue
		}
		if c.h.Move != nil {
			c.h.Move(mv, strings.Join(fields[:c.applied+1], " "))
		}
	}
	if status != "" && status != c.lastStatus {
		c.lastStatus = status
		if c.h.Status != nil {
			c.h.Status(status, winner)
		}
	}
}
