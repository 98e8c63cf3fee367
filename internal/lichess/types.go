package lichess

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Account is the subset of /api/account the session layer needs.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Color choices accepted by the seek endpoint.
const (
	ColorRandom = "random"
	ColorWhite  = "white"
	ColorBlack  = "black"
)

// SeekSpec describes a public lobby seek. Zero values for Variant and Color
// fall back to "standard" and "random" at encode time.
type SeekSpec struct {
	Rated            bool
	TimeMinutes      int
	IncrementSeconds int
	Color            string
	Variant          string
	RatingRange      string
}

// Validate normalizes the spec and rejects what the server would refuse,
// before any network call happens.
func (s SeekSpec) Validate() error {
	if s.TimeMinutes < 0 || s.IncrementSeconds < 0 {
		return fmt.Errorf("%w: negative clock", ErrInvalidRequest)
	}
	if s.TimeMinutes == 0 && s.IncrementSeconds == 0 {
		return fmt.Errorf("%w: 0+0 clock is not accepted by the server", ErrInvalidRequest)
	}
	switch s.Color {
	case "", ColorRandom, ColorWhite, ColorBlack:
	default:
		return fmt.Errorf("%w: color %q", ErrInvalidRequest, s.Color)
	}
	return nil
}

func (s SeekSpec) encode() string {
	v := url.Values{}
	v.Set("rated", strconv.FormatBool(s.Rated))
	v.Set("time", strconv.Itoa(s.TimeMinutes))
	v.Set("increment", strconv.Itoa(s.IncrementSeconds))
	variant := s.Variant
	if variant == "" {
		variant = "standard"
	}
	v.Set("variant", variant)
	color := s.Color
	if color == "" {
		color = ColorRandom
	}
	v.Set("color", color)
	if rr := strings.TrimSpace(s.RatingRange); rr != "" {
		v.Set("ratingRange", rr)
	}
	return v.Encode()
}

// Account-stream event types.
const (
	EventGameStart  = "gameStart"
	EventGameFinish = "gameFinish"
	EventChallenge  = "challenge"
)

// StreamEvent is one record on /api/stream/event. Unknown types keep their
// tag and are ignored upstream.
type StreamEvent struct {
	Type string     `json:"type"`
	Game *EventGame `json:"game,omitempty"`
}

type EventGame struct {
	ID string `json:"id"`
}

// Game-stream record types.
const (
	RecordGameFull  = "gameFull"
	RecordGameState = "gameState"
	RecordChatLine  = "chatLine"
)

// ChatRoomPlayer is the only room surfaced to players.
const ChatRoomPlayer = "player"

// GameRecord is one record on /api/board/game/stream/{id}: a full snapshot,
// an incremental state, or a chat line, tagged by Type.
type GameRecord struct {
	Type string `json:"type"`

	// gameFull
	ID    string      `json:"id,omitempty"`
	White *PlayerInfo `json:"white,omitempty"`
	Black *PlayerInfo `json:"black,omitempty"`
	State *GameState  `json:"state,omitempty"`

	// gameState (the same fields arrive at top level)
	Moves     string `json:"moves,omitempty"`
	Status    string `json:"status,omitempty"`
	Winner    string `json:"winner,omitempty"`
	WhiteTime int64  `json:"wtime,omitempty"`
	BlackTime int64  `json:"btime,omitempty"`

	// chatLine
	Room     string `json:"room,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text,omitempty"`
}

type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
	AI     int    `json:"aiLevel,omitempty"`
}

// GameState is the nested state of a gameFull snapshot.
type GameState struct {
	Moves     string `json:"moves"`
	Status    string `json:"status,omitempty"`
	Winner    string `json:"winner,omitempty"`
	WhiteTime int64  `json:"wtime,omitempty"`
	BlackTime int64  `json:"btime,omitempty"`
}
