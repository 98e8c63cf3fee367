// Package matchmaking runs one lobby pairing attempt: verify the account,
// attach the event stream, post a seek, then race the first gameStart against
// the deadline and the caller's cancel.
package matchmaking

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quietfold/boardseek/internal/lichess"
	"github.com/quietfold/boardseek/internal/obslog"
)

// DefaultTimeout bounds how long a seek stands before the session gives up.
const DefaultTimeout = 60 * time.Second

// EventSource is the open account event stream the session consumes.
type EventSource interface {
	Next() (*lichess.StreamEvent, error)
	Close() error
}

// API is the slice of the remote client the session needs. The seek handle
// only has to be closeable; closing it withdraws the seek.
type API interface {
	GetAccount(ctx context.Context, token string) (*lichess.Account, error)
	StreamEvents(ctx context.Context, token string) (EventSource, error)
	CreateSeek(ctx context.Context, token string, spec lichess.SeekSpec) (io.Closer, error)
}

// State of the session machine. Paired, TimedOut and Failed are terminal.
type State int32

const (
	StateIdle State = iota
	StateVerifying
	StateSeeking
	StatePaired
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVerifying:
		return "verifying"
	case StateSeeking:
		return "seeking"
	case StatePaired:
		return "paired"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pairing is the published result of a successful session.
type Pairing struct {
	GameID   string
	Username string
}

type Option func(*Session)

func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Session is a single-use matchmaking attempt. Start a new attempt with a
// new Session value.
type Session struct {
	api     API
	token   string
	spec    lichess.SeekSpec
	timeout time.Duration
	id      string
	log     *zap.Logger

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	cancelled bool
}

func New(api API, token string, spec lichess.SeekSpec, opts ...Option) *Session {
	s := &Session{
		api:     api,
		token:   token,
		spec:    spec,
		timeout: DefaultTimeout,
		id:      uuid.NewString(),
		log:     obslog.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel aborts a running session. It wins over a concurrently firing
// timeout: after an explicit cancel the session never reports TimedOut.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.log.Debug("matchmaking_state",
		zap.String("session", s.id),
		zap.Stringer("from", prev),
		zap.Stringer("to", st))
}

func (s *Session) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Run drives the machine to a terminal state and returns the pairing or the
// terminal error (ErrTimeout, ErrCancelled, or a wrapped failure).
func (s *Session) Run(ctx context.Context) (*Pairing, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, fmt.Errorf("matchmaking session already used (state %s)", s.state)
	}
	if s.cancelled {
		s.state = StateFailed
		s.mu.Unlock()
		return nil, lichess.ErrCancelled
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateVerifying
	s.mu.Unlock()
	defer cancel()

	if err := s.spec.Validate(); err != nil {
		s.setState(StateFailed)
		return nil, err
	}

	// Fail fast on bad credentials before the server has anything to unwind.
	acct, err := s.api.GetAccount(runCtx, s.token)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("verify account: %w", err)
	}
	s.log.Info("matchmaking_start",
		zap.String("session", s.id),
		zap.String("username", acct.Username),
		zap.Int("time", s.spec.TimeMinutes),
		zap.Int("increment", s.spec.IncrementSeconds),
		zap.Bool("rated", s.spec.Rated))

	// Listener first: the account stream is not replayable, so a pairing
	// that lands between seek and subscribe would be lost for good.
	events, err := s.api.StreamEvents(runCtx, s.token)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	seek, err := s.api.CreateSeek(runCtx, s.token, s.spec)
	if err != nil {
		_ = events.Close()
		s.setState(StateFailed)
		return nil, fmt.Errorf("create seek: %w", err)
	}
	s.setState(StateSeeking)

	// Both long-lived connections go down together on every terminal path.
	defer func() {
		_ = events.Close()
		_ = seek.Close()
	}()

	paired := make(chan string, 1)
	readErr := make(chan error, 1)
	go func() {
		for {
			ev, nerr := events.Next()
			if nerr != nil {
				readErr <- nerr
				return
			}
			// First gameStart wins; anything else on the stream is noise
			// for a seeking session.
			if ev.Type == lichess.EventGameStart && ev.Game != nil && ev.Game.ID != "" {
				paired <- ev.Game.ID
				return
			}
		}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case gameID := <-paired:
		if s.wasCancelled() {
			s.setState(StateFailed)
			return nil, lichess.ErrCancelled
		}
		s.setState(StatePaired)
		s.log.Info("matchmaking_paired",
			zap.String("session", s.id), zap.String("game_id", gameID))
		return &Pairing{GameID: gameID, Username: acct.Username}, nil

	case <-timer.C:
		if s.wasCancelled() {
			s.setState(StateFailed)
			return nil, lichess.ErrCancelled
		}
		s.setState(StateTimedOut)
		return nil, lichess.ErrTimeout

	case nerr := <-readErr:
		s.setState(StateFailed)
		if s.wasCancelled() {
			return nil, lichess.ErrCancelled
		}
		if runCtx.Err() != nil {
			return nil, runCtx.Err()
		}
		return nil, fmt.Errorf("event stream: %w", nerr)

	case <-runCtx.Done():
		s.setState(StateFailed)
		if s.wasCancelled() {
			return nil, lichess.ErrCancelled
		}
		return nil, runCtx.Err()
	}
}
