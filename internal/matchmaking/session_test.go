package matchmaking

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/quietfold/boardseek/internal/lichess"
)

// fakeEvents is a scriptable account event stream.
type fakeEvents struct {
	ch     chan *lichess.StreamEvent
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{ch: make(chan *lichess.StreamEvent, 8), done: make(chan struct{})}
}

func (f *fakeEvents) Next() (*lichess.StreamEvent, error) {
	select {
	case ev := <-f.ch:
		return ev, nil
	case <-f.done:
		return nil, io.EOF
	}
}

func (f *fakeEvents) Close() error {
	f.once.Do(func() { close(f.done) })
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeEvents) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeSeek struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeSeek) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSeek) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeAPI struct {
	accountErr error
	streamErr  error
	seekErr    error
	events     *fakeEvents
	seek       *fakeSeek

	mu    sync.Mutex
	calls []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{events: newFakeEvents(), seek: &fakeSeek{}}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAPI) GetAccount(ctx context.Context, token string) (*lichess.Account, error) {
	f.record("account")
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return &lichess.Account{ID: "alice", Username: "Alice"}, nil
}

func (f *fakeAPI) StreamEvents(ctx context.Context, token string) (EventSource, error) {
	f.record("stream")
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.events, nil
}

func (f *fakeAPI) CreateSeek(ctx context.Context, token string, spec lichess.SeekSpec) (io.Closer, error) {
	f.record("seek")
	if f.seekErr != nil {
		return nil, f.seekErr
	}
	return f.seek, nil
}

func gameStart(id string) *lichess.StreamEvent {
	return &lichess.StreamEvent{Type: lichess.EventGameStart, Game: &lichess.EventGame{ID: id}}
}

func TestRunPairsBeforeTimeout(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 5}, WithTimeout(50*time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		api.events.ch <- &lichess.StreamEvent{Type: "ping"}
		api.events.ch <- gameStart("g1")
	}()

	p, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.GameID != "g1" || p.Username != "Alice" {
		t.Fatalf("pairing = %+v", p)
	}
	if got := s.State(); got != StatePaired {
		t.Fatalf("state = %s", got)
	}
	if !api.events.isClosed() || !api.seek.isClosed() {
		t.Fatal("streams not torn down after pairing")
	}
}

func TestRunListensBeforeSeeking(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 3}, WithTimeout(50*time.Millisecond))
	api.events.ch <- gameStart("g2")

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"account", "stream", "seek"}
	if len(api.calls) != len(want) {
		t.Fatalf("calls = %v", api.calls)
	}
	for i, name := range want {
		if api.calls[i] != name {
			t.Fatalf("call %d = %s, want %s (order matters: the stream is not replayable)", i, api.calls[i], name)
		}
	}
}

func TestRunTimesOutAndClosesBothConnections(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 5}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := s.Run(context.Background())
	if !errors.Is(err, lichess.ErrTimeout) {
		t.Fatalf("want ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("timed out after %v, before the deadline", elapsed)
	}
	if got := s.State(); got != StateTimedOut {
		t.Fatalf("state = %s", got)
	}
	if !api.events.isClosed() || !api.seek.isClosed() {
		t.Fatal("timeout must close both the event stream and the seek")
	}
}

func TestCancelBeatsTimeout(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 5}, WithTimeout(40*time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Cancel()
	}()

	_, err := s.Run(context.Background())
	if !errors.Is(err, lichess.ErrCancelled) {
		t.Fatalf("want ErrCancelled, got %v", err)
	}
	if got := s.State(); got != StateFailed {
		t.Fatalf("state = %s", got)
	}
	if !api.events.isClosed() || !api.seek.isClosed() {
		t.Fatal("cancel must close both the event stream and the seek")
	}

	// Even if the deadline has long passed by now, a cancelled session never
	// reports a timeout.
	time.Sleep(60 * time.Millisecond)
	if got := s.State(); got != StateFailed {
		t.Fatalf("state flipped after cancel: %s", got)
	}
}

func TestRunFailsFastOnBadCredentials(t *testing.T) {
	api := newFakeAPI()
	api.accountErr = lichess.ErrUnauthorized
	s := New(api, "bad", lichess.SeekSpec{TimeMinutes: 5})

	_, err := s.Run(context.Background())
	if !errors.Is(err, lichess.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if got := s.State(); got != StateFailed {
		t.Fatalf("state = %s", got)
	}
	for _, call := range api.calls {
		if call == "stream" || call == "seek" {
			t.Fatalf("no network side effects after auth failure, saw %v", api.calls)
		}
	}
}

func TestRunRejectsNullClockLocally(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{})

	_, err := s.Run(context.Background())
	if !errors.Is(err, lichess.ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("spec validation must precede any call, saw %v", api.calls)
	}
}

func TestRunClosesEventsWhenSeekFails(t *testing.T) {
	api := newFakeAPI()
	api.seekErr = errors.New("lobby closed")
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 5})

	_, err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	if !api.events.isClosed() {
		t.Fatal("event stream leaked after seek failure")
	}
	if got := s.State(); got != StateFailed {
		t.Fatalf("state = %s", got)
	}
}

func TestRunReportsStreamBreakAsInterrupted(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 5}, WithTimeout(time.Second))

	go func() {
		time.Sleep(10 * time.Millisecond)
		// Remote closing the event stream mid-seek is a failure, not a
		// timeout.
		_ = api.events.Close()
	}()

	_, err := s.Run(context.Background())
	if err == nil || errors.Is(err, lichess.ErrTimeout) {
		t.Fatalf("want stream failure, got %v", err)
	}
	if !api.seek.isClosed() {
		t.Fatal("seek leaked after stream break")
	}
}

func TestParentContextDeathIsNotUserCancel(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 5}, WithTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		// Kill the parent context first, then break the stream, so the
		// session sees the dead context whichever branch wakes it.
		cancel()
		_ = api.events.Close()
	}()

	_, err := s.Run(ctx)
	if errors.Is(err, lichess.ErrCancelled) {
		t.Fatalf("parent context death reported as a user cancel: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if got := s.State(); got != StateFailed {
		t.Fatalf("state = %s", got)
	}
}

func TestSessionIsSingleUse(t *testing.T) {
	api := newFakeAPI()
	s := New(api, "tok", lichess.SeekSpec{TimeMinutes: 5}, WithTimeout(20*time.Millisecond))
	api.events.ch <- gameStart("g3")

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("second Run must fail: terminal states are sticky")
	}
}
