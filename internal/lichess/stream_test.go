package lichess

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ndjsonHandler(t *testing.T, lines []string, hold time.Duration) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fl, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer is not a flusher")
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n")
			fl.Flush()
		}
		if hold > 0 {
			select {
			case <-r.Context().Done():
			case <-time.After(hold):
			}
		}
	}
}

func TestStreamEvents(t *testing.T) {
	srv := httptest.NewServer(ndjsonHandler(t, []string{
		`{"type":"challenge","challenge":{"id":"c1"}}`,
		``,
		`{"type":"gameStart","game":{"id":"g7"}}`,
	}, 0))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	s, err := c.StreamEvents(context.Background(), "tok")
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ev, err := s.Next()
	if err != nil || ev.Type != EventChallenge {
		t.Fatalf("first event = %+v, err %v", ev, err)
	}
	ev, err = s.Next()
	if err != nil || ev.Type != EventGameStart || ev.Game == nil || ev.Game.ID != "g7" {
		t.Fatalf("second event = %+v, err %v", ev, err)
	}
	if _, err = s.Next(); err != io.EOF {
		t.Fatalf("want io.EOF at stream end, got %v", err)
	}
}

func TestStreamEventsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(ndjsonHandler(t, nil, 0))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.StreamEvents(context.Background(), "bad")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestStreamGameRecords(t *testing.T) {
	srv := httptest.NewServer(ndjsonHandler(t, []string{
		`{"type":"gameFull","id":"g7","white":{"name":"Alice"},"black":{"name":"Bob"},"state":{"moves":"","status":"started"}}`,
		`{"type":"gameState","moves":"e2e4","status":"started","wtime":300000,"btime":300000}`,
		`{"type":"chatLine","room":"player","username":"Bob","text":"hi"}`,
	}, 0))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	s, err := c.StreamGame(context.Background(), "tok", "g7")
	if err != nil {
		t.Fatalf("StreamGame: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	rec, err := s.Next()
	if err != nil || rec.Type != RecordGameFull {
		t.Fatalf("first record = %+v, err %v", rec, err)
	}
	if rec.White == nil || rec.White.Name != "Alice" || rec.State == nil {
		t.Fatalf("gameFull not decoded: %+v", rec)
	}

	rec, err = s.Next()
	if err != nil || rec.Type != RecordGameState || rec.Moves != "e2e4" {
		t.Fatalf("second record = %+v, err %v", rec, err)
	}

	rec, err = s.Next()
	if err != nil || rec.Type != RecordChatLine || rec.Text != "hi" {
		t.Fatalf("third record = %+v, err %v", rec, err)
	}
}

func TestStreamCloseUnblocksNext(t *testing.T) {
	srv := httptest.NewServer(ndjsonHandler(t, []string{`{"type":"challenge"}`}, 5*time.Second))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	s, err := c.StreamEvents(context.Background(), "tok")
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, nerr := s.Next()
		errCh <- nerr
	}()
	time.Sleep(20 * time.Millisecond)
	_ = s.Close()

	select {
	case nerr := <-errCh:
		if nerr == nil {
			t.Fatal("Next returned a record after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock after Close")
	}
}

func TestCreateSeekHoldsAndWithdraws(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("time"); got != "5" {
			t.Errorf("time = %q", got)
		}
		if got := r.PostFormValue("color"); got != "random" {
			t.Errorf("color = %q", got)
		}
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(released)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	h, err := c.CreateSeek(context.Background(), "tok", SeekSpec{TimeMinutes: 5})
	if err != nil {
		t.Fatalf("CreateSeek: %v", err)
	}

	select {
	case <-h.Done():
		t.Fatal("seek released before Close")
	case <-time.After(50 * time.Millisecond):
	}

	_ = h.Close()
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("server never observed the withdrawn seek")
	}
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after withdrawal")
	}
}
