package lichess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/quietfold/boardseek/internal/ndjson"
)

// The long-lived endpoints ride on net/http: a streaming response body has to
// stay open for minutes and die promptly when its context is cancelled, which
// the pooled fasthttp path cannot do mid-read.

// EventStream is the open account event stream. Next blocks until a record
// arrives; Close aborts the underlying read.
type EventStream struct {
	body   io.ReadCloser
	dec    *ndjson.Decoder
	cancel context.CancelFunc
	once   sync.Once
}

// StreamEvents opens /api/stream/event. The caller owns the stream and must
// Close it.
func (c *Client) StreamEvents(ctx context.Context, token string) (*EventStream, error) {
	body, cancel, err := c.openStream(ctx, token, "/api/stream/event")
	if err != nil {
		return nil, fmt.Errorf("stream events: %w", err)
	}
	return &EventStream{body: body, dec: ndjson.NewDecoder(body), cancel: cancel}, nil
}

func (s *EventStream) Next() (*StreamEvent, error) {
	for {
		raw, err := s.dec.Next()
		if err != nil {
			return nil, classifyStreamErr(err)
		}
		var ev StreamEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		return &ev, nil
	}
}

func (s *EventStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// GameStream is the open per-game stream. Same contract as EventStream.
type GameStream struct {
	body   io.ReadCloser
	dec    *ndjson.Decoder
	cancel context.CancelFunc
	once   sync.Once
}

// StreamGame opens /api/board/game/stream/{id}.
func (c *Client) StreamGame(ctx context.Context, token, gameID string) (*GameStream, error) {
	body, cancel, err := c.openStream(ctx, token, "/api/board/game/stream/"+gameID)
	if err != nil {
		return nil, fmt.Errorf("stream game %s: %w", gameID, err)
	}
	return &GameStream{body: body, dec: ndjson.NewDecoder(body), cancel: cancel}, nil
}

func (s *GameStream) Next() (*GameRecord, error) {
	for {
		raw, err := s.dec.Next()
		if err != nil {
			return nil, classifyStreamErr(err)
		}
		var rec GameRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		return &rec, nil
	}
}

func (s *GameStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// SeekHandle represents a lobby seek the server is holding open. The seek
// stands while the response body stays open; Close withdraws it. Done is
// closed when the server releases the connection (paired or withdrawn).
type SeekHandle struct {
	cancel context.CancelFunc
	body   io.ReadCloser
	done   chan struct{}
	once   sync.Once
}

// CreateSeek validates the spec locally, then posts it to /api/board/seek.
// The 0+0 clock never reaches the wire.
func (c *Client) CreateSeek(ctx context.Context, token string, spec SeekSpec) (*SeekHandle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(sctx, http.MethodPost, c.baseURL+"/api/board/seek", strings.NewReader(spec.encode()))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create seek: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.streams.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create seek: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		cancel()
		reason := error(nil)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			reason = ErrUnauthorized
		case http.StatusBadRequest:
			reason = ErrInvalidRequest
		}
		return nil, newAPIError(resp.StatusCode, body, reason)
	}

	h := &SeekHandle{cancel: cancel, body: resp.Body, done: make(chan struct{})}
	go func() {
		// Drain the keep-alive body; EOF means the server let go.
		_, _ = io.Copy(io.Discard, resp.Body)
		close(h.done)
	}()
	c.log.Debug("seek_open", zap.Bool("rated", spec.Rated),
		zap.Int("time", spec.TimeMinutes), zap.Int("increment", spec.IncrementSeconds))
	return h, nil
}

// Done is closed once the server has released the seek connection.
func (h *SeekHandle) Done() <-chan struct{} { return h.done }

// Close withdraws the seek by aborting the held connection.
func (h *SeekHandle) Close() error {
	h.once.Do(func() {
		h.cancel()
		_ = h.body.Close()
	})
	return nil
}

func (c *Client) openStream(ctx context.Context, token, path string) (io.ReadCloser, context.CancelFunc, error) {
	sctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(sctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streams.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		cancel()
		reason := error(nil)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			reason = ErrUnauthorized
		}
		return nil, nil, newAPIError(resp.StatusCode, body, reason)
	}
	return resp.Body, cancel, nil
}

// classifyStreamErr keeps io.EOF (orderly remote close) and context errors
// (local abort) distinguishable from a broken pipe.
func classifyStreamErr(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
	}
}
