// Package lichess is a typed client for the Lichess Board API: account
// lookup, lobby seeks, the two NDJSON event streams, move submission and
// game chat. Auth is a caller-supplied bearer token, forwarded per call and
// never stored, logged, or placed in a URL.
package lichess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/quietfold/boardseek/internal/obslog"
)

const DefaultBaseURL = "https://lichess.org"

type Client struct {
	baseURL string
	fast    *fasthttp.Client
	streams *http.Client

	defaultTimeout time.Duration
	log            *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.fast.MaxConnsPerHost = n }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		fast:    &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second, MaxConnsPerHost: 8},
		// Long-lived NDJSON reads must not carry a client timeout; the
		// per-call context is what aborts them.
		streams:        &http.Client{},
		defaultTimeout: 15 * time.Second,
		log:            obslog.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAccount resolves the identity behind the token. Any non-2xx is treated
// as an auth failure: there is nothing else this endpoint rejects.
func (c *Client) GetAccount(ctx context.Context, token string) (*Account, error) {
	status, body, err := c.do(ctx, fasthttp.MethodGet, "/api/account", token, "")
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, newAPIError(status, body, ErrUnauthorized)
	}
	var acct Account
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &acct, nil
}

// SubmitMove sends one coordinate-code move. The server is the arbiter of
// legality; a 4xx rejection surfaces as ErrIllegalMove with the server's
// reason attached.
func (c *Client) SubmitMove(ctx context.Context, token, gameID, moveCode string) error {
	path := fmt.Sprintf("/api/board/game/%s/move/%s", gameID, moveCode)
	status, body, err := c.do(ctx, fasthttp.MethodPost, path, token, "")
	if err != nil {
		return fmt.Errorf("submit move %s: %w", moveCode, err)
	}
	switch {
	case status >= 200 && status < 300:
		c.log.Debug("move_submitted", zap.String("game_id", gameID), zap.String("move", moveCode))
		return nil
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return newAPIError(status, body, ErrUnauthorized)
	case status >= 400 && status < 500:
		return newAPIError(status, body, ErrIllegalMove)
	default:
		return newAPIError(status, body, nil)
	}
}

// PostChat sends a chat line to the given room of the game.
func (c *Client) PostChat(ctx context.Context, token, gameID, text, room string) error {
	if room == "" {
		room = ChatRoomPlayer
	}
	form := url.Values{"room": {room}, "text": {text}}.Encode()
	path := fmt.Sprintf("/api/board/game/%s/chat", gameID)
	status, body, err := c.do(ctx, fasthttp.MethodPost, path, token, form)
	if err != nil {
		return fmt.Errorf("post chat: %w", err)
	}
	if status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden {
		return newAPIError(status, body, ErrUnauthorized)
	}
	if status < 200 || status >= 300 {
		return newAPIError(status, body, nil)
	}
	return nil
}

// do issues one short request over the pooled fasthttp client. form, when
// non-empty, is a pre-encoded urlencoded body.
func (c *Client) do(ctx context.Context, method, path, token, form string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if form != "" {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBodyString(form)
	}

	if err := c.fast.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}
