package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/park285/echecs/pkg/echecsdto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client talks to the echecs HTTP API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	var h echecsdto.Health
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, &h, true)
}

func (c *Client) CreateGame(ctx context.Context, whiteID, blackID string) (*echecsdto.GameState, error) {
	var st echecsdto.GameState
	req := echecsdto.CreateGameRequest{WhiteID: whiteID, BlackID: blackID}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games", req, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Game(ctx context.Context, id string) (*echecsdto.GameState, error) {
	var st echecsdto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, ""), nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

// Move plays from -> to. A conflict is retried since the request is
// rejected whole by the server.
func (c *Client) Move(ctx context.Context, id, playerID, from, to string) (*echecsdto.MoveResponse, error) {
	var resp echecsdto.MoveResponse
	req := echecsdto.MoveRequest{PlayerID: playerID, From: from, To: to}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/moves"), req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Undo(ctx context.Context, id, playerID string) (*echecsdto.UndoResponse, error) {
	var resp echecsdto.UndoResponse
	req := echecsdto.PlayerRequest{PlayerID: playerID}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/undo"), req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Reset(ctx context.Context, id, playerID string) (*echecsdto.GameState, error) {
	var st echecsdto.GameState
	req := echecsdto.PlayerRequest{PlayerID: playerID}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/reset"), req, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) History(ctx context.Context, id string) ([]string, error) {
	var h echecsdto.History
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, "/history"), nil, &h, true); err != nil {
		return nil, err
	}
	return h.Lines, nil
}

func (c *Client) FEN(ctx context.Context, id string) (string, error) {
	var f echecsdto.FEN
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, "/fen"), nil, &f, true); err != nil {
		return "", err
	}
	return f.FEN, nil
}

// LoadFEN replaces the game's position with a FEN record.
func (c *Client) LoadFEN(ctx context.Context, id, playerID, record string) (*echecsdto.GameState, error) {
	var st echecsdto.GameState
	req := echecsdto.FENRequest{PlayerID: playerID, FEN: record}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/fen"), req, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) PlayerGames(ctx context.Context, playerID string) ([]*echecsdto.GameState, error) {
	var out []*echecsdto.GameState
	path := "/players/" + url.PathEscape(strings.TrimSpace(playerID)) + "/games"
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Save stores the game's position under name.
func (c *Client) Save(ctx context.Context, id, playerID, name string) error {
	var out echecsdto.Saved
	req := echecsdto.SaveRequest{PlayerID: playerID, Name: name}
	return c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/save"), req, &out, false)
}

// Load replaces the game's position with the named save.
func (c *Client) Load(ctx context.Context, id, playerID, name string) (*echecsdto.GameState, error) {
	var st echecsdto.GameState
	req := echecsdto.SaveRequest{PlayerID: playerID, Name: name}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/load"), req, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Saves(ctx context.Context) ([]string, error) {
	var l echecsdto.SaveList
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/saves", nil, &l, true); err != nil {
		return nil, err
	}
	return l.Names, nil
}

// MakeLobby opens a lobby; color is white, black or random.
func (c *Client) MakeLobby(ctx context.Context, playerID, color string) (*echecsdto.Lobby, error) {
	var l echecsdto.Lobby
	req := echecsdto.LobbyRequest{PlayerID: playerID, Color: color}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/lobbies", req, &l, false); err != nil {
		return nil, err
	}
	return &l, nil
}

// JoinLobby takes the free seat; the returned lobby carries the game id.
func (c *Client) JoinLobby(ctx context.Context, code, playerID string) (*echecsdto.Lobby, error) {
	var l echecsdto.Lobby
	path := "/lobbies/" + url.PathEscape(strings.TrimSpace(code)) + "/join"
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, echecsdto.LobbyRequest{PlayerID: playerID}, &l, false); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) Lobbies(ctx context.Context) ([]echecsdto.Lobby, error) {
	var out []echecsdto.Lobby
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/lobbies", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// BoardPNG fetches the rendered board.
func (c *Client) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + gamePath(id, "/board.png"))
	c.applyHeaders(req)
	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, decodeError(status, resp.Body())
	}
	return append([]byte(nil), resp.Body()...), nil
}

func gamePath(id, suffix string) string {
	return "/games/" + url.PathEscape(strings.TrimSpace(id)) + suffix
}

func (c *Client) applyHeaders(req *fasthttp.Request) {
	if c.headers == nil {
		return
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	c.applyHeaders(req)

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := decodeError(status, resp.Body())
			if attempt == attempts || !shouldRetry(status, err) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// decodeError returns the server's DomainError, or a generic one carrying
// the status when the body is not an error document.
func decodeError(status int, body []byte) error {
	var er echecsdto.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Code != "" {
		return er.Error
	}
	return echecsdto.DomainError{
		Code:      echecsdto.CodeInternal,
		Message:   fmt.Sprintf("echecs api error: status=%d body=%s", status, truncate(string(body), 512)),
		Retryable: shouldRetryStatus(status),
	}
}

func shouldRetry(status int, err error) bool {
	var de echecsdto.DomainError
	if errors.As(err, &de) && de.Retryable {
		return true
	}
	return shouldRetryStatus(status)
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
