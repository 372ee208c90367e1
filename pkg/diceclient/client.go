package diceclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/dice-chess/pkg/dicedto"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	dicedto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dicechess api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

// Client talks to the dice chess HTTP API.
type Client struct {
	baseURL  string
	watchURL string
	http     *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// WithWatchURL points Watch at a separate websocket listener.
func WithWatchURL(u string) Option {
	return func(c *Client) { c.watchURL = strings.TrimRight(u, "/") }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.watchURL == "" {
		c.watchURL = toWebSocketURL(c.baseURL)
	}
	return c
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, nil, true)
}

func (c *Client) CreateGame(ctx context.Context, req dicedto.CreateGameRequest) (*dicedto.GameState, error) {
	var out dicedto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Game(ctx context.Context, id string) (*dicedto.GameState, error) {
	var out dicedto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Roll(ctx context.Context, id string) (*dicedto.GameState, error) {
	var out dicedto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "roll"), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Select(ctx context.Context, id, square string) (*dicedto.SelectResponse, error) {
	var out dicedto.SelectResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "select"), dicedto.SelectRequest{Square: square}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Move(ctx context.Context, id, from, to string) (*dicedto.MoveResponse, error) {
	var out dicedto.MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "move"), dicedto.MoveRequest{From: from, To: to}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Resign(ctx context.Context, id, color string) (*dicedto.GameState, error) {
	var out dicedto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "resign"), dicedto.ResignRequest{Color: color}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Destinations(ctx context.Context, id, square string) ([]string, error) {
	var out dicedto.DestinationsResponse
	path := gamePath(id, "destinations") + "?square=" + url.QueryEscape(square)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Destinations, nil
}

// BoardPNG downloads the rendered board.
func (c *Client) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	var png []byte
	err := c.do(ctx, fasthttp.MethodGet, gamePath(id, "board.png"), nil, true, func(resp *fasthttp.Response) error {
		png = append([]byte(nil), resp.Body()...)
		return nil
	})
	return png, err
}

func (c *Client) Balance(ctx context.Context, player string) (*dicedto.AccountDTO, error) {
	var out dicedto.AccountDTO
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/players/"+url.PathEscape(player)+"/balance", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, player string, limit int) ([]dicedto.GameSummaryDTO, error) {
	var out dicedto.HistoryResponse
	path := "/api/players/" + url.PathEscape(player) + "/games"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Games, nil
}

func gamePath(id, action string) string {
	p := "/api/games/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, retry bool) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	return c.do(ctx, method, path, payload, retry, func(resp *fasthttp.Response) error {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool, onOK func(*fasthttp.Response) error) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if payload != nil {
		req.Header.SetContentType("application/json")
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
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			return onOK(resp)
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) *APIError {
	out := &APIError{Status: status}
	if err := json.Unmarshal(body, &out.DomainError); err != nil || out.Code == "" {
		out.Code = dicedto.CodeInternal
		out.Message = truncate(string(body), 512)
	}
	return out
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
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
	attempt = max(1, min(attempt, 6))
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

func toWebSocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
