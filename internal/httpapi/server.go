package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/dice-chess/internal/adapter/dicepresenter"
	"github.com/park285/dice-chess/internal/domain"
	"github.com/park285/dice-chess/internal/obslog"
	"github.com/park285/dice-chess/internal/render"
	"github.com/park285/dice-chess/internal/results"
	"github.com/park285/dice-chess/internal/session"
	"github.com/park285/dice-chess/pkg/dicedto"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxHistoryLimit       = 50
)

// Accounts reads player balances.
type Accounts interface {
	Account(ctx context.Context, player string) (domain.PlayerAccount, error)
}

type Deps struct {
	Manager  *session.Manager
	Accounts Accounts
	Results  results.Repository
	Renderer render.BoardRenderer
	Logger   *zap.Logger
	// RequestTimeout bounds one request, including dice and bot pauses.
	RequestTimeout time.Duration
}

type Server struct {
	mgr      *session.Manager
	accounts Accounts
	results  results.Repository
	renderer render.BoardRenderer
	logger   *zap.Logger
	timeout  time.Duration

	base   context.Context
	cancel context.CancelFunc
	router *router.Router
	srv    *fasthttp.Server
}

func New(deps Deps) (*Server, error) {
	if deps.Manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Renderer == nil {
		deps.Renderer = render.NewSVGBoardRenderer()
	}
	if deps.Logger == nil {
		deps.Logger = obslog.Named("httpapi")
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = defaultRequestTimeout
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		mgr:      deps.Manager,
		accounts: deps.Accounts,
		results:  deps.Results,
		renderer: deps.Renderer,
		logger:   deps.Logger,
		timeout:  deps.RequestTimeout,
		base:     base,
		cancel:   cancel,
	}
	s.router = s.routes()
	s.srv = &fasthttp.Server{
		Handler:            s.Handler,
		Name:               "dicechess",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       deps.RequestTimeout + 5*time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	return s, nil
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.srv.ShutdownWithContext(ctx)
}

// Handler serves one request and logs its outcome.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	s.router.Handler(ctx)

	s.logger.Debug("http_request",
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Server) routes() *router.Router {
	r := router.New()
	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	})
	r.POST("/api/games", s.createGame)
	r.GET("/api/games/{id}", withParam("id", s.getGame))
	r.POST("/api/games/{id}/roll", withParam("id", s.roll))
	r.POST("/api/games/{id}/select", withParam("id", s.selectSquare))
	r.POST("/api/games/{id}/move", withParam("id", s.move))
	r.POST("/api/games/{id}/resign", withParam("id", s.resign))
	r.GET("/api/games/{id}/destinations", withParam("id", s.destinations))
	r.GET("/api/games/{id}/board.png", withParam("id", s.boardPNG))
	r.GET("/api/players/{player}/balance", withParam("player", s.balance))
	r.GET("/api/players/{player}/games", withParam("player", s.history))
	r.NotFound = s.notFound
	r.MethodNotAllowed = s.methodNotAllowed
	return r
}

func withParam(name string, h func(*fasthttp.RequestCtx, string)) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		v, _ := ctx.UserValue(name).(string)
		h(ctx, v)
	}
}

func (s *Server) reqContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.base, s.timeout)
}

func (s *Server) createGame(ctx *fasthttp.RequestCtx) {
	var req dicedto.CreateGameRequest
	if !decodeBody(ctx, &req) {
		return
	}
	c, cancel := s.reqContext()
	defer cancel()
	rec, err := s.mgr.Create(c, session.CreateRequest{
		Player:      req.Player,
		Mode:        req.Mode,
		Difficulty:  req.Difficulty,
		Hotseat:     req.Hotseat,
		Color:       req.Color,
		TimeControl: req.TimeControl,
		Stake:       req.Stake,
		Seed:        req.Seed,
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, dicepresenter.ToGameState(rec))
}

func (s *Server) getGame(ctx *fasthttp.RequestCtx, id string) {
	c, cancel := s.reqContext()
	defer cancel()
	rec, err := s.mgr.Get(c, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicepresenter.ToGameState(rec))
}

func (s *Server) roll(ctx *fasthttp.RequestCtx, id string) {
	c, cancel := s.reqContext()
	defer cancel()
	rec, err := s.mgr.Roll(c, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicepresenter.ToGameState(rec))
}

func (s *Server) selectSquare(ctx *fasthttp.RequestCtx, id string) {
	var req dicedto.SelectRequest
	if !decodeBody(ctx, &req) {
		return
	}
	c, cancel := s.reqContext()
	defer cancel()
	res, err := s.mgr.Select(c, id, req.Square)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicedto.SelectResponse{
		Outcome: string(res.Outcome),
		Report:  dicepresenter.ToMoveReport(res.Report),
		State:   dicepresenter.ToGameState(res.Record),
	})
}

func (s *Server) move(ctx *fasthttp.RequestCtx, id string) {
	var req dicedto.MoveRequest
	if !decodeBody(ctx, &req) {
		return
	}
	c, cancel := s.reqContext()
	defer cancel()
	res, err := s.mgr.Move(c, id, req.From, req.To)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicedto.MoveResponse{
		Accepted: res.Accepted,
		Report:   dicepresenter.ToMoveReport(res.Report),
		State:    dicepresenter.ToGameState(res.Record),
	})
}

func (s *Server) resign(ctx *fasthttp.RequestCtx, id string) {
	var req dicedto.ResignRequest
	if len(ctx.PostBody()) > 0 && !decodeBody(ctx, &req) {
		return
	}
	c, cancel := s.reqContext()
	defer cancel()
	rec, err := s.mgr.Resign(c, id, req.Color)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicepresenter.ToGameState(rec))
}

func (s *Server) destinations(ctx *fasthttp.RequestCtx, id string) {
	square := string(ctx.QueryArgs().Peek("square"))
	c, cancel := s.reqContext()
	defer cancel()
	list, err := s.mgr.LegalDestinations(c, id, square)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicepresenter.ToDestinations(strings.ToLower(strings.TrimSpace(square)), list))
}

func (s *Server) boardPNG(ctx *fasthttp.RequestCtx, id string) {
	c, cancel := s.reqContext()
	defer cancel()
	rec, err := s.mgr.Get(c, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	snap := rec.Snapshot
	opts := render.Options{
		Caption:  boardCaption(rec.Meta),
		Status:   dicepresenter.ToGameState(rec).Summary,
		Selected: snap.Selected,
		Dice:     snap.Dice,
		Flip:     rec.Meta.HumanColor == "black",
	}
	if n := len(snap.Log.Moves); n > 0 {
		last := snap.Log.Moves[n-1]
		opts.LastMove = &last
	}
	if snap.Selected != nil {
		if opts.Hints, err = s.mgr.LegalDestinations(c, id, snap.Selected.String()); err != nil {
			s.fail(ctx, err)
			return
		}
	}
	png, err := s.renderer.RenderPNG(c, snap.Board, opts)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(png)
}

func boardCaption(m session.Meta) string {
	if m.Hotseat() {
		return "Hot-seat · " + m.Player
	}
	return fmt.Sprintf("%s vs %s bot", m.Player, m.Difficulty)
}

func (s *Server) balance(ctx *fasthttp.RequestCtx, player string) {
	if s.accounts == nil {
		s.notFound(ctx)
		return
	}
	c, cancel := s.reqContext()
	defer cancel()
	acc, err := s.accounts.Account(c, player)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicepresenter.ToAccount(acc))
}

func (s *Server) history(ctx *fasthttp.RequestCtx, player string) {
	if s.results == nil {
		s.notFound(ctx)
		return
	}
	limit := 0
	if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n < 0 {
			writeError(ctx, dicedto.DomainError{Code: dicedto.CodeInvalidRequest, Message: "limit must be a non-negative integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	c, cancel := s.reqContext()
	defer cancel()
	games, err := s.results.RecentGames(c, player, limit)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, dicedto.HistoryResponse{Games: dicepresenter.ToGameSummaries(games)})
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	de := dicepresenter.ToDomainError(err)
	if de.Code == dicedto.CodeInternal {
		s.logger.Warn("http_error", zap.String("path", string(ctx.Path())), zap.Error(err))
	}
	writeError(ctx, de)
}

func (s *Server) notFound(ctx *fasthttp.RequestCtx) {
	writeError(ctx, dicedto.DomainError{Code: dicedto.CodeNotFound, Message: "no such route"})
}

func (s *Server) methodNotAllowed(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, dicedto.DomainError{Code: dicedto.CodeInvalidRequest, Message: "method not allowed"})
}

func decodeBody(ctx *fasthttp.RequestCtx, out any) bool {
	if err := json.Unmarshal(ctx.PostBody(), out); err != nil {
		writeError(ctx, dicedto.DomainError{Code: dicedto.CodeInvalidRequest, Message: "malformed JSON body"})
		return false
	}
	return true
}

func writeError(ctx *fasthttp.RequestCtx, de dicedto.DomainError) {
	writeJSON(ctx, statusFor(de.Code), de)
}

func statusFor(code string) int {
	switch code {
	case dicedto.CodeNotFound:
		return fasthttp.StatusNotFound
	case dicedto.CodeInvalidRequest:
		return fasthttp.StatusBadRequest
	case dicedto.CodeInsufficientFunds:
		return fasthttp.StatusPaymentRequired
	case dicedto.CodeNotYourTurn, dicedto.CodeNotRollingPhase, dicedto.CodeGameOver, dicedto.CodeConflict:
		return fasthttp.StatusConflict
	}
	return fasthttp.StatusInternalServerError
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = fasthttp.StatusInternalServerError
		body = []byte(`{"code":"internal","message":"encode response"}`)
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
