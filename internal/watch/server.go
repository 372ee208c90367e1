// Package watch streams game states to websocket observers.
package watch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/dice-chess/internal/adapter/dicepresenter"
	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/obslog"
	"github.com/park285/dice-chess/internal/session"
)

const writeTimeout = 5 * time.Second

// Source is the part of the session manager the feed needs.
type Source interface {
	Get(ctx context.Context, id string) (*session.Record, error)
	Subscribe(id string) (<-chan session.Record, func())
}

type Server struct {
	src    Source
	logger *zap.Logger
	mux    *http.ServeMux
	srv    *http.Server

	// done ends open feeds on shutdown; hijacked connections outlive srv.Shutdown
	done chan struct{}
	once sync.Once
}

func New(src Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = obslog.Named("watch")
	}
	s := &Server{src: src, logger: logger, mux: http.NewServeMux(), done: make(chan struct{})}
	s.mux.HandleFunc("GET /ws/games/{id}", s.handleGame)
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) ListenAndServe(addr string) error {
	s.srv.Addr = addr
	s.logger.Info("watch_listen", zap.String("addr", addr))
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.done) })
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// subscribe before the initial read so no change slips between them
	updates, cancel := s.src.Subscribe(id)
	defer cancel()

	rec, err := s.src.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Warn("watch_load_failed", zap.String("game_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	// observers never send; CloseRead answers pings and notices disconnects
	ctx := conn.CloseRead(r.Context())
	s.logger.Debug("watch_open", zap.String("game_id", id))

	last := rec.Snapshot.Version
	if err := s.send(ctx, conn, rec); err != nil {
		return
	}
	if ended(rec) {
		conn.Close(websocket.StatusNormalClosure, "game over")
		return
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("watch_closed", zap.String("game_id", id))
			return
		case <-s.done:
			conn.Close(websocket.StatusGoingAway, "shutting down")
			return
		case upd, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			// ticks publish without a version bump, so only stale versions are skipped
			if upd.Snapshot.Version < last {
				continue
			}
			last = upd.Snapshot.Version
			if err := s.send(ctx, conn, &upd); err != nil {
				return
			}
			if ended(&upd) {
				conn.Close(websocket.StatusNormalClosure, "game over")
				return
			}
		}
	}
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, rec *session.Record) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, dicepresenter.ToGameState(rec)); err != nil {
		s.logger.Debug("watch_write_failed", zap.String("game_id", rec.Meta.ID), zap.Error(err))
		return err
	}
	return nil
}

func ended(rec *session.Record) bool {
	return rec.Snapshot.Turn.Status == dicechess.StatusEnded
}
