package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/gogpu/fractal"
)

//go:embed static
var staticFiles embed.FS

// server serves the viewer page and one websocket session per client. All
// sessions share a single pipeline; Pipeline.Frame serializes them.
type server struct {
	pipe           *fractal.Pipeline
	initial        fractal.View
	interval       time.Duration
	originPatterns []string
	log            *slog.Logger
}

func (s *server) handler() http.Handler {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/", http.FileServerFS(static))
	return mux
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer c.CloseNow()

	ctrl, err := fractal.NewController(s.initial)
	if err != nil {
		c.Close(websocket.StatusInternalError, "invalid initial view")
		return
	}

	log := s.log.With("remote", r.RemoteAddr)
	log.Info("viewer connected")
	sess := &session{
		conn:     c,
		pipe:     s.pipe,
		ctrl:     ctrl,
		interval: s.interval,
		log:      log,
	}
	err = sess.run(r.Context())

	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		log.Info("viewer disconnected")
	case errors.Is(err, context.Canceled):
		log.Info("viewer session canceled")
	default:
		log.Warn("viewer session failed", "err", err)
		c.Close(websocket.StatusInternalError, "render failed")
	}
}
