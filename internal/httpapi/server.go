// Package httpapi serves the operational endpoints: liveness and a small
// stats snapshot. It runs beside the websocket gateway on its own port.
package httpapi

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/chessmaster/arena/internal/obslog"
)

// Stats is the point-in-time snapshot returned by /stats.
type Stats struct {
	QueueDepth     int `json:"queue_depth"`
	ConnectedUsers int `json:"connected_users"`
	ActiveClocks   int `json:"active_clocks"`
}

// StatsSource supplies the snapshot. Implemented by the composition root.
type StatsSource func() Stats

type Server struct {
	addr  string
	stats StatsSource
	srv   *fasthttp.Server
}

func NewServer(addr string, stats StatsSource) *Server {
	s := &Server{addr: addr, stats: stats}
	s.srv = &fasthttp.Server{
		Handler: s.route,
		Name:    "arena",
	}
	return s
}

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	obslog.L().Info("http_listen", zap.String("addr", s.addr))
	return s.srv.ListenAndServe(s.addr)
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case "/stats":
		s.handleStats(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx) {
	body, err := json.Marshal(s.stats())
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
