// Package api exposes the application over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradelens/app"
)

const defaultShutdownTimeout = 10 * time.Second

type Server struct {
	engine *gin.Engine
	h      *Handler
}

func NewServer(a *app.App) *Server {
	g := gin.New()
	g.Use(gin.Recovery(), RequestID(), Logger())

	s := &Server{engine: g, h: NewHandler(a)}
	s.load(g)
	return s
}

func (s *Server) load(g *gin.Engine) {
	g.GET("/healthz", s.h.Health())

	base := g.Group("/api")
	{
		base.POST("/analyze", s.h.Analyze())
		base.POST("/size", s.h.Size())

		base.GET("/session", s.h.GetSession())
		base.PUT("/session", s.h.PutSession())
	}

	l := base.Group("/ledger")
	{
		l.GET("", s.h.ListLedger())
		l.POST("", s.h.SaveEntry())
		l.PUT("", s.h.ReplaceLedger())
		l.GET("/stats", s.h.Stats())
		l.GET("/export", s.h.Export())
		l.GET("/:id", s.h.GetEntry())
		l.PATCH("/:id", s.h.PatchEntry())
		l.DELETE("/:id", s.h.DeleteEntry())
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info().Str("listen", ln.Addr().String()).Msg("http server started")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("http server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
