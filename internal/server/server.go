// Package server exposes the task program over HTTP.
//
// Routes:
//
//	POST /v1/transactions                 execute a signed request
//	GET  /v1/tasks/:address               read a record
//	GET  /v1/accounts/:identity           read a balance
//	POST /v1/accounts/:identity/airdrop   fund an identity (faucet only)
//	GET  /metrics                         Prometheus exposition
//	GET  /healthz                         liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/task"
)

// Options configures a Server.
type Options struct {
	// Faucet enables the airdrop route. MaxAirdrop caps one airdrop.
	Faucet     bool
	MaxAirdrop uint64

	// AirdropRate limits airdrops per second across all callers, allowing
	// AirdropBurst at once. Zero means unlimited.
	AirdropRate  rate.Limit
	AirdropBurst int

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server routes HTTP requests to a Program.
type Server struct {
	program *task.Program
	ledger  ledger.Ledger
	opts    Options
	logger  *slog.Logger
	router  *gin.Engine
	faucet  *rate.Limiter
}

// New builds a Server over p and the ledger it runs on.
func New(p *task.Program, l ledger.Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		program: p,
		ledger:  l,
		opts:    opts,
		logger:  opts.Logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())

	v1 := router.Group("/v1")
	v1.POST("/transactions", s.handleTransaction)
	v1.GET("/tasks/:address", s.handleGetTask)
	v1.GET("/accounts/:identity", s.handleGetAccount)
	if opts.Faucet {
		if opts.AirdropRate > 0 {
			s.faucet = rate.NewLimiter(opts.AirdropRate, max(opts.AirdropBurst, 1))
		}
		v1.POST("/accounts/:identity/airdrop", s.limitAirdrops(), s.handleAirdrop)
	}

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router = router
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully, waiting at most shutdownTimeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	s.logger.Info("server listening", "addr", ln.Addr().String())

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// limitAirdrops rejects airdrops over the faucet rate with 429.
func (s *Server) limitAirdrops() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.faucet != nil && !s.faucet.Allow() {
			writeError(c, http.StatusTooManyRequests, codeRateLimited, "faucet rate limit exceeded")
			return
		}
		c.Next()
	}
}

// logRequests logs one line per request.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
