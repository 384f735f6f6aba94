package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/microcosm/logger"
	"github.com/kbukum/microcosm/server/endpoint"
	"github.com/kbukum/microcosm/server/middleware"
)

// versionProgram names the binary in the /version banner.
const versionProgram = "microcosm"

// Server is the node's HTTP server: a Gin engine behind a net/http
// middleware chain, served over HTTP/1.1 and h2c.
type Server struct {
	httpServer  *http.Server
	engine      *gin.Engine
	middlewares []middleware.Middleware
	config      Config
	log         *logger.Logger

	mu       sync.RWMutex
	listener net.Listener
}

// New creates a new Server. Gin runs in release mode unless the logger is
// at debug level.
func New(cfg Config, log *logger.Logger) *Server {
	if log.GetLogger().GetLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Use appends middleware to the chain that wraps every route. The first
// middleware added is the outermost.
func (s *Server) Use(mws ...middleware.Middleware) {
	s.middlewares = append(s.middlewares, mws...)
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}
	return h2c.NewHandler(middleware.Chain(s.middlewares...)(s.engine), h2s)
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.httpServer.Handler = s.Handler()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields(logger.FieldAddress, listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("server shutdown error", logger.Fields(logger.FieldError, err.Error()))
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("HTTP server shut down")
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ApplyMiddleware installs the standard chain: recovery, request id, and
// request logging.
func (s *Server) ApplyMiddleware() {
	s.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
	)
}

// RegisterDefaultEndpoints registers /health and /version, and /metrics
// when a metrics handler is given.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker, metrics http.Handler) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/version", endpoint.Version(versionProgram, serviceName))
	if metrics != nil {
		s.engine.GET("/metrics", endpoint.Metrics(metrics))
	}
}

// ApplyDefaults applies the standard middleware stack and registers default endpoints.
func (s *Server) ApplyDefaults(serviceName string, checker endpoint.HealthChecker, metrics http.Handler) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(serviceName, checker, metrics)
}
