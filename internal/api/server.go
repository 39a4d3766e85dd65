// Package api exposes a read-only HTTP surface over the running bot:
// portfolio state, trade history, decision log and a live event stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"equity-trading-bot/config"
	"equity-trading-bot/internal/engine"
	"equity-trading-bot/internal/events"
	"equity-trading-bot/internal/ledger"
	"equity-trading-bot/internal/logging"
	"equity-trading-bot/internal/market"
)

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.ServerConfig
	book       ledger.Ledger
	eng        *engine.Engine
	client     market.Client
	hub        *WSHub
	logger     *logging.Logger
	startedAt  time.Time
	liveMode   bool
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	book ledger.Ledger,
	eng *engine.Engine,
	client market.Client,
	bus *events.EventBus,
	logger *logging.Logger,
	liveMode bool,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" || cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:    router,
		config:    cfg,
		book:      book,
		eng:       eng,
		client:    client,
		hub:       NewWSHub(bus, logger),
		logger:    logger.WithComponent("api"),
		startedAt: time.Now().UTC(),
		liveMode:  liveMode,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/portfolio", s.handlePortfolio)
		api.GET("/trades", s.handleTrades)
		api.GET("/decisions", s.handleDecisions)
		api.GET("/cycles/last", s.handleLastCycle)
		api.GET("/stats", s.handleStats)
		api.POST("/cycles/run", s.handleRunCycle)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

// Start runs the HTTP server in a background goroutine.
func (s *Server) Start() {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server failed", "error", err.Error())
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
