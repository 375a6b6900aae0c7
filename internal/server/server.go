// Package server exposes the public funnel API (variant assignment,
// event beacon, lead acceptance) and a token-protected admin dashboard.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quotefunnel/quotefunnel/internal/analytics"
	"github.com/quotefunnel/quotefunnel/internal/assign"
	"github.com/quotefunnel/quotefunnel/internal/config"
	"github.com/quotefunnel/quotefunnel/internal/distribute"
	"github.com/quotefunnel/quotefunnel/internal/leads"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"go.uber.org/zap"
)

type Server struct {
	store     *store.SQLiteStore
	cfg       *config.Config
	assigner  *assign.Assigner
	leads     *leads.Service
	emitter   analytics.Emitter
	logger    *zap.Logger
	metrics   *Metrics
	token     string
	tokenFile string
	router    chi.Router
	startTime time.Time
}

func New(s *store.SQLiteStore, cfg *config.Config, logger *zap.Logger, tokenFile string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	assigner := assign.New(s, s, logger)
	distributor := distribute.NewDistributor(cfg.Networks, logger)
	notifier := distribute.NewNotifier(cfg.Telegram, logger)

	srv := &Server{
		store:     s,
		cfg:       cfg,
		assigner:  assigner,
		leads:     leads.NewService(s, assigner, distributor, notifier, logger),
		emitter:   analytics.NewZapEmitter(logger),
		logger:    logger,
		metrics:   NewMetrics(),
		token:     generateToken(),
		tokenFile: tokenFile,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	// Public endpoints
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	s.router.Get("/api/variant", s.handleVariant)
	s.router.Options("/b", s.handleBeacon)
	s.router.Post("/b", s.handleBeacon)
	s.router.Post("/api/leads", s.handleLeadSubmit)
	s.router.Post("/api/leads/express", s.handleExpressSubmit)
	s.router.Post("/api/contact", s.handleContact)

	// Dashboard endpoints (protected)
	s.router.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/dashboard", s.handleDashboard)
	})
}

func (s *Server) Start() error {
	return s.StartWithOptions(true)
}

// StartQuiet starts the server without printing startup messages
func (s *Server) StartQuiet() error {
	return s.StartWithOptions(false)
}

func (s *Server) StartWithOptions(printMessages bool) error {
	// Write token to file for the otp command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", zap.String("path", s.tokenFile), zap.Error(err))
		}
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)

	if printMessages {
		fmt.Println()
		fmt.Printf("quotefunnel running on http://localhost:%d\n", s.cfg.Port)
		fmt.Printf("Dashboard: http://localhost:%d/dashboard?token=%s\n", s.cfg.Port, s.token)
		fmt.Println()
		fmt.Println("Press Ctrl+C to stop")
	}

	s.logger.Info("server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Store() *store.SQLiteStore {
	return s.store
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
