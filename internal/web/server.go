// Package web wires the HTTP surface: public capture/results/email routes
// and the session-gated admin surface.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/snapmatch/snapmatch/internal/config"
	"github.com/snapmatch/snapmatch/internal/mail"
	"github.com/snapmatch/snapmatch/internal/matcher"
	"github.com/snapmatch/snapmatch/internal/store"
	"github.com/snapmatch/snapmatch/internal/web/handlers"
	"github.com/snapmatch/snapmatch/internal/web/middleware"
)

// Deps bundles the collaborators the web layer orchestrates.
type Deps struct {
	Matcher     matcher.Matcher
	Images      *matcher.Store
	Admins      store.AdminStore
	UserLogs    store.UserLogStore
	Captures    store.CaptureStore
	SessionRepo middleware.SessionRepository
	Dispatcher  mail.Dispatcher
	Uploader    handlers.Uploader
	Downloader  handlers.Downloader
}

// Server represents the web server.
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server.
func NewServer(cfg *config.Config, port int, host, sessionSecret string, deps Deps) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(sessionSecret, deps.SessionRepo)

	s := &Server{
		config:         cfg,
		router:         r,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes(sessionSecret, deps)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // capture and uploads block the request
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
