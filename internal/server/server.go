// Package server provides the HTTP operator API for the kiosk.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/medkiosk/internal/auditlog"
	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/ledger"
	"github.com/aristath/medkiosk/internal/presentation"
	"github.com/aristath/medkiosk/internal/workflow"
)

// Config holds server configuration.
type Config struct {
	Log        zerolog.Logger
	Port       int
	DevMode    bool
	Ledger     *ledger.Ledger
	Controller *workflow.Controller
	Audit      *auditlog.Repository
	Bus        *events.Bus
	Queue      *presentation.Queue
	RenderSink *presentation.RenderSink // nil when no renderer is configured
}

// Server is the HTTP server exposing the operator API.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	ledger     *ledger.Ledger
	controller *workflow.Controller
	audit      *auditlog.Repository
	bus        *events.Bus
	queue      *presentation.Queue
	renderSink *presentation.RenderSink
	started    time.Time

	connMu        sync.RWMutex
	connected     bool
	connEndpoint  string
	lastConnEvent time.Time
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		ledger:     cfg.Ledger,
		controller: cfg.Controller,
		audit:      cfg.Audit,
		bus:        cfg.Bus,
		queue:      cfg.Queue,
		renderSink: cfg.RenderSink,
		started:    time.Now(),
	}

	// Track broadcaster connection state for the status endpoint.
	cfg.Bus.Subscribe(events.ConnectionEstablished, s.onConnectionEvent)
	cfg.Bus.Subscribe(events.ConnectionLost, s.onConnectionEvent)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE and websocket connections stay open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/events/stream", NewEventsStreamHandler(s.bus, s.log).ServeHTTP)
		r.Get("/directives/ws", s.handleDirectivesWS)

		r.Get("/history", s.handleHistory)
		r.Get("/history/upcoming", s.handleUpcoming)
		r.Post("/history/clear", s.handleClearHistory)
		r.Post("/history/export", s.handleExportHistory)

		r.Post("/workflow/confirm", s.handleConfirm)
		r.Post("/workflow/cancel", s.handleCancel)
		r.Get("/workflow/state", s.handleWorkflowState)

		r.Get("/status", s.handleStatus)
		r.Get("/system/status", s.handleSystemStatus)

		r.Get("/audit/recent", s.handleAuditRecent)

		r.Post("/renderer/enable", s.handleRendererEnable)
		r.Post("/renderer/disable", s.handleRendererDisable)
	})
}

func (s *Server) onConnectionEvent(event *events.Event) {
	data, ok := event.Data.(*events.ConnectionData)
	if !ok {
		return
	}

	s.connMu.Lock()
	s.connected = event.Type == events.ConnectionEstablished
	s.connEndpoint = data.Endpoint
	s.lastConnEvent = event.Timestamp
	s.connMu.Unlock()
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router returns the HTTP handler. Used in tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
