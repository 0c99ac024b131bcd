// Package http serves the JSON API over expenses lists and their resolutions.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"tesoro/internal/log"
	"tesoro/internal/middleware/ratelimit"
	"tesoro/internal/middleware/security"
	"tesoro/internal/middleware/trace"
	"tesoro/internal/services"
)

// Options configures the API server.
type Options struct {
	Addr               string
	JWTSecret          string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	lists        *services.ExpensesListService
	ready        ReadinessCheck
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a server ready for
// ListenAndServe.
func NewServer(opts Options, lists *services.ExpensesListService, ready ReadinessCheck, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		lists:    lists,
		ready:    ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		logger:   logger,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "NotFound", "route not found").Write(w)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed").Write(w)
	})

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware([]byte(opts.JWTSecret)))

	api.HandleFunc("/expenses-lists", s.handleListLists).Methods(http.MethodGet)
	api.HandleFunc("/expenses-lists", s.handleCreateList).Methods(http.MethodPost)
	api.HandleFunc("/expenses-lists/{id}", s.handleGetList).Methods(http.MethodGet)
	api.HandleFunc("/expenses-lists/{id}", s.handleUpdateList).Methods(http.MethodPatch)
	api.HandleFunc("/expenses-lists/{id}", s.handleDeleteList).Methods(http.MethodDelete)
	api.HandleFunc("/expenses-lists/{id}/resolve", s.handleResolve).Methods(http.MethodGet)
	api.HandleFunc("/expenses-lists/{id}/export", s.handleExport).Methods(http.MethodPost)
	api.HandleFunc("/expenses-lists/{id}/participants", s.handleListParticipants).Methods(http.MethodGet)
	api.HandleFunc("/expenses-lists/{id}/participants", s.handleCreateParticipant).Methods(http.MethodPost)
	api.HandleFunc("/expenses-lists/{id}/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses-lists/{id}/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPatch)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders:   []string{trace.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
	}).Handler(router)

	var handler http.Handler = corsHandler
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "RateLimited", "rate limit exceeded, please try again later").Write(w)
	})(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:           opts.Addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "NotReady", "not ready").Write(w)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
