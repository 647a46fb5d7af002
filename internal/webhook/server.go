package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the forge ingress: it authenticates webhook deliveries and hands
// the raw payloads to the resolver service. It also serves the read-only
// status feed the watch command polls.
type Server struct {
	config  Config
	handler EventHandler
	status  StatusSource
	logger  *slog.Logger
	server  *http.Server

	// endpoints maps forge names to their configurations
	endpoints map[string]*EndpointConfig
}

// New creates a new webhook server instance. status may be nil; the status
// feed endpoint then reports not found.
func New(config Config, handler EventHandler, status StatusSource, logger *slog.Logger) *Server {
	// Build endpoint lookup map
	endpoints := make(map[string]*EndpointConfig)
	for i := range config.Endpoints {
		ep := &config.Endpoints[i]

		// Apply defaults
		if ep.MaxBodySize == 0 {
			ep.MaxBodySize = DefaultMaxBodySize
		}

		endpoints[ep.Forge] = ep
	}

	return &Server{
		config:    config,
		handler:   handler,
		status:    status,
		logger:    logger,
		endpoints: endpoints,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "endpoints", len(s.endpoints))

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhook/{forge}", s.handleWebhook)
	r.Get("/status/events", s.handleStatusEvents)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Log request (no body content for security)
		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleWebhook handles incoming webhook POST requests.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	forge := chi.URLParam(r, "forge")
	endpoint, ok := s.endpoints[forge]
	if !ok {
		s.respondError(w, http.StatusNotFound, "endpoint not found")
		return
	}

	// Enforce body size limit
	limitedReader := io.LimitReader(r.Body, endpoint.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}

	// Check if body exceeded limit
	if int64(len(body)) > endpoint.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	// Extract delivery credential from header
	credential := r.Header.Get(endpoint.SignatureHeader)
	if credential == "" {
		s.logger.Warn("webhook credential missing",
			"forge", forge,
			"header", endpoint.SignatureHeader,
		)
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	// GitLab delivers the shared secret itself; GitHub-style forges send an
	// HMAC-SHA256 digest of the body. Both compare in constant time.
	var verifyErr error
	if endpoint.Forge == "gitlab" {
		verifyErr = verifySharedToken(credential, endpoint.Secret)
	} else {
		verifyErr = verifyHMACSignature(body, credential, endpoint.Secret)
	}
	if verifyErr != nil {
		s.logger.Warn("webhook verification failed",
			"forge", forge,
			"error", verifyErr,
		)
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	eventType := r.Header.Get(eventTypeHeader(forge))

	receipt, err := s.handler.HandleEvent(ctx, forge, eventType, body)
	if err != nil {
		s.logger.Error("failed to ingest webhook event",
			"forge", forge,
			"event_type", eventType,
			"error", err,
		)
		s.respondError(w, http.StatusInternalServerError, "failed to ingest event")
		return
	}

	s.logger.Info("webhook event ingested",
		"forge", forge,
		"event_type", eventType,
		"event_id", receipt.EventID,
		"batch_id", receipt.BatchID,
		"units", receipt.Units,
	)

	// Respond with 202 Accepted
	s.respondJSON(w, http.StatusAccepted, receipt)
}

// handleStatusEvents serves buffered unit status transitions with a sequence
// number greater than ?since. Pollers pass the last Seq they saw to receive
// only the delta.
func (s *Server) handleStatusEvents(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.respondError(w, http.StatusNotFound, "status feed not available")
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = parsed
	}

	s.respondJSON(w, http.StatusOK, s.status.SnapshotSince(since))
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
