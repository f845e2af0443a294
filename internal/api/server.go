// Package api exposes the assistant over a JSON HTTP API.
//
// Routes:
//
//	POST /api/v1/query      - run one conversational turn
//	POST /api/v1/bias-check - assess a text without running a turn
//	GET  /api/v1/jobs       - semantic job search
//	GET  /api/v1/events     - semantic event search, or upcoming listing
//	GET  /health            - liveness probe
//	GET  /ready             - readiness probe (database ping)
//
// Health probes sit outside the middleware stack so orchestrator checks are
// never rate limited.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashaai/asha/internal/log"
	"github.com/ashaai/asha/internal/pipeline"
)

// ServerConfig contains everything the API server needs.
type ServerConfig struct {
	Logger    log.Logger
	Responder Responder           // Required
	Bias      BiasChecker         // Required
	Searcher  Searcher            // Required
	Events    pipeline.EventLister // Optional: nil disables the upcoming listing
	Pool      *pgxpool.Pool       // Optional: nil disables database checks in /ready

	CORSOrigins []string
	IsDev       bool
	TrustProxy  bool
	RateBurst   int // per-IP burst size (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the server with all routes and middleware configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Responder == nil {
		return nil, errors.New("responder is required")
	}
	if cfg.Bias == nil {
		return nil, errors.New("bias checker is required")
	}
	if cfg.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	qh := &queryHandler{responder: cfg.Responder, logger: logger}
	bh := &biasHandler{checker: cfg.Bias, logger: logger}
	sh := &searchHandler{searcher: cfg.Searcher, lister: cfg.Events, logger: logger, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/query", qh.send)
	mux.HandleFunc("POST /api/v1/bias-check", bh.check)
	mux.HandleFunc("GET /api/v1/jobs", sh.jobs)
	mux.HandleFunc("GET /api/v1/events", sh.events)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   RequestID -> Recovery -> Logging -> CORS -> RateLimit -> Routes
	// RequestID precedes Recovery and Logging so request_id is available in
	// their log fields. CORS precedes RateLimit so preflight OPTIONS gets
	// proper headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
