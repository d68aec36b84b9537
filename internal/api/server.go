// Package api exposes the translator over HTTP.
//
// Routes:
//
//	POST /v1/translate    translate one text
//	GET  /v1/suggest      ranked corpus matches
//	POST /v1/polysemy     detect and resolve the sense of a word
//	POST /v1/consistency  back-translation check of a proposed translation
//	GET  /v1/corpus       corpus version and per-language coverage
//	GET  /v1/stream       websocket; one translate request per text frame
//
// Errors are JSON objects of the form {"error": "..."}.
package api

import (
	"log/slog"
	"net/http"

	"github.com/MrWong99/cmiique/internal/health"
	"github.com/MrWong99/cmiique/internal/observe"
	"github.com/MrWong99/cmiique/internal/translate"
)

// maxBodyBytes bounds request bodies and websocket frames.
const maxBodyBytes = 64 << 10

// Option configures a [Server].
type Option func(*Server)

// WithHealth registers /healthz and /readyz from h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics sets the metrics used by the middleware and stream gauge.
// Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithAllowedOrigins sets the host patterns allowed to open /v1/stream from
// a browser. Without it only same-origin pages may connect.
func WithAllowedOrigins(patterns ...string) Option {
	return func(s *Server) { s.origins = patterns }
}

// WithLogger sets the logger for panics and handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server holds the HTTP handlers. Create it with [New].
type Server struct {
	tr             *translate.Translator
	health         *health.Handler
	metrics        *observe.Metrics
	metricsHandler http.Handler
	log            *slog.Logger
	origins        []string
}

// New returns a Server backed by tr.
func New(tr *translate.Translator, opts ...Option) *Server {
	s := &Server{tr: tr}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "api")
	return s
}

// Register adds all routes to mux without middleware.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/translate", s.handleTranslate)
	mux.HandleFunc("GET /v1/suggest", s.handleSuggest)
	mux.HandleFunc("POST /v1/polysemy", s.handlePolysemy)
	mux.HandleFunc("POST /v1/consistency", s.handleConsistency)
	mux.HandleFunc("GET /v1/corpus", s.handleCorpus)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
}

// Handler returns the routed API wrapped in panic recovery and the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return Chain(Recovery(s.log), observe.Middleware(s.metrics))(mux)
}
