// Package health serves the liveness and readiness endpoints of the translation
// service.
//
// /healthz answers 200 while the process can serve HTTP. /readyz answers 200
// once a non-empty corpus is loaded and every [Checker] passes. Its body names
// the corpus being served, so a readiness check also shows whether a reload took effect:
//
//	{"status":"ok","corpus":{"version":"v3","entries":412,"coverage":{...}},
//	 "checks":{"sqlite":"ok","llm":"ok"}}
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/MrWong99/cmiique/pkg/lang"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named dependency check. Check returns nil when the dependency
// is usable and must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Corpus is the view of the phrase table the readiness report shows.
// *corpus.Index implements it.
type Corpus interface {
	Version() string
	Len() int
	Coverage() map[lang.Language]int
}

// CorpusStatus identifies the served corpus.
type CorpusStatus struct {
	Version  string                `json:"version"`
	Entries  int                   `json:"entries"`
	Coverage map[lang.Language]int `json:"coverage"`
}

// Report is the JSON body of both endpoints.
type Report struct {
	Status string            `json:"status"`
	Corpus *CorpusStatus     `json:"corpus,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Option configures a [Handler].
type Option func(*Handler)

// WithCorpus makes readiness depend on the corpus returned by current, which
// is called on every request so reloads are picked up.
func WithCorpus(current func() Corpus) Option {
	return func(h *Handler) { h.corpus = current }
}

// WithCheckers adds dependency checks to readiness.
func WithCheckers(c ...Checker) Option {
	return func(h *Handler) { h.checkers = append(h.checkers, c...) }
}

// Handler serves /healthz and /readyz. It is safe for concurrent use.
type Handler struct {
	corpus   func() Corpus
	checkers []Checker
}

// New returns a Handler configured with opts.
func New(opts ...Option) *Handler {
	h := &Handler{}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Healthz always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Report{Status: "ok"})
}

// Readyz runs the checkers concurrently, each with a [checkTimeout] deadline
// derived from the request, and reports the corpus. It answers 503 when a
// checker fails or when a corpus source is configured but empty.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := Report{Status: "ok"}
	ready := true

	if h.corpus != nil {
		cs := corpusStatus(h.corpus())
		rep.Corpus = cs
		if cs == nil || cs.Entries == 0 {
			ready = false
		}
	}

	if len(h.checkers) > 0 {
		rep.Checks = make(map[string]string, len(h.checkers))
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, c := range h.checkers {
			wg.Go(func() {
				ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
				err := c.Check(ctx)
				cancel()

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					rep.Checks[c.Name] = "fail: " + err.Error()
					ready = false
					return
				}
				rep.Checks[c.Name] = "ok"
			})
		}
		wg.Wait()
	}

	status := http.StatusOK
	if !ready {
		rep.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

func corpusStatus(c Corpus) *CorpusStatus {
	if c == nil {
		return nil
	}
	return &CorpusStatus{Version: c.Version(), Entries: c.Len(), Coverage: c.Coverage()}
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
