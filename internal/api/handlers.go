package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrWong99/cmiique/internal/match"
	"github.com/MrWong99/cmiique/internal/policy"
	"github.com/MrWong99/cmiique/internal/polysemy"
	"github.com/MrWong99/cmiique/internal/translate"
	"github.com/MrWong99/cmiique/pkg/lang"
)

// errBadRequest marks client errors raised while decoding requests.
var errBadRequest = errors.New("bad request")

// TranslateRequest is the body of POST /v1/translate and of each websocket
// frame. Languages accept the codes seri, es, en and their long names.
type TranslateRequest struct {
	Text        string `json:"text"`
	From        string `json:"from"`
	To          string `json:"to"`
	Tier        string `json:"tier,omitempty"`
	Context     string `json:"context,omitempty"`
	Transcribed bool   `json:"transcribed,omitempty"`
}

// toRequest validates the wire fields that the translator cannot.
func (tr TranslateRequest) toRequest() (translate.Request, error) {
	from, err := lang.Parse(tr.From)
	if err != nil {
		return translate.Request{}, fmt.Errorf("%w: from: %w", errBadRequest, err)
	}
	to, err := lang.Parse(tr.To)
	if err != nil {
		return translate.Request{}, fmt.Errorf("%w: to: %w", errBadRequest, err)
	}
	var tier policy.Tier
	if strings.TrimSpace(tr.Tier) != "" {
		if tier, err = policy.ParseTier(tr.Tier); err != nil {
			return translate.Request{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
	}
	return translate.Request{
		Text:        tr.Text,
		From:        from,
		To:          to,
		Tier:        tier,
		Context:     tr.Context,
		Transcribed: tr.Transcribed,
	}, nil
}

// SuggestResponse is the body returned by GET /v1/suggest.
type SuggestResponse struct {
	Best        *match.Suggestion  `json:"best"`
	Suggestions []match.Suggestion `json:"suggestions"`
}

// PolysemyRequest is the body of POST /v1/polysemy.
type PolysemyRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
	Target  string `json:"target"`
}

// PolysemyResponse reports the detected sense of a word. Known is false for
// words outside the polysemy table; Sense is empty when the context matched
// no sense.
type PolysemyResponse struct {
	Word        string           `json:"word"`
	Known       bool             `json:"known"`
	Sense       polysemy.SenseID `json:"sense,omitempty"`
	Translation string           `json:"translation,omitempty"`
}

// ConsistencyRequest is the body of POST /v1/consistency.
type ConsistencyRequest struct {
	Original string `json:"original"`
	From     string `json:"from"`
	To       string `json:"to"`
	Proposed string `json:"proposed"`
}

// CorpusResponse describes the loaded corpus.
type CorpusResponse struct {
	Version  string                `json:"version"`
	Entries  int                   `json:"entries"`
	Coverage map[lang.Language]int `json:"coverage"`
	Polysemy int                   `json:"polysemy_words"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var body TranslateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.translate(r, body)
	if err != nil {
		s.writeTranslateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) translate(r *http.Request, body TranslateRequest) (*translate.Result, error) {
	req, err := body.toRequest()
	if err != nil {
		return nil, err
	}
	return s.tr.Translate(r.Context(), req)
}

func (s *Server) writeTranslateError(w http.ResponseWriter, r *http.Request, err error) {
	if status := errorStatus(err); status != http.StatusInternalServerError {
		writeError(w, status, err.Error())
		return
	}
	s.log.ErrorContext(r.Context(), "translate", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// errorStatus maps errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, translate.ErrInvalidLanguage),
		errors.Is(err, translate.ErrSameLanguage),
		errors.Is(err, translate.ErrEmptyText):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := lang.Parse(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := lang.Parse(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}

	settings := s.tr.Settings()
	opts := []match.Option{match.WithMinScore(settings.MinScore), match.WithLimit(settings.Limit)}
	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			writeError(w, http.StatusBadRequest, "min_score must be a number in [0, 1]")
			return
		}
		opts = append(opts, match.WithMinScore(f))
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		opts = append(opts, match.WithLimit(n))
	}

	res := s.tr.Matcher().Match(q.Get("text"), from, to, opts...)
	out := SuggestResponse{Best: res.Best, Suggestions: res.Suggestions}
	if out.Suggestions == nil {
		out.Suggestions = []match.Suggestion{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePolysemy(w http.ResponseWriter, r *http.Request) {
	var body PolysemyRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Word) == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	target, err := lang.Parse(body.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "target: "+err.Error())
		return
	}

	resolver := s.tr.Resolver()
	out := PolysemyResponse{Word: body.Word, Known: resolver.Known(body.Word)}
	if sense, ok := resolver.DetectContext(body.Word, body.Context); ok {
		out.Sense = sense
		out.Translation, _ = resolver.Resolve(body.Word, sense, target)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	var body ConsistencyRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := lang.Parse(body.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := lang.Parse(body.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Original) == "" || strings.TrimSpace(body.Proposed) == "" {
		writeError(w, http.StatusBadRequest, "original and proposed are required")
		return
	}

	writeJSON(w, http.StatusOK, s.tr.Checker().Check(body.Original, from, to, body.Proposed))
}

func (s *Server) handleCorpus(w http.ResponseWriter, _ *http.Request) {
	ix := s.tr.Index()
	writeJSON(w, http.StatusOK, CorpusResponse{
		Version:  ix.Version(),
		Entries:  ix.Len(),
		Coverage: ix.Coverage(),
		Polysemy: s.tr.Resolver().Words(),
	})
}

// decodeJSON decodes a single JSON object from the request body, rejecting
// unknown fields and bodies over maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
