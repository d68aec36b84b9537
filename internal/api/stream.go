package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/cmiique/internal/translate"
)

// StreamReply is one websocket reply. Exactly one of Result and Error is set.
type StreamReply struct {
	Result *translate.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// handleStream upgrades to a websocket and answers each text frame, decoded
// as a [TranslateRequest], with one [StreamReply]. Frames are handled in
// order. Malformed frames get an error reply and do not close the stream.
// Cross-origin browser connections are refused unless their host matches
// one of the configured origin patterns.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket accept", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow() //nolint:errcheck
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.DebugContext(ctx, "websocket read", slog.String("error", err.Error()))
			}
			return
		}

		var body TranslateRequest
		switch {
		case typ != websocket.MessageText:
			err = errors.New("expected a text frame")
		default:
			if jerr := json.Unmarshal(data, &body); jerr != nil {
				err = fmt.Errorf("invalid JSON frame: %w", jerr)
			}
		}
		if err != nil {
			if werr := wsjson.Write(ctx, conn, StreamReply{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		reply := StreamReply{}
		res, err := s.translate(r, body)
		if err != nil {
			if errorStatus(err) == http.StatusInternalServerError {
				s.log.ErrorContext(ctx, "stream translate", slog.String("error", err.Error()))
				reply.Error = "internal server error"
			} else {
				reply.Error = err.Error()
			}
		} else {
			reply.Result = res
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			s.log.DebugContext(ctx, "websocket write", slog.String("error", err.Error()))
			return
		}
	}
}
