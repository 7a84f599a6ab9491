package transporthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/styles"
)

// LastSeenHeader carries the poll cursor.
const LastSeenHeader = "X-Last-Seen-Timestamp"

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, chat.StatusResponse{Status: "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("readiness check failed")
		status, reason := statusFor(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, chat.StatusResponse{Status: "ready"})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	reply, err := s.svc.Execute(r.Context(), req)
	if err != nil {
		status, reason := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error().Err(err).Str("command", req.Command).Msg("command failed")
		}
		writeError(w, status, reason)
		return
	}

	switch reply.Command {
	case chat.CommandLogin:
		writeText(w, styles.Welcome(reply.Username))
	case chat.CommandQueryActive:
		writeText(w, styles.ActiveUsers(reply.Active))
	default:
		writeJSON(w, http.StatusOK, chat.StatusResponse{Status: reply.Status})
	}
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	cursor, err := parseCursor(r.Header.Get(LastSeenHeader))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+LastSeenHeader+" header")
		return
	}

	events, err := s.svc.Poll(r.Context(), cursor)
	if err != nil {
		status, reason := statusFor(err)
		s.log.Error().Err(err).Msg("poll failed")
		writeError(w, status, reason)
		return
	}
	if events == nil {
		events = []chat.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	if s.ai == nil {
		writeError(w, http.StatusNotImplemented, "AI upstream not configured")
		return
	}
	s.ai.ServeHTTP(w, r)
}

// parseCursor reads a float epoch-seconds cursor. An empty value is 0.
func parseCursor(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cursor %q is not finite", v)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
