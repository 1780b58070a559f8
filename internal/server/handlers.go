package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/session"
)

type evalRequest struct {
	Session string `json:"session,omitempty"`
	Input   string `json:"input"`
}

type evalResponse struct {
	Session string `json:"session"`
	session.Result
}

type sessionResponse struct {
	Session    string            `json:"session"`
	Transcript []string          `json:"transcript"`
	Variables  []session.Binding `json:"variables"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)

	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Input) > constants.MaxInputLength {
		s.writeError(w, http.StatusRequestEntityTooLarge, "input too long")
		return
	}

	id, sess := s.sessions.GetOrCreate(req.Session)
	res, ok := sess.Submit(req.Input)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "input is blank")
		return
	}

	s.log.Debug().
		Str("session", id).
		Str("input", res.Input).
		Bool("error", res.Error).
		Msg("Evaluated")
	s.writeJSON(w, http.StatusOK, evalResponse{Session: id, Result: res})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	transcript := sess.Transcript()
	if transcript == nil {
		transcript = []string{}
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{
		Session:    id,
		Transcript: transcript,
		Variables:  sess.Variables(),
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	sess.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
