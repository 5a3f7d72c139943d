package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

func (s *Server) respondWithError(w http.ResponseWriter, status int, errMsg string) {
	s.log.Warn("request failed", zap.Int("status", status), zap.String("error", errMsg))
	s.respond(w, status, map[string]any{
		"success": false,
		"error":   errMsg,
	})
}

// respondWithPayload wraps payload under "rows" with a success flag.
func (s *Server) respondWithPayload(w http.ResponseWriter, status int, payload any) {
	s.respond(w, status, map[string]any{
		"success": true,
		"rows":    payload,
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("encoding response", zap.Error(err))
	}
}
