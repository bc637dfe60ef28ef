package api

import (
	"errors"
	"net/http"
	"strings"

	"guesthouse/internal/session"
)

// sessionID accepts both the bare id the admin page sends and a Bearer token.
func sessionID(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		v = strings.TrimSpace(v[7:])
	}
	return v
}

func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Auth == nil {
			writeError(w, http.StatusServiceUnavailable, "Admin access is not configured.")
			return
		}
		if _, err := s.svc.Auth.Validate(r.Context(), sessionID(r)); err != nil {
			if !errors.Is(err, session.ErrInvalidSession) {
				s.logger.Error().Err(err).Msg("session lookup failed")
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": msgBadInput})
		return
	}
	if s.svc.Auth == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "Admin login is not configured."})
		return
	}

	sess, err := s.svc.Auth.Login(r.Context(), strings.TrimSpace(f.get("username")), f.get("password"))
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		s.logger.Warn().Str("ip", clientIP(r)).Msg("admin login rejected")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	case errors.Is(err, session.ErrLoginDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "Admin login is not configured."})
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("admin login failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": msgInternal})
		return
	}

	s.logger.Info().Str("username", sess.Username).Msg("admin logged in")
	body := map[string]any{"success": true, "sessionId": sess.ID}
	if !sess.ExpiresAt.IsZero() {
		body["expiresAt"] = sess.ExpiresAt
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := sessionID(r); id != "" && s.svc.Auth != nil {
		if err := s.svc.Auth.Logout(r.Context(), id); err != nil {
			s.logger.Error().Err(err).Msg("logout failed")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
