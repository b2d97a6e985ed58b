package api

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// requestLogger logs incoming HTTP requests.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// requireWriteAuth checks the Bearer token against the configured write
// token hashes. When no write tokens are configured the instance is
// open and appends are allowed without authentication.
func (s *server) requireWriteAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens := s.cfg.Server.Auth.WriteTokens
		if len(tokens) == 0 {
			next.ServeHTTP(w, r)

			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"write token required"})

			return
		}

		presented := []byte(authHeader[7:])

		for _, token := range tokens {
			if bcrypt.CompareHashAndPassword(
				[]byte(token.Hash), presented,
			) == nil {
				next.ServeHTTP(w, r)

				return
			}
		}

		writeJSON(w, http.StatusForbidden,
			errorResponse{"invalid write token"})
	})
}
