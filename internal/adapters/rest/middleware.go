package rest

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"memebid-service/internal/adapters/auth"
	"memebid-service/internal/domain/shared"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AdminKeyHeader carries the operator key for admin routes
const AdminKeyHeader = "X-Admin-Key"

// Authenticator resolves the user behind a bearer token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*shared.User, error)
}

// requireUser rejects requests without a valid token and stores the user in the context
func requireUser(authenticator Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r.Context(), auth.TokenFromRequest(r))
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Unauthenticated request")
				writeJSON(w, http.StatusUnauthorized, nil, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// requireAdminKey guards operator routes; an empty configured key disables them
func requireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(AdminKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				writeJSON(w, http.StatusForbidden, nil, "admin key required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
