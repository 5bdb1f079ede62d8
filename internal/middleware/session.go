package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/metyhq/mety-api/internal/auth"
)

// SessionAuth returns a middleware that authenticates requests bearing a
// session token in the Authorization header ("Bearer <token>"). On success
// it injects the subject user id into the request context.
//
// Session tokens and API keys are distinct credentials: this middleware
// protects account and key-management routes, while APIKeyAuth protects the
// data-plane routes.
func SessionAuth(logger *slog.Logger, signer *auth.TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeSessionError(w)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			userID, err := signer.Verify(token)
			if err != nil {
				logger.Warn("session authentication failed",
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeSessionError(w)
				return
			}

			ctx := auth.ContextWithSessionUser(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeSessionError writes a 401 Unauthorized response.
// Missing, malformed, and expired tokens all answer the same message.
func writeSessionError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
