package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/metyhq/mety-api/internal/auth"
	"github.com/metyhq/mety-api/internal/metrics"
	"github.com/metyhq/mety-api/internal/model"
)

// APIKeyHeader is the request header carrying the raw API key.
const APIKeyHeader = "x-api-key"

// minAuthDuration is the minimum time to spend on auth to prevent timing attacks.
const minAuthDuration = 200 * time.Millisecond

// KeyLookupStore resolves candidate API keys by their lookup component.
// *repository.Repository satisfies it.
type KeyLookupStore interface {
	GetAPIKeysByLookup(ctx context.Context, lookup string) ([]*model.APIKey, error)
}

// AuthCache caches resolved guard identities keyed by stored key hash.
// *cache.Cache satisfies it. May be nil to disable caching.
type AuthCache interface {
	GetAuthContext(ctx context.Context, keyHash string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, keyHash string, auth *model.AuthContext) error
}

// APIKeyAuthConfig holds configuration for the API key guard.
type APIKeyAuthConfig struct {
	Logger  *slog.Logger
	Keys    KeyLookupStore
	Cache   AuthCache
	Metrics metrics.Recorder
}

// APIKeyAuth returns a middleware that authenticates requests bearing an API
// key in the x-api-key header. On success it injects the resolved identity
// into the request context; every failure mode after the missing-header check
// answers the same message so keys cannot be enumerated.
func APIKeyAuth(cfg APIKeyAuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			// Ensure consistent timing regardless of outcome
			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				logAuthFailure(cfg.Logger, r, "missing_key")
				recorder.IncKeyAuth("failure")
				writeGuardError(w, "API key is required")
				return
			}

			parsed, err := auth.ParseAPIKey(key)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "invalid_format")
				recorder.IncKeyAuth("failure")
				writeGuardError(w, "Invalid API key")
				return
			}

			// The cache is keyed by the hash of the presented key, so a hit
			// can only occur for a key that previously verified.
			keyHash := auth.HashAPIKey(key)
			if cfg.Cache != nil {
				if authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), keyHash); authCtx != nil {
					recorder.IncKeyAuth("cache_hit")
					next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
					return
				}
			}

			// Single indexed read by the non-secret lookup component; the
			// short lookup can collide, so verify each candidate.
			candidates, err := cfg.Keys.GetAPIKeysByLookup(r.Context(), parsed.Lookup)
			if err != nil {
				cfg.Logger.Error("database error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeGuardError(w, "Invalid API key")
				return
			}

			var matched *model.APIKey
			for _, candidate := range candidates {
				if auth.VerifyAPIKey(key, candidate.KeyHash) {
					matched = candidate
					break
				}
			}

			if matched == nil {
				logAuthFailure(cfg.Logger, r, "invalid_key")
				recorder.IncKeyAuth("failure")
				writeGuardError(w, "Invalid API key")
				return
			}

			authCtx := &model.AuthContext{
				KeyID:  matched.ID,
				UserID: matched.UserID,
				Label:  matched.Label,
				Scopes: matched.Scopes,
			}

			if cfg.Cache != nil {
				_ = cfg.Cache.SetAuthContext(r.Context(), keyHash, authCtx)
			}

			recorder.IncKeyAuth("success")
			cfg.Logger.Info("authentication successful",
				slog.Int64("key_id", authCtx.KeyID),
				slog.Int64("user_id", authCtx.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// logAuthFailure logs a failed guard authentication. The presented key is
// never logged.
func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeGuardError writes a 401 Unauthorized response.
func writeGuardError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
