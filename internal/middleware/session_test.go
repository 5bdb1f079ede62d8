package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metyhq/mety-api/internal/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionAuth_ValidToken(t *testing.T) {
	signer := auth.NewTokenSigner("test-secret", time.Hour)
	token, err := signer.Sign(42)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	var gotUserID int64
	var gotOK bool
	handler := SessionAuth(discardLogger(), signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = auth.SessionUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !gotOK {
		t.Fatal("expected session user in context")
	}
	if gotUserID != 42 {
		t.Errorf("expected user id 42, got %d", gotUserID)
	}
}

func TestSessionAuth_Rejections(t *testing.T) {
	signer := auth.NewTokenSigner("test-secret", time.Hour)
	otherSigner := auth.NewTokenSigner("other-secret", time.Hour)
	expiredSigner := auth.NewTokenSigner("test-secret", -time.Minute)

	foreignToken, err := otherSigner.Sign(42)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	expiredToken, err := expiredSigner.Sign(42)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	testCases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "token-without-prefix"},
		{"wrong auth scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong signing secret", "Bearer " + foreignToken},
		{"expired token", "Bearer " + expiredToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := SessionAuth(discardLogger(), signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
			if body := rec.Body.String(); body != `{"error":"Unauthorized"}` {
				t.Errorf("unexpected body: %s", body)
			}
		})
	}
}
