package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/metyhq/mety-api/internal/auth"
	"github.com/metyhq/mety-api/internal/cohere"
	"github.com/metyhq/mety-api/internal/middleware"
	"github.com/metyhq/mety-api/internal/model"
	"github.com/metyhq/mety-api/internal/repository"
	"github.com/metyhq/mety-api/internal/service"
)

// memStore is an in-memory stand-in for *repository.Repository covering the
// user and API key surfaces the services and the guard depend on.
type memStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextKeyID  int64
	users      map[int64]*model.User
	keys       map[int64]*model.APIKey
}

func newMemStore() *memStore {
	return &memStore{
		nextUserID: 1,
		nextKeyID:  1,
		users:      make(map[int64]*model.User),
		keys:       make(map[int64]*model.APIKey),
	}
}

func (s *memStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = s.nextUserID
	s.nextUserID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keys {
		if existing.KeyHash == key.KeyHash {
			return repository.ErrKeyHashExists
		}
	}
	key.ID = s.nextKeyID
	s.nextKeyID++
	key.CreatedAt = time.Now()
	key.UpdatedAt = key.CreatedAt
	copied := *key
	s.keys[key.ID] = &copied
	return nil
}

func (s *memStore) GetAPIKeyByID(_ context.Context, id int64) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	copied := *key
	return &copied, nil
}

func (s *memStore) GetAPIKeysByLookup(_ context.Context, lookup string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.APIKey
	for _, key := range s.keys {
		if key.KeyLookup == lookup {
			copied := *key
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *memStore) ListAPIKeysByUserID(_ context.Context, userID int64) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*model.APIKey{}
	for _, key := range s.keys {
		if key.UserID == userID {
			copied := *key
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *memStore) UpdateAPIKey(_ context.Context, id int64, label *string, scopes []string) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	if label != nil {
		key.Label = *label
	}
	if scopes != nil {
		key.Scopes = scopes
	}
	key.UpdatedAt = time.Now()
	copied := *key
	return &copied, nil
}

func (s *memStore) DeleteAPIKey(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return "", repository.ErrAPIKeyNotFound
	}
	delete(s.keys, id)
	return key.KeyHash, nil
}

// noopInvalidator satisfies service.AuthInvalidator when no cache is wired.
type noopInvalidator struct{}

func (noopInvalidator) DeleteAuthContext(context.Context, string) error { return nil }

// apiFixture wires the full router against in-memory storage and an
// httptest upstream, mirroring the production route layout minus the
// Redis-backed rate limits.
type apiFixture struct {
	router http.Handler
	store  *memStore
}

func newAPIFixture(t *testing.T, upstream http.HandlerFunc) *apiFixture {
	t.Helper()

	if upstream == nil {
		upstream = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":{"content":[{"type":"text","text":"Bonjour"}]}}`))
		}
	}
	upstreamServer := httptest.NewServer(upstream)
	t.Cleanup(upstreamServer.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	signer := auth.NewTokenSigner("test-secret", time.Hour)

	authSvc := service.NewAuthService(store, signer, nil)
	keySvc := service.NewAPIKeyService(store, store, noopInvalidator{}, nil)
	llm := cohere.New(upstreamServer.URL, "test-api-key", "command-a-03-2025", nil)

	h := New()
	authHandler := NewAuthHandler(logger, authSvc)
	apiKeyHandler := NewAPIKeyHandler(logger, keySvc)
	translationHandler := NewTranslationHandler(logger, llm)

	sessionAuth := middleware.SessionAuth(logger, signer)
	guard := middleware.APIKeyAuth(middleware.APIKeyAuthConfig{
		Logger: logger,
		Keys:   store,
	})

	r := chi.NewRouter()
	r.Get("/", h.Hello)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(sessionAuth).Get("/me", authHandler.Me)
	})

	r.Route("/api/keys", func(r chi.Router) {
		r.With(sessionAuth).Get("/", apiKeyHandler.List)
		r.With(sessionAuth).Post("/", apiKeyHandler.Create)
		r.Get("/{id}", apiKeyHandler.Get)
		r.With(sessionAuth).Patch("/{id}", apiKeyHandler.Update)
		r.With(sessionAuth).Delete("/{id}", apiKeyHandler.Delete)
		r.With(sessionAuth).Post("/{id}/rotate", apiKeyHandler.Rotate)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.With(middleware.RequireTranslate()).Get("/translation", translationHandler.TranslateToFrench)
		r.With(middleware.RequireTranslate()).Post("/translate", translationHandler.Translate)
		r.With(middleware.RequireRead()).Get("/cohere/{message}", translationHandler.Chat)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return &apiFixture{router: r, store: store}
}

// do runs a request through the router and returns the recorder.
func (f *apiFixture) do(t *testing.T, method, path, token, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, apiKey)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// register creates an account and returns its session token.
func (f *apiFixture) register(t *testing.T, email, password string) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", rec.Code, rec.Body.String())
	}

	var response model.SessionResponse
	decodeBody(t, rec, &response)
	return response.Token
}

// issueKey creates an API key and returns its id and plaintext.
func (f *apiFixture) issueKey(t *testing.T, token, label string, scopes []string) (int64, string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/keys/", token, "", map[string]any{
		"label":  label,
		"scopes": scopes,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("key creation failed with status %d: %s", rec.Code, rec.Body.String())
	}

	var response struct {
		APIKey model.APIKeyCreateResponse `json:"api_key"`
	}
	decodeBody(t, rec, &response)
	return response.APIKey.ID, response.APIKey.Key
}
