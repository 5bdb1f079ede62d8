package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/metyhq/mety-api/internal/auth"
	"github.com/metyhq/mety-api/internal/middleware"
	"github.com/metyhq/mety-api/internal/model"
	"github.com/metyhq/mety-api/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	logger *slog.Logger
	svc    *service.APIKeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(logger *slog.Logger, svc *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{
		logger: logger,
		svc:    svc,
	}
}

// Create handles POST /api/keys
// Requires the session middleware.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.SessionUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.APIKeyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key, plaintext, err := h.svc.Create(r.Context(), userID, req.Label, req.Scopes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingKeyFields):
			writeError(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, service.ErrInvalidScope):
			writeError(w, http.StatusBadRequest, "Invalid scope. Valid scopes: read, write, translate")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			h.logger.Error("failed to create API key", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to create API key")
		}
		return
	}

	h.logger.Info("API key created",
		slog.Int64("key_id", key.ID),
		slog.Int64("user_id", key.UserID),
	)

	// The plaintext appears in this response and nowhere else.
	writeJSON(w, http.StatusCreated, map[string]model.APIKeyCreateResponse{
		"api_key": {
			ID:        key.ID,
			Key:       plaintext,
			Label:     key.Label,
			Scopes:    key.Scopes,
			CreatedAt: key.CreatedAt,
		},
	})
}

// List handles GET /api/keys
// Requires the session middleware.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.SessionUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	keys, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list API keys", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to fetch API keys")
		return
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, map[string]any{"allKeys": responses})
}

// Get handles GET /api/keys/{id}
// Authenticated by the raw key in the x-api-key header, not a session token.
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseKeyID(w, r)
	if !ok {
		return
	}

	providedKey := r.Header.Get(middleware.APIKeyHeader)
	if providedKey == "" {
		writeError(w, http.StatusBadRequest, "Missing API key header")
		return
	}

	key, err := h.svc.GetWithKey(r.Context(), id, providedKey)
	if err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		h.logger.Error("failed to fetch API key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to fetch API key")
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.APIKeyResponse{"apiKey": key.ToResponse()})
}

// Update handles PATCH /api/keys/{id}
// Requires the session middleware; the caller must own the key.
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.SessionUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, ok := parseKeyID(w, r)
	if !ok {
		return
	}

	var req model.APIKeyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key, err := h.svc.Update(r.Context(), userID, id, req.Label, req.Scopes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNothingToUpdate):
			writeError(w, http.StatusBadRequest, "Nothing to update")
		case errors.Is(err, service.ErrMissingKeyFields), errors.Is(err, service.ErrInvalidScope):
			writeError(w, http.StatusBadRequest, "Invalid scope. Valid scopes: read, write, translate")
		case errors.Is(err, service.ErrKeyNotFound):
			writeError(w, http.StatusNotFound, "API key not found")
		default:
			h.logger.Error("failed to update API key", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to update API key")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.APIKeyResponse{"apiKey": key.ToResponse()})
}

// Delete handles DELETE /api/keys/{id}
// Requires the session middleware; the caller must own the key.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.SessionUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, ok := parseKeyID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Revoke(r.Context(), userID, id); err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		h.logger.Error("failed to delete API key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}

	h.logger.Info("API key revoked",
		slog.Int64("key_id", id),
		slog.Int64("user_id", userID),
	)

	writeJSON(w, http.StatusOK, map[string]string{"message": "API key deleted successfully"})
}

// Rotate handles POST /api/keys/{id}/rotate
// Requires the session middleware; the caller must own the key.
func (h *APIKeyHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.SessionUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, ok := parseKeyID(w, r)
	if !ok {
		return
	}

	newKey, plaintext, err := h.svc.Rotate(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		h.logger.Error("failed to rotate API key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to rotate API key")
		return
	}

	h.logger.Info("API key rotated",
		slog.Int64("old_key_id", id),
		slog.Int64("new_key_id", newKey.ID),
		slog.Int64("user_id", userID),
	)

	writeJSON(w, http.StatusCreated, model.APIKeyRotateResponse{
		OldKeyID: id,
		NewKey: model.APIKeyCreateResponse{
			ID:        newKey.ID,
			Key:       plaintext,
			Label:     newKey.Label,
			Scopes:    newKey.Scopes,
			CreatedAt: newKey.CreatedAt,
		},
	})
}

// parseKeyID extracts the numeric key id from the path, writing a 400
// response on failure.
func parseKeyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}
