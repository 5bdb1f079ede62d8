package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/metyhq/mety-api/internal/auth"
	"github.com/metyhq/mety-api/internal/model"
	"github.com/metyhq/mety-api/internal/service"
)

// AuthHandler handles registration, login, and identity endpoints.
type AuthHandler struct {
	logger *slog.Logger
	svc    *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(logger *slog.Logger, svc *service.AuthService) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		svc:    svc,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, service.ErrUserExists):
			writeError(w, http.StatusConflict, "User already exists")
		default:
			h.logger.Error("failed to register user", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	h.logger.Info("user registered", slog.Int64("user_id", user.ID))

	writeJSON(w, http.StatusCreated, model.SessionResponse{
		User:  user.ToResponse(),
		Token: token,
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			// Unknown email and wrong password answer identically.
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			h.logger.Error("failed to login user", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to login user")
		}
		return
	}

	writeJSON(w, http.StatusOK, model.SessionResponse{
		User:  user.ToResponse(),
		Token: token,
	})
}

// Me handles GET /api/auth/me
// Requires the session middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.SessionUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to fetch user", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.UserResponse{"user": user.ToResponse()})
}
