// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// Scope constants for API key authorization.
const (
	ScopeRead      = "read"
	ScopeWrite     = "write"
	ScopeTranslate = "translate"
)

// ValidScopes contains all valid scope values.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeTranslate}

// APIKey represents an API key credential.
// KeyHash is the SHA-256 digest of the full plaintext key; the plaintext
// itself exists only in the create/rotate response.
type APIKey struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"users_id"`
	KeyHash   string    `json:"-"` // Never serialize
	KeyLookup string    `json:"-"` // Non-secret lookup component, indexed
	Label     string    `json:"label"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasScope checks if the key grants a specific scope.
func (k *APIKey) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// AuthContext holds the identity resolved by the API key guard.
// It is injected into the request context for downstream handlers.
type AuthContext struct {
	KeyID  int64
	UserID int64
	Label  string
	Scopes []string
}

// HasScope checks if the resolved key grants a specific scope.
func (a *AuthContext) HasScope(scope string) bool {
	return slices.Contains(a.Scopes, scope)
}

// APIKeyResponse is the metadata view of a key (no hash, no plaintext).
type APIKeyResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"users_id"`
	Label     string    `json:"label"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts an APIKey to its metadata representation.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		UserID:    k.UserID,
		Label:     k.Label,
		Scopes:    k.Scopes,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
}

// APIKeyCreateRequest is the body of POST /api/keys.
type APIKeyCreateRequest struct {
	Label  string   `json:"label"`
	Scopes []string `json:"scopes"`
}

// APIKeyUpdateRequest is the body of PATCH /api/keys/{id}.
// Nil fields are left untouched.
type APIKeyUpdateRequest struct {
	Label  *string  `json:"label,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// APIKeyCreateResponse includes the plaintext key (shown only once).
type APIKeyCreateResponse struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"` // Plaintext - display once only!
	Label     string    `json:"label"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKeyRotateResponse reports the replaced key and its successor.
type APIKeyRotateResponse struct {
	OldKeyID int64                `json:"old_key_id"`
	NewKey   APIKeyCreateResponse `json:"new_key"`
}
