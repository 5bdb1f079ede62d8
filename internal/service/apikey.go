package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/metyhq/mety-api/internal/auth"
	"github.com/metyhq/mety-api/internal/metrics"
	"github.com/metyhq/mety-api/internal/model"
	"github.com/metyhq/mety-api/internal/repository"
)

// API key service errors.
var (
	ErrMissingKeyFields = errors.New("label and scopes are required")
	ErrInvalidScope     = errors.New("invalid scope")
	ErrNothingToUpdate  = errors.New("nothing to update")
	ErrKeyNotFound      = errors.New("API key not found")
)

// maxKeygenRetries bounds retries when a generated key collides with a
// stored hash. A collision means a duplicate 32-byte secret, so one retry
// is already generous.
const maxKeygenRetries = 3

// KeyStore is the persistence surface APIKeyService depends on.
// *repository.Repository satisfies it.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id int64) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID int64) ([]*model.APIKey, error)
	UpdateAPIKey(ctx context.Context, id int64, label *string, scopes []string) (*model.APIKey, error)
	DeleteAPIKey(ctx context.Context, id int64) (string, error)
}

// AuthInvalidator evicts cached guard identities by stored key hash.
// *cache.Cache satisfies it.
type AuthInvalidator interface {
	DeleteAuthContext(ctx context.Context, keyHash string) error
}

// APIKeyService issues, lists, updates, rotates, and revokes API keys.
type APIKeyService struct {
	keys        KeyStore
	users       UserStore
	invalidator AuthInvalidator
	metrics     metrics.Recorder
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(keys KeyStore, users UserStore, invalidator AuthInvalidator, recorder metrics.Recorder) *APIKeyService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &APIKeyService{
		keys:        keys,
		users:       users,
		invalidator: invalidator,
		metrics:     recorder,
	}
}

// Create issues a new API key for the given user. The returned plaintext is
// shown exactly once and never persisted or logged; only its hash is stored.
func (s *APIKeyService) Create(ctx context.Context, userID int64, label string, scopes []string) (*model.APIKey, string, error) {
	if label == "" || len(scopes) == 0 {
		return nil, "", ErrMissingKeyFields
	}
	if err := validateScopes(scopes); err != nil {
		return nil, "", err
	}

	// The session subject may have been deleted after the token was issued.
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	for attempt := 0; attempt < maxKeygenRetries; attempt++ {
		generated, err := auth.GenerateAPIKey(auth.EnvLive)
		if err != nil {
			return nil, "", fmt.Errorf("generate API key: %w", err)
		}

		key := &model.APIKey{
			UserID:    userID,
			KeyHash:   generated.Hash,
			KeyLookup: generated.Lookup,
			Label:     label,
			Scopes:    scopes,
		}

		if err := s.keys.CreateAPIKey(ctx, key); err != nil {
			if errors.Is(err, repository.ErrKeyHashExists) {
				continue
			}
			return nil, "", fmt.Errorf("create API key: %w", err)
		}

		s.metrics.IncKeyIssued()
		return key, generated.Plaintext, nil
	}

	return nil, "", fmt.Errorf("create API key: exhausted %d generation attempts", maxKeygenRetries)
}

// List returns all key metadata owned by the user.
func (s *APIKeyService) List(ctx context.Context, userID int64) ([]*model.APIKey, error) {
	keys, err := s.keys.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list API keys: %w", err)
	}
	return keys, nil
}

// GetWithKey returns a key's metadata, authenticated by the raw key itself
// rather than a session token. Absent id and hash mismatch answer the same
// error so existence cannot be probed.
func (s *APIKeyService) GetWithKey(ctx context.Context, id int64, providedKey string) (*model.APIKey, error) {
	key, err := s.keys.GetAPIKeyByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get API key: %w", err)
	}

	if !auth.VerifyAPIKey(providedKey, key.KeyHash) {
		return nil, ErrKeyNotFound
	}

	return key, nil
}

// Update patches label and/or scopes of a key owned by the caller.
// Non-owned and absent ids are indistinguishable.
func (s *APIKeyService) Update(ctx context.Context, userID, id int64, label *string, scopes []string) (*model.APIKey, error) {
	if label == nil && scopes == nil {
		return nil, ErrNothingToUpdate
	}
	if scopes != nil {
		if len(scopes) == 0 {
			return nil, ErrMissingKeyFields
		}
		if err := validateScopes(scopes); err != nil {
			return nil, err
		}
	}

	existing, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.keys.UpdateAPIKey(ctx, id, label, scopes)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("update API key: %w", err)
	}

	// Cached guard identities carry label and scopes; evict so the change
	// takes effect immediately.
	_ = s.invalidator.DeleteAuthContext(ctx, existing.KeyHash)

	return updated, nil
}

// Revoke deletes a key owned by the caller irreversibly. Subsequent guard
// authentications with the key fail exactly as if it never existed.
func (s *APIKeyService) Revoke(ctx context.Context, userID, id int64) error {
	if _, err := s.getOwned(ctx, userID, id); err != nil {
		return err
	}

	keyHash, err := s.keys.DeleteAPIKey(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("delete API key: %w", err)
	}

	_ = s.invalidator.DeleteAuthContext(ctx, keyHash)
	s.metrics.IncKeyRevoked()
	return nil
}

// Rotate replaces a key owned by the caller with a fresh secret carrying the
// same label and scopes. The old key is deleted; the new plaintext is
// returned once.
func (s *APIKeyService) Rotate(ctx context.Context, userID, id int64) (*model.APIKey, string, error) {
	old, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}

	newKey, plaintext, err := s.Create(ctx, userID, old.Label, old.Scopes)
	if err != nil {
		return nil, "", err
	}

	keyHash, err := s.keys.DeleteAPIKey(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrAPIKeyNotFound) {
		// New key already exists; report the new credential anyway.
		return newKey, plaintext, nil
	}
	if keyHash != "" {
		_ = s.invalidator.DeleteAuthContext(ctx, keyHash)
	}

	s.metrics.IncKeyRotated()
	return newKey, plaintext, nil
}

// getOwned fetches a key and enforces ownership, collapsing "absent" and
// "not yours" into the same error.
func (s *APIKeyService) getOwned(ctx context.Context, userID, id int64) (*model.APIKey, error) {
	key, err := s.keys.GetAPIKeyByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get API key: %w", err)
	}
	if key.UserID != userID {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// validateScopes rejects any scope outside the known set.
func validateScopes(scopes []string) error {
	for _, scope := range scopes {
		if !slices.Contains(model.ValidScopes, scope) {
			return fmt.Errorf("%w: %s", ErrInvalidScope, scope)
		}
	}
	return nil
}
