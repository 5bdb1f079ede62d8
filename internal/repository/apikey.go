package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/metyhq/mety-api/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrKeyHashExists  = errors.New("key hash already exists")
)

const apiKeyColumns = `id, users_id, key_hash, key_lookup, label, scopes, created_at, updated_at`

// CreateAPIKey inserts a new API key and populates its assigned id and
// timestamps. Only the hash of the key is ever written.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (users_id, key_hash, key_lookup, label, scopes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		key.UserID,
		key.KeyHash,
		key.KeyLookup,
		key.Label,
		pq.Array(key.Scopes),
	).Scan(&key.ID, &key.CreatedAt, &key.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrKeyHashExists
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyByID retrieves an API key by its ID.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id int64) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return r.scanAPIKey(r.pool.QueryRow(ctx, query, id))
}

// GetAPIKeysByLookup retrieves all API keys matching a lookup component.
// Used during authentication to find candidate keys for verification; the
// lookup is short enough that collisions are possible, so callers must
// verify the full hash against each candidate.
func (r *Repository) GetAPIKeysByLookup(ctx context.Context, lookup string) ([]*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_lookup = $1`

	rows, err := r.pool.Query(ctx, query, lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to get API keys by lookup: %w", err)
	}
	defer rows.Close()

	return r.collectAPIKeys(rows)
}

// ListAPIKeysByUserID retrieves all API keys owned by a user.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, userID int64) ([]*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE users_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	return r.collectAPIKeys(rows)
}

// UpdateAPIKey patches label and/or scopes of a key. Nil fields are left
// untouched. Returns the refreshed record.
func (r *Repository) UpdateAPIKey(ctx context.Context, id int64, label *string, scopes []string) (*model.APIKey, error) {
	query := `
		UPDATE api_keys
		SET label      = COALESCE($2, label),
		    scopes     = COALESCE($3, scopes),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + apiKeyColumns

	var scopesArg any
	if scopes != nil {
		scopesArg = pq.Array(scopes)
	}

	key, err := r.scanAPIKey(r.pool.QueryRow(ctx, query, id, label, scopesArg))
	if err != nil {
		return nil, err
	}
	return key, nil
}

// DeleteAPIKey removes an API key irreversibly.
// Returns the stored hash of the deleted key so callers can invalidate any
// cached auth state derived from it.
func (r *Repository) DeleteAPIKey(ctx context.Context, id int64) (string, error) {
	query := `DELETE FROM api_keys WHERE id = $1 RETURNING key_hash`

	var keyHash string
	err := r.pool.QueryRow(ctx, query, id).Scan(&keyHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAPIKeyNotFound
		}
		return "", fmt.Errorf("failed to delete API key: %w", err)
	}

	return keyHash, nil
}

// scanAPIKey scans a single row into an APIKey model.
func (r *Repository) scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey
	var scopes []string

	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.KeyHash,
		&key.KeyLookup,
		&key.Label,
		pq.Array(&scopes),
		&key.CreatedAt,
		&key.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to scan API key: %w", err)
	}

	key.Scopes = scopes
	return &key, nil
}

// collectAPIKeys drains rows into APIKey models.
func (r *Repository) collectAPIKeys(rows pgx.Rows) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	for rows.Next() {
		var key model.APIKey
		var scopes []string

		err := rows.Scan(
			&key.ID,
			&key.UserID,
			&key.KeyHash,
			&key.KeyLookup,
			&key.Label,
			pq.Array(&scopes),
			&key.CreatedAt,
			&key.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}

		key.Scopes = scopes
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}
