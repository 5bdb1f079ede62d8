package service

import (
	"context"
	"sync"

	"github.com/metyhq/mety-api/internal/model"
	"github.com/metyhq/mety-api/internal/repository"
)

// memUserStore is an in-memory UserStore for unit tests.
type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, users: make(map[int64]*model.User)}
}

func (s *memUserStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = s.nextID
	s.nextID++
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
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

func (s *memUserStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memUserStore) deleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// memKeyStore is an in-memory KeyStore for unit tests.
type memKeyStore struct {
	mu     sync.Mutex
	nextID int64
	keys   map[int64]*model.APIKey
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{nextID: 1, keys: make(map[int64]*model.APIKey)}
}

func (s *memKeyStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keys {
		if existing.KeyHash == key.KeyHash {
			return repository.ErrKeyHashExists
		}
	}
	key.ID = s.nextID
	s.nextID++
	copied := *key
	s.keys[key.ID] = &copied
	return nil
}

func (s *memKeyStore) GetAPIKeyByID(_ context.Context, id int64) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	copied := *key
	return &copied, nil
}

func (s *memKeyStore) GetAPIKeysByLookup(_ context.Context, lookup string) ([]*model.APIKey, error) {
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

func (s *memKeyStore) ListAPIKeysByUserID(_ context.Context, userID int64) ([]*model.APIKey, error) {
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

func (s *memKeyStore) UpdateAPIKey(_ context.Context, id int64, label *string, scopes []string) (*model.APIKey, error) {
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
	copied := *key
	return &copied, nil
}

func (s *memKeyStore) DeleteAPIKey(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return "", repository.ErrAPIKeyNotFound
	}
	delete(s.keys, id)
	return key.KeyHash, nil
}

// memInvalidator records evicted cache hashes.
type memInvalidator struct {
	mu      sync.Mutex
	evicted []string
}

func (m *memInvalidator) DeleteAuthContext(_ context.Context, keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evicted = append(m.evicted, keyHash)
	return nil
}

func (m *memInvalidator) evictedHashes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.evicted...)
}
