// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/metyhq/mety-api/internal/auth"
	"github.com/metyhq/mety-api/internal/metrics"
	"github.com/metyhq/mety-api/internal/model"
	"github.com/metyhq/mety-api/internal/repository"
)

// Auth service errors.
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore is the persistence surface AuthService depends on.
// *repository.Repository satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthService registers and authenticates users and issues session tokens.
type AuthService struct {
	users   UserStore
	signer  *auth.TokenSigner
	metrics metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, signer *auth.TokenSigner, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:   users,
		signer:  signer,
		metrics: recorder,
	}
}

// Register creates a new user and returns it with a signed session token.
// The password is stored only as an argon2id hash.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.signer.Sign(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.metrics.IncRegistration()
	return user, token, nil
}

// Login verifies credentials and returns the user with a session token.
// Unknown email and wrong password both answer ErrInvalidCredentials so the
// response does not reveal which check failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin("failure")
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match {
		s.metrics.IncLogin("failure")
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.signer.Sign(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.metrics.IncLogin("success")
	return user, token, nil
}

// Me returns the identity record for a session subject.
// The token itself is verified upstream by the session middleware; this
// handles the case where the subject row no longer exists.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
