// Package users manages backend accounts: registration with hashed
// passwords, credential checks and throwaway anonymous identities.
package users

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/havenmind/haven/internal/store"
)

const minPasswordLength = 6

var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrEmailTaken indicates a registration against an existing email.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidRegistration indicates missing or malformed registration
	// fields.
	ErrInvalidRegistration = errors.New("users: name, email and password are required")
)

// ServiceConfig describes the dependencies of the account service.
type ServiceConfig struct {
	Store *store.Service
	// IDProvider mints client identifiers; defaults to random UUIDs.
	IDProvider func() string
}

// Service issues and authenticates account identities.
type Service struct {
	store *store.Service
	newID func() string
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("users: store is required")
	}
	newID := cfg.IDProvider
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{store: cfg.Store, newID: newID}, nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(name string, email string, password string) (store.Identity, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || len(password) < minPasswordLength {
		return store.Identity{}, ErrInvalidRegistration
	}
	if _, err := s.store.IdentityByEmail(email); err == nil {
		return store.Identity{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.Identity{}, err
	}
	identity := store.Identity{
		ClientID:     s.newID(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.store.SaveIdentity(identity); err != nil {
		return store.Identity{}, err
	}
	return identity, nil
}

// Authenticate checks the credentials and returns the stored identity.
func (s *Service) Authenticate(email string, password string) (store.Identity, error) {
	identity, err := s.store.IdentityByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Identity{}, ErrInvalidCredentials
		}
		return store.Identity{}, err
	}
	if identity.PasswordHash == "" {
		return store.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return store.Identity{}, ErrInvalidCredentials
	}
	return identity, nil
}

// CreateAnonymous mints a passwordless throwaway identity.
func (s *Service) CreateAnonymous() (store.Identity, error) {
	identity := store.Identity{
		ClientID: "anon:" + s.newID(),
		Name:     "Guest",
	}
	if err := s.store.SaveIdentity(identity); err != nil {
		return store.Identity{}, err
	}
	return identity, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
