// FilePath: internal/hubservice/hubservice.owner.go
package hubservice

import (
	"context"
	"time"

	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/models"
	"github.com/ecohack/envhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
	"golang.org/x/crypto/bcrypt"
)

// RegisterOwner creates a new owner account and returns its bearer token.
func (s *HubService) RegisterOwner(ctx context.Context, login, password, name, lastName string) (*models.Owner, error) {
	if login == "" || password == "" {
		return nil, errors.NewValidationError("login and password are required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	owner := &models.Owner{
		ID:           nuts.NID("own", 12),
		Login:        login,
		PasswordHash: string(hash),
		Name:         name,
		LastName:     lastName,
		Token:        nuts.NID("tok", 50),
		HasDevice:    false,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Owners.Create(ctx, owner); err != nil {
		if err == repository.ErrDuplicate {
			return nil, errors.NewValidationError("there is a user with such nickname", err)
		}
		return nil, errors.NewInternalError("failed to create owner", err)
	}

	nuts.L.Infof("[OwnerService] Registered owner %s (%s)", owner.Login, owner.ID)
	return owner, nil
}

// LoginOwner verifies credentials and returns the owner's bearer token.
func (s *HubService) LoginOwner(ctx context.Context, login, password string) (*models.Owner, error) {
	owner, err := s.Owners.GetByLogin(ctx, login)
	if err != nil {
		// Same response for unknown login and wrong password.
		return nil, errors.NewValidationError("invalid credentials", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)); err != nil {
		return nil, errors.NewValidationError("invalid credentials", err)
	}
	return owner, nil
}

// ResolveToken maps a bearer token to its owner.
func (s *HubService) ResolveToken(ctx context.Context, token string) (*models.Owner, error) {
	owner, err := s.Owners.GetByToken(ctx, token)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NewAuthError("invalid token", err)
		}
		return nil, errors.NewInternalError("failed to resolve token", err)
	}
	return owner, nil
}
