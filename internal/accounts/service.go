// Package accounts implements user registration, login, and profile and
// admin user management.
package accounts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/domain"
)

// Repository is the persistence port for users.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	ByID(ctx context.Context, id string) (*domain.User, error)
	ByUsername(ctx context.Context, username string) (*domain.User, error)
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	All(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	tokens *auth.Manager
}

func NewService(repo Repository, tokens *auth.Manager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// Register creates a new non-admin account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if _, err := s.repo.ByUsername(ctx, in.Username); err == nil {
		return nil, domain.E(domain.KindConflict, "a user with this username already exists")
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}
	if _, err := s.repo.ByEmail(ctx, in.Email); err == nil {
		return nil, domain.E(domain.KindConflict, "a user with this e-mail already exists")
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, *auth.TokenPair, error) {
	user, err := s.repo.ByUsername(ctx, username)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, nil, domain.E(domain.KindUnauthorized, "invalid username or password")
		}
		return nil, nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, nil, domain.E(domain.KindUnauthorized, "invalid username or password")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.ByID(ctx, claims.UserID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.E(domain.KindUnauthorized, "account no longer exists")
		}
		return nil, err
	}
	return s.tokens.IssuePair(user)
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.ByID(ctx, userID)
}

// UpdateInput carries optional field updates; nil fields stay unchanged.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
	Password  *string
	IsAdmin   *bool // honored only through UpdateUser (admin path)
}

// UpdateProfile applies the caller's own changes and re-issues tokens, since
// the username embedded in the old tokens may have changed.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*domain.User, *auth.TokenPair, error) {
	in.IsAdmin = nil // callers cannot promote themselves
	user, err := s.applyUpdate(ctx, userID, in)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Users lists all accounts (admin surface).
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	return s.repo.All(ctx)
}

// UserByID fetches any account (admin surface).
func (s *Service) UserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.ByID(ctx, id)
}

// UpdateUser applies admin changes to any account, including the admin flag,
// and returns fresh tokens for the updated account.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateInput) (*domain.User, *auth.TokenPair, error) {
	user, err := s.applyUpdate(ctx, id, in)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// DeleteUser removes an account (admin surface).
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) applyUpdate(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	user, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Username != nil && *in.Username != user.Username {
		if _, err := s.repo.ByUsername(ctx, *in.Username); err == nil {
			return nil, domain.E(domain.KindConflict, "a user with this username already exists")
		} else if !domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		user.Username = *in.Username
	}
	if in.Email != nil && *in.Email != user.Email {
		if _, err := s.repo.ByEmail(ctx, *in.Email); err == nil {
			return nil, domain.E(domain.KindConflict, "a user with this e-mail already exists")
		} else if !domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
