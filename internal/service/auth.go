package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/auth"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
)

const MaxNameLength = 100

// MsgInvalidCredentials is the single answer to every failed sign in, so a
// caller cannot tell an unknown email from a wrong password.
const MsgInvalidCredentials = "Invalid email or password"

// AuthService manages accounts and issues tokens.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                 ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and a freshly issued token.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// NewUser is the input to CreateUser. The max rules mirror MaxNameLength.
type NewUser struct {
	FirstName string `json:"firstName" validate:"notblank,max=100"`
	LastName  string `json:"lastName" validate:"notblank,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IsAdmin   bool   `json:"isAdmin"`
}

// CreateUser validates in, hashes the password and stores the account.
// Emails are compared case-insensitively by storing them lowercased.
func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	// bcrypt's bound is in bytes, which a rune-counting max cannot express.
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("userID", user.ID),
		slog.Bool("admin", user.IsAdmin),
	)
	return user, nil
}

// SignIn checks email and password and returns a signed token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("sign in rejected", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	token, err := s.tokens.Generate(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the account behind an authenticated identity.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account unless an account with
// that email already exists. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.CreateUser(ctx, NewUser{
		FirstName: "Site",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
		IsAdmin:   true,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrConflict):
		s.logger.Debug("admin account already present")
		return false, nil
	default:
		return false, fmt.Errorf("service/auth: bootstrapping admin: %w", err)
	}
}
