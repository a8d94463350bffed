// Package auth issues and verifies the bearer tokens that identify callers of
// the articles API, and hashes account passwords.
//
// AUTHENTICATION FLOW:
//  1. An admin creates an account with POST /auth/create-user
//  2. The user signs in with POST /auth/signin and receives a signed token
//  3. Every protected request carries the token (Authorization: Bearer, the
//     "token" header, or the "token" cookie)
//  4. RequireAuth validates it and puts the caller's Identity in the context
//
// The token carries everything the API needs about the caller (id, display
// name, admin flag), so request handling never looks the user up again.
//
// TOKEN STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user id>","firstName":"..","lastName":"..","isAdmin":false,
//	            "jti":"<uuid>","iss":"articles-api","iat":..,"exp":..}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/articles-api/internal/model"
)

const (
	issuer = "articles-api"

	// DefaultTokenTTL applies when NewTokenService gets a non-positive ttl.
	DefaultTokenTTL = 24 * time.Hour
)

// ErrTokenExpired is returned by Validate for well-formed tokens whose exp
// claim has passed.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies HS256 tokens with a single shared secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the token payload. "sub" holds the user id; the custom fields
// rebuild a model.Identity without a store lookup.
type claims struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Generate signs a token for id using the service's configured lifetime.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration signs a token that expires after d. Used by the
// `token` CLI command and by tests that need already-expired tokens.
func (s *TokenService) GenerateWithDuration(id model.Identity, d time.Duration) (string, error) {
	if id.ID == "" {
		return "", errors.New("auth: identity has no id")
	}
	now := time.Now()

	c := claims{
		FirstName: id.FirstName,
		LastName:  id.LastName,
		IsAdmin:   id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns the identity it carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature matches the secret
//   - Algorithm is HS256 (a "none" or RS256 header is rejected)
//   - Issuer is "articles-api"
//   - exp is present and in the future
func (s *TokenService) Validate(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, ErrTokenExpired
		}
		return model.Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return model.Identity{}, errors.New("auth: token has no subject")
	}

	return model.Identity{
		ID:        c.Subject,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		IsAdmin:   c.IsAdmin,
	}, nil
}
