package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/sakif/articles-api/internal/model"
)

// contextKey is unexported so no other package can read or overwrite the
// identity stored by this middleware.
type contextKey string

const identityKey contextKey = "identity"

// TokenHeader and TokenCookie are the fallbacks checked after the
// Authorization header.
const (
	TokenHeader = "token"
	TokenCookie = "token"
)

var errNoToken = errors.New("auth: no token provided")

// RequireAuth rejects requests without a valid token with 401 and otherwise
// stores the caller's Identity in the request context.
//
// The token is looked up in this order:
//  1. Authorization: Bearer <jwt>
//  2. token: <jwt> header
//  3. token cookie
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identify(r, tokens)
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run after RequireAuth. Non-admin callers get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			unauthorized(w, r, errNoToken)
			return
		}
		if !id.IsAdmin {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]any{
				"status": http.StatusForbidden,
				"error":  "Not Authorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated caller, or false for requests
// that did not pass through RequireAuth.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.ID != ""
}

func identify(r *http.Request, tokens *TokenService) (model.Identity, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return model.Identity{}, errNoToken
	}
	return tokens.Validate(raw)
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
	}
	if h := r.Header.Get(TokenHeader); h != "" {
		return strings.TrimSpace(h)
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	msg := "Invalid token"
	switch {
	case errors.Is(err, errNoToken):
		msg = "Token is not provided"
	case errors.Is(err, ErrTokenExpired):
		msg = "Token has expired"
	}
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]any{
		"status": http.StatusUnauthorized,
		"error":  msg,
	})
}
