package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/articles-api/internal/service"
)

const (
	msgUserCreated = "User successfully created"
	msgSignedIn    = "Signed in"
)

// AuthHandler manages accounts and token issuance.
//
// HANDLER RESPONSIBILITIES:
//   - HandleCreateUser → admin creates an account
//   - HandleSignIn     → exchange email and password for a token
//   - HandleMe         → return the account behind the current token
type AuthHandler struct {
	responder
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, responder: responder{logger: logger}}
}

// HandleCreateUser creates an account. Admin only.
//
// HTTP: POST /auth/create-user
// REQUEST BODY: {"firstName", "lastName", "email", "password", "isAdmin"?}
func (h *AuthHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := bind(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.auth.CreateUser(r.Context(), req.newUser())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, msgUserCreated, map[string]any{"user": user})
}

// HandleSignIn returns a signed token for valid credentials.
//
// HTTP: POST /auth/signin
// REQUEST BODY: {"email", "password"}
//
// The token goes in the body only. Clients send it back as a Bearer
// Authorization header, a "token" header or a "token" cookie of their own.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := bind(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, msgSignedIn, result)
}

// HandleMe returns the caller's stored account.
//
// HTTP: GET /auth/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerFrom(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), caller.ID)
	if err != nil {
		h.logger.Warn("token identity has no account", slog.String("user_id", caller.ID))
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, msgSuccess, map[string]any{"user": user})
}
