package model

import (
	"strings"
	"time"
)

// User is an account that can sign in and receive a token.
//
// WHY PasswordHash HAS json:"-":
// The struct is returned from /auth/create-user and /auth/signin. The "-" tag
// keeps the bcrypt hash out of every response, even if a handler forgets to
// build a separate view.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedOn    time.Time `json:"createdOn"`
}

// Identity returns the caller identity a token for u should carry.
func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsAdmin:   u.IsAdmin,
	}
}

// Identity is the authenticated caller, decoded from a token. It is never
// persisted by this service.
type Identity struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
}

// DisplayName is the author name recorded on new articles.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}
