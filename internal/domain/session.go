package domain

import (
	"errors"
	"time"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")
)

// Tokens is the credential pair issued by the backend on sign-in and
// rotated on every refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User is the authenticated admin/seller account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the process-wide authentication state. It is mutated on
// sign-in, token refresh, and sign-out, and read by the transport before
// every outgoing request.
type Session struct {
	User     *User  `json:"user"`
	Tokens   Tokens `json:"tokens"`
	IsLogged bool   `json:"isLogged"`
}

// Language returns the signed-in user's preferred language, or empty when
// no preference is recorded.
func (s *Session) Language() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Language
}
