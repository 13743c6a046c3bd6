package session

import "strings"

// Profile is the signed-in shopper as reported by the API at login.
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	UserType   string `json:"user_type"`
	PharmacyID string `json:"pharmacy_id,omitempty"`
}

// Session is the credential every cart and checkout operation is gated on.
type Session struct {
	Token        string  `json:"token"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	Profile      Profile `json:"profile"`
	UserType     string  `json:"user_type,omitempty"`
}

// Valid reports whether s carries a usable access token. A nil session is not valid.
func (s *Session) Valid() bool {
	return s != nil && strings.TrimSpace(s.Token) != ""
}

// Clone returns an independent copy, or nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func sameToken(a, b *Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Token == b.Token
}
