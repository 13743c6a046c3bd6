package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of the Dwayee bearer token the storefront reads.
type TokenClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo summarizes what could be learned from a bearer token without verifying it.
type TokenInfo struct {
	// Opaque is true when the token is not a JWT; such tokens never expire locally.
	Opaque  bool
	Subject string
	UserID  string
	Email   string
	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt int64
}
