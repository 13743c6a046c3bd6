package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Inspect reads the claims of a bearer token issued by the Dwayee API.
// The signature is not verified: the API owns the signing key and rejects forged tokens itself.
func Inspect(token string) (TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenInfo{}, fmt.Errorf("token is required")
	}
	if strings.Count(token, ".") != 2 {
		return TokenInfo{Opaque: true}, nil
	}

	claims := &TokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return TokenInfo{Opaque: true}, nil
	}

	info := TokenInfo{
		Subject: claims.Subject,
		UserID:  claims.UserID,
		Email:   claims.Email,
	}
	if info.UserID == "" {
		info.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return info, nil
}

// Expired reports whether the token carries an exp claim at or before now.
func Expired(token string, now time.Time) bool {
	info, err := Inspect(token)
	if err != nil {
		return true
	}
	if info.Opaque || info.ExpiresAt == 0 {
		return false
	}
	return !now.Before(time.Unix(info.ExpiresAt, 0))
}
