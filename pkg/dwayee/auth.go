package dwayee

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/dwayee/storefront/pkg/errors"
)

const defaultLoginFailure = "invalid email or password"

// User is the profile returned alongside a login.
type User struct {
	ID         string
	Name       string
	Email      string
	UserType   string
	PharmacyID string
}

// LoginResult holds the credentials issued by POST /auth/login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         User
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "login"
	req, err := jsonRequest(op, "/auth/login", "", loginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return nil, err
	}
	raw, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if raw.status >= http.StatusBadRequest && raw.status < http.StatusInternalServerError {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthenticated,
			&pkgerrors.UpstreamError{Status: raw.status, Message: upstreamMessage(raw.body)},
			loginFailureMessage(upstreamMessage(raw.body)))
	}
	if err := ensureOK(op, raw); err != nil {
		return nil, err
	}

	var env loginEnvelope
	if err := decode(op, raw, &env); err != nil {
		return nil, err
	}
	if !env.Succeeded() || env.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, loginFailureMessage(env.Message))
	}

	return &LoginResult{
		AccessToken:  env.Data.AccessToken,
		RefreshToken: env.Data.RefreshToken,
		User: User{
			ID:         env.Data.User.ID.String(),
			Name:       env.Data.User.Name,
			Email:      env.Data.User.Email,
			UserType:   env.Data.User.UserType,
			PharmacyID: env.Data.User.PharmacyID.String(),
		},
	}, nil
}

func loginFailureMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" || strings.HasPrefix(msg, "{") || strings.HasPrefix(msg, "<") {
		return defaultLoginFailure
	}
	return msg
}
