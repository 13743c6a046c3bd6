package controllers

import (
	"context"
	"net/http"

	"github.com/dwayee/storefront/api/responses"
	"github.com/dwayee/storefront/api/validators"
	"github.com/dwayee/storefront/internal/session"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
)

// SessionProvider exposes the active session to request handlers.
type SessionProvider interface {
	Current() *session.Session
	Invalidate(ctx context.Context, token string) error
}

type SessionManager interface {
	SessionProvider
	SignIn(ctx context.Context, email, password string) (*session.Session, error)
	SignOut(ctx context.Context) error
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	UserType      string           `json:"user_type,omitempty"`
	Profile       *session.Profile `json:"profile,omitempty"`
}

func sessionView(sess *session.Session) sessionResponse {
	if !sess.Valid() {
		return sessionResponse{}
	}
	profile := sess.Profile
	return sessionResponse{
		Authenticated: true,
		UserType:      sess.UserType,
		Profile:       &profile,
	}
}

func SessionShow(sessions SessionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, sessionView(sessions.Current()))
	}
}

// SessionSignIn exchanges credentials for a session. The token itself never leaves the process.
func SessionSignIn(sessions SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		var req signInRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := sessions.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionView(sess))
	}
}

func SessionSignOut(sessions SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.SignOut(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionView(nil))
	}
}
