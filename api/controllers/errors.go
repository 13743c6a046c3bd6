package controllers

import (
	"context"
	"net/http"

	"github.com/dwayee/storefront/api/responses"
	"github.com/dwayee/storefront/internal/session"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
)

type sessionInvalidator interface {
	Invalidate(ctx context.Context, token string) error
}

// writeSessionError renders err and, when the API refused the token sess carried,
// drops that session so the shopper is asked to sign in again.
func writeSessionError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, sessions sessionInvalidator, sess *session.Session, err error) {
	if sessions != nil && sess.Valid() && pkgerrors.IsCode(err, pkgerrors.CodeUnauthenticated) {
		if ierr := sessions.Invalidate(ctx, sess.Token); ierr != nil && logg != nil {
			logg.WarnErr(ctx, "session.invalidate_failed", ierr)
		}
	}
	responses.WriteError(ctx, logg, w, err)
}
