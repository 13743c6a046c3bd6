package controllers

import (
	"context"
	"net/http"

	"github.com/dwayee/storefront/api/responses"
	"github.com/dwayee/storefront/api/validators"
	"github.com/dwayee/storefront/internal/checkout"
	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/enums"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/dwayee/storefront/pkg/types"
)

const maxNotesLen = 1000

type CheckoutService interface {
	Checkout(ctx context.Context, sess *session.Session, req checkout.Request) (*checkout.Result, error)
}

type checkoutRequest struct {
	AddressID     types.FlexibleID `json:"address_id"`
	PaymentMethod string           `json:"payment_method"`
	Notes         string           `json:"notes"`
}

type checkoutResponse struct {
	OrderID     string `json:"order_id"`
	Message     string `json:"message,omitempty"`
	CartCleared bool   `json:"cart_cleared"`
}

// CheckoutPlaceOrder submits the current cart. A missing address is reported by
// the checkout service, not by body validation.
func CheckoutPlaceOrder(svc CheckoutService, sessions SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var method enums.PaymentMethod
		if req.PaymentMethod != "" {
			parsed, err := enums.ParsePaymentMethod(req.PaymentMethod)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
					WithDetails(map[string]string{"payment_method": "must be one of [cash_on_delivery credit_card]"}))
				return
			}
			method = parsed
		}

		sess := sessions.Current()
		res, err := svc.Checkout(r.Context(), sess, checkout.Request{
			AddressID:     req.AddressID.String(),
			PaymentMethod: method,
			Notes:         validators.SanitizeString(req.Notes, maxNotesLen),
		})
		if err != nil {
			writeSessionError(r.Context(), logg, w, sessions, sess, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:     res.OrderID,
			Message:     res.Message,
			CartCleared: res.CartCleared,
		})
	}
}
